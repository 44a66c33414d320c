package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formHTML = `<!DOCTYPE html>
<html>
<body>
	<form id="removal" action="/done" method="get">
		<input id="email" type="text" name="user_email" />
		<button id="submit" type="submit" name="go">Submit</button>
	</form>
	<div id="result"></div>
</body>
</html>`

func newTestAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}

	cfg := DefaultConfig()
	cfg.NoSandbox = true
	cfg.Timeout = 2 * time.Second

	adapter, err := NewBrowserAdapter(context.Background(), cfg)
	if err != nil {
		t.Skipf("chromium not available: %v", err)
	}
	t.Cleanup(adapter.Close)
	return adapter
}

func newFormServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/done" {
			fmt.Fprintf(w, `<html><body><p id="ok">%s</p></body></html>`, r.URL.Query().Get("user_email"))
			return
		}
		fmt.Fprint(w, formHTML)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Headless)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, "png", cfg.ScreenshotFormat)
	assert.False(t, cfg.NoSandbox)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{"http", "http://broker.example/optout", true},
		{"https", "https://broker.example", true},
		{"Empty URL", "", false},
		{"Invalid scheme", "ftp://example.com", false},
		{"JavaScript URL", "javascript:alert(1)", false},
		{"No host", "https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}

func TestIsXPathSelector(t *testing.T) {
	assert.True(t, isXPathSelector("//button[@id='x']"))
	assert.True(t, isXPathSelector("(//a)[1]"))
	assert.False(t, isXPathSelector("form button"))
	assert.False(t, isXPathSelector(`[name="email"]`))
}

func TestSession_FillAndClick(t *testing.T) {
	adapter := newTestAdapter(t)
	server := newFormServer(t)
	ctx := context.Background()

	session, err := adapter.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, server.URL))

	html, err := session.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, `name="user_email"`)

	require.NoError(t, session.Fill(ctx, `[name="user_email"]`, "jane@example.com"))
	require.NoError(t, session.Click(ctx, `[name="go"]`))

	assert.Eventually(t, func() bool {
		h, err := session.HTML(ctx)
		return err == nil && strings.Contains(h, "jane@example.com")
	}, 5*time.Second, 100*time.Millisecond)
}

func TestSession_EvaluateAndSubmitNative(t *testing.T) {
	adapter := newTestAdapter(t)
	server := newFormServer(t)
	ctx := context.Background()

	session, err := adapter.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, server.URL))

	v, err := session.Evaluate(ctx, `document.querySelectorAll("input").length`)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	_, err = session.Evaluate(ctx, `document.querySelector('[name="user_email"]').value = "x@y.example"`)
	require.NoError(t, err)

	require.NoError(t, session.SubmitNative(ctx, `form[id="removal"]`))
	assert.Eventually(t, func() bool {
		h, err := session.HTML(ctx)
		return err == nil && strings.Contains(h, "x@y.example")
	}, 5*time.Second, 100*time.Millisecond)
}

func TestSession_Errors(t *testing.T) {
	adapter := newTestAdapter(t)
	server := newFormServer(t)
	ctx := context.Background()

	session, err := adapter.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	assert.ErrorIs(t, session.Navigate(ctx, "javascript:alert(1)"), ErrInvalidURL)
	require.NoError(t, session.Navigate(ctx, server.URL))

	assert.ErrorIs(t, session.Click(ctx, ""), ErrInvalidSelector)
	assert.ErrorIs(t, session.SubmitNative(ctx, " "), ErrInvalidSelector)

	err = session.Fill(ctx, "#missing", "x")
	assert.ErrorContains(t, err, "field not found")

	assert.Error(t, session.SubmitNative(ctx, "#missing"))
}

func TestSession_Screenshot(t *testing.T) {
	adapter := newTestAdapter(t)
	server := newFormServer(t)
	ctx := context.Background()

	session, err := adapter.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, server.URL))

	shot, err := session.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "png", shot.Format)
	assert.NotEmpty(t, shot.Data)
	assert.Greater(t, shot.Width, 0)
	assert.Equal(t, server.URL+"/", session.CurrentURL())
}

func TestSessions_AreIsolated(t *testing.T) {
	adapter := newTestAdapter(t)
	server := newFormServer(t)
	ctx := context.Background()

	a, err := adapter.NewSession(ctx)
	require.NoError(t, err)
	b, err := adapter.NewSession(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Navigate(ctx, server.URL))
	assert.Equal(t, server.URL+"/", a.CurrentURL())
	assert.Equal(t, "about:blank", b.CurrentURL())

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestBrowserAdapter_Close(t *testing.T) {
	adapter := newTestAdapter(t)
	assert.True(t, adapter.IsReady())

	adapter.Close()
	adapter.Close()
	assert.False(t, adapter.IsReady())

	_, err := adapter.NewSession(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
