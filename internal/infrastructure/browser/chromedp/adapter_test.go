package chromedp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}
	found := false
	for _, bin := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(bin); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no chrome binary on PATH")
	}

	cfg := DefaultConfig()
	cfg.NoSandbox = true
	cfg.Timeout = 15 * time.Second
	adapter := NewBrowserAdapter(cfg)
	t.Cleanup(adapter.Close)
	return adapter
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://broker.example/privacy"))
	assert.ErrorIs(t, validateURL(""), ErrInvalidURL)
	assert.ErrorIs(t, validateURL("file:///etc/passwd"), ErrInvalidURL)
	assert.ErrorIs(t, validateURL("http://"), ErrInvalidURL)
}

func TestClosedAdapterRefusesSessions(t *testing.T) {
	adapter := NewBrowserAdapter(DefaultConfig())
	adapter.Close()
	adapter.Close()

	_, err := adapter.NewSession(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_EmptySelector(t *testing.T) {
	s := &Session{cfg: DefaultConfig()}
	ctx := context.Background()

	assert.ErrorIs(t, s.Fill(ctx, "", "x"), ErrInvalidSelector)
	assert.ErrorIs(t, s.Click(ctx, "  "), ErrInvalidSelector)
	assert.ErrorIs(t, s.SubmitNative(ctx, ""), ErrInvalidSelector)
	assert.ErrorIs(t, s.Navigate(ctx, "javascript:void(0)"), ErrInvalidURL)
}

func TestSession_Workflow(t *testing.T) {
	adapter := newTestAdapter(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/done" {
			fmt.Fprintf(w, `<html><body>received %s</body></html>`, r.URL.Query().Get("email"))
			return
		}
		fmt.Fprint(w, `<html><body><form id="f" action="/done" method="get"><input name="email"></form></body></html>`)
	}))
	defer server.Close()

	ctx := context.Background()
	session, err := adapter.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, server.URL))
	require.NoError(t, session.Fill(ctx, `[name="email"]`, "jane@example.com"))

	v, err := session.Evaluate(ctx, `document.querySelector('[name="email"]').value`)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", v)

	require.NoError(t, session.SubmitNative(ctx, `form[id="f"]`))
	assert.Eventually(t, func() bool {
		html, err := session.HTML(ctx)
		return err == nil && strings.Contains(html, "received jane@example.com")
	}, 10*time.Second, 200*time.Millisecond)

	shot, err := session.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "png", shot.Format)
	assert.Greater(t, shot.Width, 0)
}
