package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleText_SkipsScriptStyleAndComments(t *testing.T) {
	raw := `
<html>
<head><title>Broker</title><style>.x {}</style></head>
<body>
    <!-- hidden note -->
    <div id="main">Hello</div>
    <script>alert("hi")</script>
    <p>  Opt   out  </p>
</body>
</html>`

	out := VisibleText(raw)

	assert.Equal(t, "Hello Opt   out", out)
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "hidden note")
	assert.NotContains(t, out, "Broker")
}

func TestVisibleText_Empty(t *testing.T) {
	assert.Empty(t, VisibleText(""))
	assert.Empty(t, VisibleText("<div><script>x()</script></div>"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "privé", truncate("privé", 5))
	assert.Equal(t, "pri", truncate("privé", 3))
}
