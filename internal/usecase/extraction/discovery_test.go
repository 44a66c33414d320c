package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRemovalPath(t *testing.T) {
	tests := []struct {
		page  string
		match string
		found bool
	}{
		{`<a href="/optout">Opt Out</a>`, "optout", true},
		{`<p>Click to OPT-OUT</p>`, "OPT-OUT", true},
		{`<p>Do Not Sell My Personal Information</p>`, "Do Not Sell", true},
		{`<p>Read our Privacy policy</p>`, "Privacy", true},
		{`<p>Hello world</p>`, "", false},
	}

	for _, tt := range tests {
		match, found := FindRemovalPath(tt.page)
		assert.Equal(t, tt.found, found, tt.page)
		assert.Equal(t, tt.match, match, tt.page)
	}
}

func TestFindEmail(t *testing.T) {
	assert.Equal(t, "privacy@broker.example",
		FindEmail(`<p>Contact us at privacy@broker.example.</p>`))
	assert.Equal(t, "optout@broker.example",
		FindEmail(`<a href="mailto:optout@broker.example?subject=hi">Write to us</a>`))
	assert.Equal(t, "", FindEmail(`<style>@media print {}</style><p>no address here</p>`))
}

func TestFindForm(t *testing.T) {
	page := `<body>
		<form action="/submit" method="GET">
			<input name="full_name">
			<input id="nameless">
			<textarea name="message"></textarea>
			<input type="submit" name="send" value="Send">
		</form>
		<form id="second"></form>
	</body>`

	form, err := FindForm(page, "https://broker.example/optout")
	require.NoError(t, err)
	require.NotNil(t, form)

	assert.Equal(t, "form", form.Selector)
	assert.Equal(t, "https://broker.example/submit", form.Action)
	assert.Equal(t, "get", form.Method)
	require.Len(t, form.Fields, 4)
	assert.Equal(t, "full_name", form.Fields[0].Name)
	assert.Equal(t, "nameless", form.Fields[1].ID)
	assert.Equal(t, "textarea", form.Fields[2].Tag)
	require.NotNil(t, form.Submit)
	assert.Equal(t, "send", form.Submit.Name)
	assert.Contains(t, form.HTML, `name="full_name"`)
}

func TestFindForm_Defaults(t *testing.T) {
	form, err := FindForm(`<form><button type="submit">Go</button></form>`, "https://broker.example/")
	require.NoError(t, err)
	require.NotNil(t, form)

	assert.Equal(t, "https://broker.example/", form.Action)
	assert.Equal(t, "post", form.Method)
	require.NotNil(t, form.Submit)
	assert.Equal(t, "button", form.Submit.Tag)
	assert.Empty(t, form.Submit.Name)
}

func TestFindForm_None(t *testing.T) {
	form, err := FindForm(`<p>no forms</p>`, "https://broker.example/")
	require.NoError(t, err)
	assert.Nil(t, form)
}

func TestVisibleText(t *testing.T) {
	text := VisibleText(`<html><head><title>T</title></head><body>
		<script>var x = "hidden";</script>
		<div> Hello <b>World</b> </div><!-- note --></body></html>`)
	assert.Equal(t, "Hello World", text)
}
