package artifacts

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"removal-agent/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngShot(t *testing.T, w, h int) *entity.Screenshot {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &entity.Screenshot{Data: buf.Bytes(), Format: "png", Width: w, Height: h}
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.UTC)

	assert.Equal(t, "Acme_People_Search_navigate_20240305_140709_123456", Filename("Acme People/Search", "navigate", at))
	assert.Equal(t, "submit_form_20240305_140709_123456", Filename("", "submit_form", at))

	long := Filename(strings.Repeat("b", 60), "navigate", at)
	assert.True(t, strings.HasPrefix(long, strings.Repeat("b", 40)+"_navigate_"))
}

func TestScreenshotSink_SaveDownscales(t *testing.T) {
	dir := t.TempDir()
	sink := NewScreenshotSink(Config{Dir: dir, MaxWidth: 100})

	path, err := sink.Save(context.Background(), pngShot(t, 400, 200), "Acme", "navigate")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "Acme_navigate_"))
	assert.Equal(t, ".png", filepath.Ext(path))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestScreenshotSink_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink := NewScreenshotSink(Config{Dir: dir})
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	first, err := sink.Save(context.Background(), pngShot(t, 10, 10), "", "navigate")
	require.NoError(t, err)
	second, err := sink.Save(context.Background(), pngShot(t, 10, 10), "", "navigate")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "navigate_20240101_000000_000000_1.png", filepath.Base(second))
}

func TestScreenshotSink_Errors(t *testing.T) {
	sink := NewScreenshotSink(Config{Dir: t.TempDir()})

	_, err := sink.Save(context.Background(), nil, "x", "navigate")
	assert.Error(t, err)

	_, err = sink.Save(context.Background(), &entity.Screenshot{Data: []byte("not an image")}, "x", "navigate")
	assert.ErrorContains(t, err, "decode screenshot")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sink.Save(ctx, pngShot(t, 5, 5), "x", "navigate")
	assert.ErrorIs(t, err, context.Canceled)
}
