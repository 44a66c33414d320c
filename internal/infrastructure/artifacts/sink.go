package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"github.com/disintegration/imaging"
)

const maxBrokerNameLen = 40

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

var _ output.ScreenshotSinkPort = (*ScreenshotSink)(nil)

type Config struct {
	Dir      string
	MaxWidth int
}

func DefaultConfig() Config {
	return Config{
		Dir:      "screenshots",
		MaxWidth: 1280,
	}
}

// ScreenshotSink stores captured pages as PNG files. Existing files are never
// overwritten.
type ScreenshotSink struct {
	cfg Config
	now func() time.Time
	mu  sync.Mutex
}

func NewScreenshotSink(cfg Config) *ScreenshotSink {
	if cfg.Dir == "" {
		cfg.Dir = DefaultConfig().Dir
	}
	return &ScreenshotSink{cfg: cfg, now: time.Now}
}

func (s *ScreenshotSink) Save(ctx context.Context, shot *entity.Screenshot, brokerName, step string) (string, error) {
	if shot == nil || len(shot.Data) == 0 {
		return "", errors.New("empty screenshot")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(shot.Data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	if s.cfg.MaxWidth > 0 && img.Bounds().Dx() > s.cfg.MaxWidth {
		img = imaging.Resize(img, s.cfg.MaxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.uniquePath(brokerName, step)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	return path, nil
}

func (s *ScreenshotSink) uniquePath(brokerName, step string) string {
	base := Filename(brokerName, step, s.now())
	path := filepath.Join(s.cfg.Dir, base+".png")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(s.cfg.Dir, fmt.Sprintf("%s_%d.png", base, i))
	}
	return path
}

// Filename builds "<broker>_<step>_<timestamp>" without extension. The broker
// part is dropped when empty.
func Filename(brokerName, step string, at time.Time) string {
	ts := at.Format("20060102_150405") + fmt.Sprintf("_%06d", at.Nanosecond()/1000)
	step = SanitizeName(step)
	if brokerName == "" {
		return step + "_" + ts
	}
	name := SanitizeName(brokerName)
	if len(name) > maxBrokerNameLen {
		name = name[:maxBrokerNameLen]
	}
	return name + "_" + step + "_" + ts
}

func SanitizeName(s string) string {
	return unsafeName.ReplaceAllString(s, "_")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
