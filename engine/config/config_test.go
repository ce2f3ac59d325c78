package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mellohi.yaml")
	doc := `
window:
  title: Spinning Cubes
  width: 1280
renderer:
  present_mode: Uncapped
  msaa: 4
  clear_color: [0.1, 0.2, 0.3, 1]
frame:
  frame_limit: 120
  profiling: true
  profile_interval: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Spinning Cubes", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 480, cfg.Window.Height, "unset keys keep their defaults")
	assert.Equal(t, PresentModeUncapped, cfg.Renderer.PresentMode)
	assert.Equal(t, uint32(4), cfg.Renderer.MSAA)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 1}, cfg.Renderer.ClearColor)
	assert.Equal(t, frame.DefaultMaxSurfaceRetries, cfg.Frame.MaxSurfaceRetries)
	assert.True(t, cfg.Frame.Profiling)
	assert.Equal(t, 2*time.Second, cfg.Frame.ProfileInterval)
	assert.Equal(t, time.Second/120, cfg.Frame.FrameDuration())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Zero(t, cfg.Frame.FrameDuration())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "window:\n  colour: red\n"},
		{name: "bad yaml", doc: "window: [\n"},
		{name: "zero width", doc: "window:\n  width: 0\n"},
		{name: "present mode", doc: "renderer:\n  present_mode: mailbox\n"},
		{name: "msaa", doc: "renderer:\n  msaa: 2\n"},
		{name: "clear color", doc: "renderer:\n  clear_color: [2, 0, 0, 1]\n"},
		{name: "retries", doc: "frame:\n  max_surface_retries: -1\n"},
		{name: "frame limit", doc: "frame:\n  frame_limit: -30\n"},
		{name: "profile interval", doc: "frame:\n  profiling: true\n  profile_interval: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = -1
	cfg.Renderer.MSAA = 8

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "window size")
	assert.Contains(t, err.Error(), "msaa 8")
}

func TestOptions(t *testing.T) {
	cfg, err := Parse([]byte("renderer:\n  msaa: 4\nframe:\n  max_surface_retries: 0\n"))
	require.NoError(t, err)

	ctx := renderer.NewMemoryContext(cfg.Renderer.Options()...)
	assert.Equal(t, renderer.MSAA4x, ctx.SampleCount())

	ctx.FailFrames(1)
	c := frame.NewController(ctx, cfg.Frame.Options()...)
	err = c.Tick(time.Millisecond)
	assert.ErrorIs(t, err, renderer.ErrSurfaceUnavailable, "zero retries reports the first failure")
}
