package viz

import (
	"errors"
	"image"
	"image/gif"
	"os"
	"sync"

	"github.com/san-kum/dropsim/internal/scene"
)

const (
	width  = 72
	height = 24

	gifCellW = 8
	gifCellH = 16
)

// Terminal rasterises the scene graph to text. It is a scene.Renderer and is
// safe to read from the UI goroutine while the loop renders.
type Terminal struct {
	mu        sync.Mutex
	canvas    *Canvas
	zoom      float64
	last      string
	rendered  uint64
	recording bool
	frames    []*image.Paletted
}

func NewTerminal(w, h int) *Terminal {
	if w <= 0 || h <= 0 {
		w, h = width, height
	}
	return &Terminal{canvas: NewCanvas(w, h), zoom: 1}
}

func (t *Terminal) Render(g *scene.Graph, cam scene.Camera) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.canvas.Clear()
	dw, dh := t.canvas.Dots()
	p := NewProjector(cam, dw, dh, t.zoom)
	for _, m := range g.Meshes() {
		p.DrawMesh(t.canvas, m)
	}
	t.last = t.canvas.String()
	t.rendered++
	if t.recording {
		t.frames = append(t.frames, t.canvas.Image(gifCellW, gifCellH))
	}
	return nil
}

// Frame returns the most recently rendered text.
func (t *Terminal) Frame() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == "" {
		return t.canvas.String()
	}
	return t.last
}

// Rendered counts Render calls.
func (t *Terminal) Rendered() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rendered
}

func (t *Terminal) Zoom(factor float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.zoom *= factor
	if t.zoom < 0.25 {
		t.zoom = 0.25
	}
	if t.zoom > 8 {
		t.zoom = 8
	}
}

func (t *Terminal) Recording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

func (t *Terminal) StartRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = true
	t.frames = t.frames[:0]
}

var errNoFrames = errors.New("viz: no frames recorded")

// StopRecording writes the captured frames to path as an animated GIF.
func (t *Terminal) StopRecording(path string) (int, error) {
	t.mu.Lock()
	frames := t.frames
	t.recording = false
	t.frames = nil
	t.mu.Unlock()

	if len(frames) == 0 {
		return 0, errNoFrames
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		return 0, err
	}
	return len(frames), nil
}
