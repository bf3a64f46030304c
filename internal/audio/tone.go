package audio

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 44100
	BufferSize = 512
)

// ToneCue plays a synthesized hit through the default output device. The
// sample is rendered once; Play starts it from the play head and a retrigger
// simply moves the head back to the start.
type ToneCue struct {
	Stream *portaudio.Stream

	mu      sync.Mutex
	sample  []float32
	head    int
	playing bool
	volume  float64

	Active bool
}

// NewToneCue renders a short percussive hit: a low sine thump plus a burst
// of noise, both with an exponential decay.
func NewToneCue() *ToneCue {
	n := SampleRate / 4
	sample := make([]float32, n)
	rng := rand.New(rand.NewSource(1))
	for i := range sample {
		t := float64(i) / SampleRate
		env := math.Exp(-t * 28)
		thump := math.Sin(2 * math.Pi * 160 * t * (1 - t))
		noise := rng.Float64()*2 - 1
		sample[i] = float32(env * (0.7*thump + 0.3*noise*math.Exp(-t*60)))
	}
	return &ToneCue{sample: sample, volume: 1}
}

func (c *ToneCue) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: init: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, c.process)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audio: start stream: %w", err)
	}
	c.Stream = stream
	c.Active = true
	return nil
}

func (c *ToneCue) Stop() {
	if c.Stream != nil {
		c.Stream.Stop()
		c.Stream.Close()
		c.Stream = nil
	}
	if c.Active {
		portaudio.Terminate()
	}
	c.Active = false
}

func (c *ToneCue) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = math.Max(0, math.Min(1, v))
	c.mu.Unlock()
}

func (c *ToneCue) Rewind() {
	c.mu.Lock()
	c.head = 0
	c.mu.Unlock()
}

func (c *ToneCue) Play() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
}

// process is the stream callback; it fills both channels from the play head.
func (c *ToneCue) process(out [][]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill(out)
}

func (c *ToneCue) fill(out [][]float32) {
	for i := range out[0] {
		var v float32
		if c.playing && c.head < len(c.sample) {
			v = c.sample[c.head] * float32(c.volume)
			c.head++
			if c.head == len(c.sample) {
				c.playing = false
			}
		}
		for ch := range out {
			out[ch][i] = v
		}
	}
}
