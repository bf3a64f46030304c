package audio

import "sync"

// Cue is a single playable sound. Retriggering restarts the same channel;
// there is no queueing or polyphony.
type Cue interface {
	SetVolume(v float64)
	Rewind()
	Play()
}

// NopCue drops every call.
type NopCue struct{}

func (NopCue) SetVolume(float64) {}
func (NopCue) Rewind()           {}
func (NopCue) Play()             {}

// RecordingCue remembers the calls it receives. Useful when no audio device
// is available and in tests.
type RecordingCue struct {
	mu      sync.Mutex
	Volume  float64
	Plays   int
	Rewinds int
	Calls   []string
}

func (c *RecordingCue) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Volume = v
	c.Calls = append(c.Calls, "volume")
}

func (c *RecordingCue) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Rewinds++
	c.Calls = append(c.Calls, "rewind")
}

func (c *RecordingCue) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Plays++
	c.Calls = append(c.Calls, "play")
}

// PlayCount returns the number of Play calls so far.
func (c *RecordingCue) PlayCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Plays
}
