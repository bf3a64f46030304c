package storage

import (
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/san-kum/dropsim/internal/sim"
)

// Sample is one object's pose at one frame.
type Sample struct {
	Time     float64    `json:"time"`
	Handle   string     `json:"handle"`
	Kind     string     `json:"kind"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Sleeping bool       `json:"sleeping"`
}

func (s Sample) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return []string{
		f(s.Time), s.Handle, s.Kind,
		f(s.Position[0]), f(s.Position[1]), f(s.Position[2]),
		f(s.Rotation[0]), f(s.Rotation[1]), f(s.Rotation[2]), f(s.Rotation[3]),
		strconv.FormatBool(s.Sleeping),
	}
}

// Recorder collects samples from the frame loop, keeping every Stride-th frame.
type Recorder struct {
	mu      sync.Mutex
	stride  uint64
	frames  uint64
	samples []Sample
}

func NewRecorder(stride int) *Recorder {
	if stride < 1 {
		stride = 1
	}
	return &Recorder{stride: uint64(stride)}
}

func (r *Recorder) OnFrame(stats sim.FrameStats, objects []sim.ObjectState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = stats.Frame
	if (stats.Frame-1)%r.stride != 0 {
		return
	}
	for _, o := range objects {
		q := o.Orientation
		r.samples = append(r.samples, Sample{
			Time:     stats.Time,
			Handle:   o.Handle.String(),
			Kind:     o.Kind,
			Position: [3]float64{o.Position[0], o.Position[1], o.Position[2]},
			Rotation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
			Sleeping: o.Sleeping,
		})
	}
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Frames is the last frame number seen.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

type exportData struct {
	Meta    RunMetadata `json:"meta"`
	Samples []Sample    `json:"samples"`
}

// ExportJSON writes a run as a single indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, samples []Sample) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportData{Meta: meta, Samples: samples})
}
