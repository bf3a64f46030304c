package viz

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dropsim/internal/metrics"
	"github.com/san-kum/dropsim/internal/registry"
	"github.com/san-kum/dropsim/internal/sim"
)

const historyCapacity = 600

// GIFPath is where G recordings are written.
var GIFPath = "dropsim.gif"

type TickMsg time.Time

// history is filled by the frame loop and read by View.
type history struct {
	mu      sync.Mutex
	gravity float64
	heights []float64
	energy  []float64
	last    sim.FrameStats
}

func (h *history) OnFrame(stats sim.FrameStats, objects []sim.ObjectState) {
	top := 0.0
	for _, o := range objects {
		top = math.Max(top, o.Position.Y())
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = stats
	h.heights = appendCapped(h.heights, top)
	h.energy = appendCapped(h.energy, metrics.TotalEnergy(objects, h.gravity))
}

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heights = h.heights[:0]
	h.energy = h.energy[:0]
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// Model is the Bubble Tea program around an engine.
type Model struct {
	eng      *sim.Engine
	term     *Terminal
	hist     *history
	theme    Theme
	st       styles
	running  bool
	showHelp bool
	status   string
	err      error
}

// NewModel attaches term as the engine's renderer and starts unpaused.
func NewModel(eng *sim.Engine, term *Terminal) Model {
	hist := &history{gravity: math.Abs(eng.Config().World.Gravity[1])}
	eng.Loop().SetRenderer(term)
	eng.Loop().AddObserver(hist)
	return Model{
		eng:     eng,
		term:    term,
		hist:    hist,
		theme:   Themes[0],
		st:      newStyles(Themes[0]),
		running: true,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances the loop on ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			m.spawn(m.eng.Factory().DropSphere)
		case "b":
			m.spawn(m.eng.Factory().DropBox)
		case "r":
			n := m.eng.Resetter().Reset()
			m.hist.clear()
			m.status = fmt.Sprintf("removed %d", n)
		case "t":
			m.theme = NextTheme(m.theme)
			m.st = newStyles(m.theme)
		case "+", "=":
			m.term.Zoom(1.2)
		case "-", "_":
			m.term.Zoom(1 / 1.2)
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			_, m.err = m.eng.Loop().Advance(time.Time(msg))
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) spawn(drop func() (registry.Handle, error)) {
	h, err := drop()
	if err != nil {
		m.err = err
		return
	}
	m.status = "spawned " + h.String()
}

func (m *Model) toggleRecording() {
	if !m.term.Recording() {
		m.term.StartRecording()
		m.status = "recording"
		return
	}
	n, err := m.term.StopRecording(GIFPath)
	if err != nil {
		m.err = err
		return
	}
	m.status = fmt.Sprintf("saved %d frames to %s", n, GIFPath)
}

// View renders the canvas next to a stats panel.
func (m Model) View() string {
	m.hist.mu.Lock()
	stats := m.hist.last
	heights := append([]float64(nil), m.hist.heights...)
	energy := 0.0
	if len(m.hist.energy) > 0 {
		energy = m.hist.energy[len(m.hist.energy)-1]
	}
	m.hist.mu.Unlock()

	var s strings.Builder
	s.WriteString(m.st.header.Render("DROPSIM") + "\n")
	switch {
	case m.term.Recording():
		s.WriteString(m.st.rec.Render("● REC") + "\n\n")
	case m.running:
		s.WriteString(m.st.running.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(m.st.paused.Render("PAUSED") + "\n\n")
	}

	if len(heights) > 1 {
		chart := asciigraph.Plot(heights, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Highest object (m)"))
		s.WriteString(m.st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", stats.Time))
	row("Objects", fmt.Sprintf("%d", stats.Objects))
	row("Sleeping", fmt.Sprintf("%d", stats.Sleeping))
	row("Contacts", fmt.Sprintf("%d", stats.Contacts))
	row("Hits", fmt.Sprintf("%d", stats.Triggers))
	row("Energy", fmt.Sprintf("%.2f J", energy))
	row("Substeps", fmt.Sprintf("%d", stats.Substeps))
	if stats.Objects > 0 {
		frac := float64(stats.Sleeping) / float64(stats.Objects)
		row("Settled", ProgressBar(frac, 12))
	}

	if m.status != "" {
		s.WriteString("\n" + m.st.value.Render(m.status) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + m.st.errText.Render(m.err.Error()) + "\n")
	}
	s.WriteString(m.st.help.Render("─────────────────────\nS:Sphere B:Box R:Reset\nSP:Pause T:Theme G:GIF\n+/-:Zoom ?:Help Q:Quit"))

	canvasView := m.st.canvas.Render(m.term.Frame())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  S        - Drop a random sphere     ║
║  B        - Drop a random box        ║
║  R        - Remove every object      ║
║  Space    - Pause/Resume             ║
║  +/-      - Zoom in/out              ║
║  T        - Cycle themes             ║
║  G        - Toggle GIF recording     ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts the terminal UI and blocks until the user quits.
func Run(eng *sim.Engine) error {
	_, err := tea.NewProgram(NewModel(eng, NewTerminal(width, height)), tea.WithAltScreen()).Run()
	return err
}
