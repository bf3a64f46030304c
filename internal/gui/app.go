package gui

import (
	"fmt"
	"math"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/dropsim/internal/sim"
)

const telemetryCapacity = 300

type App struct {
	Engine    *sim.Engine
	Window    *Window
	Running   bool
	Stats     sim.FrameStats
	Telemetry []float64
	Status    string
}

func initWindow() {
	rl.InitWindow(1280, 720, "dropsim")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// NewApp attaches a raylib window renderer to eng. The window must be open.
func NewApp(eng *sim.Engine) *App {
	a := &App{
		Engine:    eng,
		Window:    NewWindow(),
		Running:   true,
		Telemetry: make([]float64, 0, telemetryCapacity),
	}
	a.Window.SetHUD(a.DrawHUD)
	eng.Loop().SetRenderer(a.Window)
	eng.Loop().AddObserver(sim.ObserverFunc(a.observe))
	return a
}

// Run opens a window and blocks until it is closed.
func Run(eng *sim.Engine) {
	initWindow()
	defer rl.CloseWindow()
	NewApp(eng).RunLoop()
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if !a.Update() {
			return
		}
	}
}

func (a *App) observe(stats sim.FrameStats, objects []sim.ObjectState) {
	a.Stats = stats
	top := 0.0
	for _, o := range objects {
		top = math.Max(top, o.Position.Y())
	}
	a.Telemetry = append(a.Telemetry, top)
	if len(a.Telemetry) > telemetryCapacity {
		a.Telemetry = a.Telemetry[1:]
	}
}

// Update handles input and draws one frame. It returns false on quit.
func (a *App) Update() bool {
	switch {
	case rl.IsKeyPressed(rl.KeyQ):
		return false
	case rl.IsKeyPressed(rl.KeySpace):
		a.Running = !a.Running
	case rl.IsKeyPressed(rl.KeyS):
		a.spawn(a.Engine.Factory().DropSphere())
	case rl.IsKeyPressed(rl.KeyB):
		a.spawn(a.Engine.Factory().DropBox())
	case rl.IsKeyPressed(rl.KeyR):
		a.Status = fmt.Sprintf("removed %d", a.Engine.Resetter().Reset())
		a.Telemetry = a.Telemetry[:0]
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.Window.Zoom(math.Pow(1.1, float64(wheel)))
	}

	var err error
	if a.Running {
		_, err = a.Engine.Loop().Advance(time.Now())
	} else {
		err = a.Engine.Loop().Redraw()
	}
	if err != nil {
		a.Status = err.Error()
	}
	return true
}

func (a *App) spawn(h fmt.Stringer, err error) {
	if err != nil {
		a.Status = err.Error()
		return
	}
	a.Status = "spawned " + h.String()
}

func (a *App) DrawHUD() {
	rl.DrawText("dropsim", 30, 30, 24, ColSelect)

	status, col := "RUNNING", ColSelect
	if !a.Running {
		status, col = "PAUSED", ColTextDim
	}
	rl.DrawText(status, 1150, 30, 16, col)

	lines := []string{
		fmt.Sprintf("time     %.2fs", a.Stats.Time),
		fmt.Sprintf("objects  %d", a.Stats.Objects),
		fmt.Sprintf("sleeping %d", a.Stats.Sleeping),
		fmt.Sprintf("contacts %d", a.Stats.Contacts),
		fmt.Sprintf("hits     %d", a.Stats.Triggers),
	}
	for i, l := range lines {
		rl.DrawText(l, 30, int32(70+i*20), 16, ColText)
	}
	if a.Status != "" {
		rl.DrawText(a.Status, 30, int32(80+len(lines)*20), 14, ColTextDim)
	}

	a.DrawTelemetry()
	rl.DrawText("[S] SPHERE  [B] BOX  [R] RESET  [SPACE] PAUSE  [WHEEL] ZOOM  [Q] QUIT", 600, 680, 14, ColTextDim)
	rl.DrawFPS(30, 680)
}

// DrawTelemetry plots the height of the highest object.
func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := 30, 580
	width, height := 400, 60

	maxVal := 1.0
	for _, v := range a.Telemetry {
		maxVal = math.Max(maxVal, v)
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + (float32(i)/float32(len(a.Telemetry)))*float32(width)
		py := float32(rectY+height) - float32(val/maxVal)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}

	rl.DrawLineStrip(points, ColSelect)
	rl.DrawText(fmt.Sprintf("top %.2fm", a.Telemetry[len(a.Telemetry)-1]), int32(rectX+width+10), int32(rectY+height-10), 14, ColText)
}
