package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dropsim/internal/audio"
	"github.com/san-kum/dropsim/internal/automation"
	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/export"
	"github.com/san-kum/dropsim/internal/gui"
	"github.com/san-kum/dropsim/internal/logx"
	"github.com/san-kum/dropsim/internal/metrics"
	"github.com/san-kum/dropsim/internal/sim"
	"github.com/san-kum/dropsim/internal/storage"
	"github.com/san-kum/dropsim/internal/stream"
	"github.com/san-kum/dropsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	seed       int64
	verbose    bool
	quiet      bool
	logFormat  string
	logFile    string
	noAudio    bool

	duration  float64
	spheres   int
	boxes     int
	stride    int
	runName   string
	jsonOut   string
	svgOut    string
	addr      string
	dropCount int
	save      bool
	sweepMin  float64
	sweepMax  float64
	sweepN    int
	sweepTime float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dropsim",
		Short:         "rigid-body drop simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".dropsim", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.Int64Var(&seed, "seed", 0, "random seed")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "errors only")
	pf.StringVar(&logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&logFile, "log-file", "", "write logs to a file")
	pf.BoolVar(&noAudio, "no-audio", false, "disable collision sounds")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive terminal view",
		RunE:  runTUI,
	}

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "interactive window (raylib)",
		RunE:  runGUI,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream transforms over websocket",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&dropCount, "drop", 0, "keep dropping this many spheres, then reset")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "headless drop run",
		RunE:  runHeadless,
	}
	runCmd.Flags().Float64Var(&duration, "time", 5.0, "simulated seconds")
	runCmd.Flags().IntVar(&spheres, "spheres", 3, "random spheres to drop")
	runCmd.Flags().IntVar(&boxes, "boxes", 0, "random boxes to drop")
	runCmd.Flags().IntVar(&stride, "stride", 1, "record every n-th frame")
	runCmd.Flags().StringVar(&runName, "name", "run", "run name")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also export the run to a json file")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&save, "save", true, "store the run")
	scenarioCmd.Flags().IntVar(&stride, "stride", 1, "record every n-th frame")

	sweepCmd := &cobra.Command{
		Use:   "sweep [param]",
		Short: "drop one sphere per parameter value",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "steps", 5, "number of values")
	sweepCmd.Flags().Float64Var(&sweepTime, "time", 5, "simulated seconds per drop")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot object heights of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the height plot to an svg file")

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGRAVITY\tFRICTION\tRESTITUTION\tSLEEP")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%v\n",
					name,
					p.World.Gravity[1],
					p.Material.Friction,
					p.Material.Restitution,
					p.World.AllowSleep,
				)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	rootCmd.AddCommand(tuiCmd, guiCmd, serveCmd, runCmd, scenarioCmd, sweepCmd,
		listCmd, plotCmd, exportCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves preset, then file, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (have %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("no-audio") {
		cfg.Audio.Enabled = !noAudio
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	return cfg, cfg.Validate()
}

// newLogger writes to stderr unless a log file is set. Full-screen views pass
// interactive so logs don't draw over them.
func newLogger(cfg *config.Config, interactive bool) (*slog.Logger, func(), error) {
	level, err := logx.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	level = logx.LevelFromFlags(verbose, quiet, level)

	var w io.Writer = os.Stderr
	closer := func() {}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, func() { f.Close() }
	case interactive:
		w = io.Discard
	}

	logger, err := logx.New(w, level, cfg.Log.Format)
	if err != nil {
		closer()
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// session is an engine plus the resources that must be released with it.
type session struct {
	cfg    *config.Config
	eng    *sim.Engine
	logger *slog.Logger
	close  func()
}

func newSession(cmd *cobra.Command, interactive bool, opts ...sim.Option) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(cfg, interactive)
	if err != nil {
		return nil, err
	}

	closers := []func(){closeLog}
	if interactive && cfg.Audio.Enabled {
		tone := audio.NewToneCue()
		if err := tone.Start(); err != nil {
			logger.Warn("audio unavailable, continuing silently", "err", err)
		} else {
			opts = append(opts, sim.WithCue(tone))
			closers = append(closers, tone.Stop)
		}
	}

	opts = append(opts, sim.WithLogger(logger))
	eng, err := sim.NewEngine(cfg, opts...)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	return &session{
		cfg:    cfg,
		eng:    eng,
		logger: logger,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close()
	return viz.Run(s.eng)
}

func runGUI(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close()
	gui.Run(s.eng)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	hub := stream.NewHub(s.logger)
	s.eng.Loop().SetRenderer(hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux}

	go s.eng.Loop().Run(ctx, 0)
	if dropCount > 0 {
		go dropEvery(ctx, s, dropCount, 2*time.Second)
	}
	go func() {
		<-ctx.Done()
		hub.Close()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	s.logger.Info("streaming", "addr", addr, "path", "/ws")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// dropEvery keeps the scene alive for stream viewers: it drops n spheres,
// waits, resets, and starts over.
func dropEvery(ctx context.Context, s *session, n int, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	dropped := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if dropped == n {
			s.eng.Resetter().Reset()
			dropped = 0
			continue
		}
		if _, err := s.eng.Factory().DropSphere(); err != nil {
			s.logger.Warn("drop failed", "err", err)
			continue
		}
		dropped++
	}
}

func runHeadless(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	for i := 0; i < spheres; i++ {
		if _, err := s.eng.Factory().DropSphere(); err != nil {
			return err
		}
	}
	for i := 0; i < boxes; i++ {
		if _, err := s.eng.Factory().DropBox(); err != nil {
			return err
		}
	}

	rec := storage.NewRecorder(stride)
	col := metrics.Standard(math.Abs(s.cfg.World.Gravity[1]))
	s.eng.Loop().AddObserver(rec)
	s.eng.Loop().AddObserver(col)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dt := s.cfg.Step.FixedDt
	frames := int(math.Round(duration / dt))
	start := time.Now()
	for f := 0; f < frames; f++ {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.eng.Loop().Tick(dt); err != nil {
			s.logger.Warn("tick failed", "frame", f, "err", err)
		}
	}

	meta := storage.RunMetadata{
		Name:        runName,
		Seed:        s.cfg.Seed,
		FixedDt:     dt,
		MaxSubsteps: s.cfg.Step.MaxSubsteps,
		Duration:    duration,
		Frames:      rec.Frames(),
		Spawned:     spheres + boxes,
		Metrics:     col.Values(),
	}
	return finishRun(s, meta, rec.Samples(), col, time.Since(start))
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("preset") && sc.Preset != "" {
		preset = sc.Preset
	}
	if !cmd.Flags().Changed("seed") {
		cmd.Flags().Set("seed", fmt.Sprint(sc.Seed))
	}

	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	rec := storage.NewRecorder(stride)
	col := metrics.Standard(math.Abs(s.cfg.World.Gravity[1]))
	s.eng.Loop().AddObserver(rec)
	s.eng.Loop().AddObserver(col)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := automation.RunScenario(ctx, s.eng, sc, s.logger)
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", res.Name)
	fmt.Printf("spawned: %d  removed: %d  frames: %d\n", res.Spawned, res.Removed, res.Frames)

	if !save {
		return nil
	}
	meta := storage.RunMetadata{
		Name:        sc.Name,
		Seed:        s.cfg.Seed,
		FixedDt:     s.cfg.Step.FixedDt,
		MaxSubsteps: s.cfg.Step.MaxSubsteps,
		Duration:    res.SimTime,
		Frames:      rec.Frames(),
		Spawned:     res.Spawned,
		Metrics:     col.Values(),
	}
	return finishRun(s, meta, rec.Samples(), col, time.Since(start))
}

func finishRun(s *session, meta storage.RunMetadata, samples []storage.Sample, col *metrics.Collector, elapsed time.Duration) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, samples)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("frames: %d  samples: %d  wall: %s\n", meta.Frames, len(samples), elapsed.Round(time.Millisecond))
	values := col.Values()
	for _, name := range col.Names() {
		fmt.Printf("  %-16s %.4f\n", name, values[name])
	}

	if jsonOut != "" {
		f, err := os.Create(jsonOut)
		if err != nil {
			return err
		}
		defer f.Close()
		meta.ID = runID
		if err := storage.ExportJSON(f, meta, samples); err != nil {
			return err
		}
		fmt.Printf("exported: %s\n", jsonOut)
	}
	s.logger.Debug("run saved", "id", runID, "dir", dataDir)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: args[0],
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepN,
		Duration:  sweepTime,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tREBOUND\tSETTLE\tHITS\tFINAL Y\n", strings.ToUpper(args[0]))
	for _, r := range results {
		settle := "-"
		if r.SettleTime >= 0 {
			settle = fmt.Sprintf("%.2fs", r.SettleTime)
		}
		fmt.Fprintf(w, "%.3f\t%.3f\t%s\t%d\t%.3f\n", r.ParamValue, r.Rebound, settle, r.Triggers, r.FinalY)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tDT\tSEED\tSPAWNED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.FixedDt,
			run.Seed,
			run.Spawned,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(samples))

	heights := make(map[string][]export.Point)
	var order []string
	for _, s := range samples {
		if _, ok := heights[s.Handle]; !ok {
			order = append(order, s.Handle)
		}
		heights[s.Handle] = append(heights[s.Handle], export.Point{X: s.Time, Y: s.Position[1]})
	}

	if svgOut != "" {
		series := make([]export.Series, 0, len(order))
		for _, handle := range order {
			series = append(series, export.Series{Name: "object " + handle, Points: heights[handle]})
		}
		if err := os.WriteFile(svgOut, []byte(export.SeriesToSVG(series, 800, 400)), 0644); err != nil {
			return err
		}
		fmt.Printf("svg: %s\n", svgOut)
	}

	const maxPlots = 6
	if len(order) > maxPlots {
		order = order[:maxPlots]
	}

	for _, handle := range order {
		points := heights[handle]
		if len(points) < 2 {
			continue
		}
		data := make([]float64, len(points))
		for i, p := range points {
			data[i] = p.Y
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("object %s height", handle)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, samples)
}
