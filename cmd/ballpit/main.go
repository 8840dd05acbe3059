package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ballpit/internal/automation"
	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/export"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/optim"
	"github.com/san-kum/ballpit/internal/sim"
	"github.com/san-kum/ballpit/internal/storage"
	"github.com/san-kum/ballpit/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	frames     int
	seed       int64
	sampleRate int
	noSave     bool
	numRuns    int
	format     string
	outPath    string
	scale      float64
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	tuneGrid   []string
	tuneMetric string
)

var presetInfo = map[string]string{
	"rain":   "one ball every 10 frames walking along the top edge",
	"pile":   "fast small-ball spawner filling the arena",
	"drop":   "no spawner, gentle gravity, undamped",
	"bounce": "lively balls with impulse response",
}

// main registers the commands and flags and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "ballpit",
		Short:         "2D ball pit physics sandbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ballpit", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "rain", "preset configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and record it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().IntVar(&frames, "frames", 0, "number of frames (default from config)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "spawner seed")
	runCmd.Flags().IntVar(&sampleRate, "sample", 1, "record every Nth frame")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	liveCmd.Flags().Int64Var(&seed, "seed", 0, "spawner seed")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded frame statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export the final snapshot of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "svg", "svg, energy-svg, json, csv or meta")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().Float64Var(&scale, "scale", 1, "svg scale")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-8s %s\n", name, presetInfo[name])
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "run an ensemble of seeds and summarize",
		Args:  cobra.NoArgs,
		RunE:  benchEnsemble,
	}
	benchCmd.Flags().IntVar(&numRuns, "runs", 8, "ensemble size")
	benchCmd.Flags().IntVar(&frames, "frames", 0, "number of frames (default from config)")
	benchCmd.Flags().Int64Var(&seed, "seed", 1, "first seed")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "replay a scripted spawn scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one tunable across a range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "restitution", fmt.Sprintf("parameter %v", automation.SweepParams))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().IntVar(&frames, "frames", 0, "number of frames (default from config)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search tunables to minimise a metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", []string{"substeps=2,4,8", "correction_floor=0.1,0.2,0.4"}, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "max_penetration", "metric to minimise")
	tuneCmd.Flags().IntVar(&frames, "frames", 0, "number of frames (default from config)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd, benchCmd, scenarioCmd, sweepCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves preset, then config file, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if f := cmd.Flags().Lookup("frames"); f != nil && f.Changed {
		cfg.Run.Frames = frames
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Spawn.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)

	opts := []sim.Option{sim.WithLogger(logger)}
	for _, m := range metrics.Standard() {
		opts = append(opts, sim.WithMetric(m))
	}

	var rec *storage.Recorder
	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
		rec, err = st.Begin(preset, sampleRate)
		if err != nil {
			return err
		}
		opts = append(opts, sim.WithObserver(rec))
	}

	s, err := sim.New(cfg.Sim, opts...)
	if err != nil {
		return err
	}
	spawner := sim.NewSpawner(cfg.Spawn)

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("running", "preset", preset, "frames", cfg.Run.Frames, "seed", cfg.Spawn.Seed)
	start := time.Now()

	every := progressEvery(cfg.Run.TickRate)
	err = sim.NewRunner(s, cfg.Run.Dt(), spawner).Run(ctx, cfg.Run.Frames, func(stats dynamo.FrameStats) bool {
		if stats.Frame%every == 0 {
			logger.Debug("progress", "stats", stats)
		}
		return true
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed %d frames in %v\n", s.Frame(), elapsed)
	fmt.Printf("balls: %d\n", s.Len())

	if rec != nil {
		runID, err := rec.Finish(storage.RunMetadata{
			Preset:   preset,
			Seed:     cfg.Spawn.Seed,
			Dt:       cfg.Run.Dt(),
			Frames:   s.Frame(),
			Substeps: cfg.Sim.Substeps,
			Arena:    cfg.Sim.Arena,
			Metrics:  s.Metrics(),
		}, s.Snapshot(), cfg)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	printMetrics(s.Metrics())
	return nil
}

// progressEvery is the number of frames between progress logs: about one
// simulated second, and never less than one frame.
func progressEvery(tickRate float64) int {
	return max(int(tickRate), 1)
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stderr belongs to the terminal UI; debug logs go to a file.
	logger := slog.New(slog.DiscardHandler)
	if verbose {
		f, err := tea.LogToFile("ballpit.log", "")
		if err != nil {
			return err
		}
		defer f.Close()
		logger = newLogger(f)
	}

	m, err := viz.NewModel(cfg, preset, logger)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
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
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tFRAMES\tBALLS\tSEED\tSUBSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Particles,
			run.Seed,
			run.Substeps,
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

	records, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(records))

	series := []struct {
		caption string
		value   func(storage.FrameRecord) float64
	}{
		{"kinetic energy", func(r storage.FrameRecord) float64 { return r.KineticEnergy }},
		{"balls", func(r storage.FrameRecord) float64 { return float64(r.Particles) }},
		{"contacts", func(r storage.FrameRecord) float64 { return float64(r.Contacts) }},
		{"max penetration", func(r storage.FrameRecord) float64 { return r.MaxPenetration }},
	}

	for _, s := range series {
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = s.value(r)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if format == "meta" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}
	if format == "energy-svg" {
		records, err := st.LoadFrames(runID)
		if err != nil {
			return err
		}
		energy := make([]float64, len(records))
		for i, r := range records {
			energy[i] = r.KineticEnergy
		}
		_, err = io.WriteString(out, export.SeriesToSVG(energy, 800, 300, "#00ff88"))
		return err
	}

	bodies, err := st.LoadSnapshot(runID)
	if err != nil {
		return err
	}

	switch format {
	case "svg":
		_, err = io.WriteString(out, export.SnapshotToSVG(bodies, meta.Arena, scale))
	case "json":
		err = export.WriteJSON(out, meta.Arena, meta.Frames, bodies)
	case "csv":
		err = export.WriteCSV(out, bodies)
	default:
		err = fmt.Errorf("unknown format: %s", format)
	}
	return err
}

func benchEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("runs must be positive, got %d", numRuns)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("benchmarking %s: %d runs x %d frames\n\n", preset, numRuns, cfg.Run.Frames)

	start := time.Now()
	results, err := sim.NewEnsemble(cfg, numRuns, seed).
		WithLogger(newLogger(os.Stderr)).
		WithMetrics(metrics.Standard).
		Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tFRAMES\tBALLS\tCONTACTS\tENERGY\tSETTLED")

	balls := make([]float64, len(results))
	energy := make([]float64, len(results))
	for i, r := range results {
		balls[i] = float64(len(r.Bodies))
		energy[i] = r.Metrics["energy"]
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.2f\t%.2f\n",
			r.Seed, r.Frames, len(r.Bodies), r.Final.Contacts, energy[i], r.Metrics["settled"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	totalFrames := 0
	for _, r := range results {
		totalFrames += r.Frames
	}
	fmt.Printf("\n%d frames in %v (%.0f frames/sec)\n", totalFrames, elapsed, float64(totalFrames)/elapsed.Seconds())

	for _, row := range []struct {
		name string
		xs   []float64
	}{{"energy", energy}, {"balls", balls}} {
		s := metrics.Summarize(row.xs)
		fmt.Printf("%-7s mean=%.3f std=%.3f min=%.3f median=%.3f max=%.3f\n",
			row.name, s.Mean, s.StdDev, s.Min, s.Median, s.Max)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)

	opts := []sim.Option{sim.WithLogger(logger)}
	var rec *storage.Recorder
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if rec, err = st.Begin(sc.Name, 1); err != nil {
			return err
		}
		opts = append(opts, sim.WithObserver(rec))
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("scenario", "name", sc.Name, "events", len(sc.Events))
	res, err := automation.RunScenario(ctx, sc, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("scenario %s: %d frames, %d balls\n", res.Name, res.Final.Frame, len(res.Bodies))

	if rec != nil {
		cfg := res.Config
		runID, err := rec.Finish(storage.RunMetadata{
			Preset:   sc.Name,
			Dt:       cfg.Run.Dt(),
			Frames:   res.Final.Frame,
			Substeps: cfg.Sim.Substeps,
			Arena:    cfg.Sim.Arena,
			Metrics:  res.Metrics,
		}, res.Bodies, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	printMetrics(res.Metrics)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Preset:   preset,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
		Frames:   frames,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tBALLS\tENERGY\tPENETRATION\tWALL HITS\tSETTLED\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%d\t%.2f\t%.4f\t%.2f\t%.2f\n",
			r.ParamValue, r.Particles,
			r.Metrics["energy"], r.Metrics["max_penetration"], r.Metrics["wall_hits"], r.Metrics["settled"])
	}
	return w.Flush()
}

func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want name=v1,v2", entry)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad grid value in %q: %w", entry, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	g := optim.NewGridSearch(names, ranges)
	best, val, err := g.Search(ctx, cfg, tuneMetric)
	if err != nil {
		return err
	}

	fmt.Printf("%d trials, best %s = %.6f\n", g.Trials(), tuneMetric, val)
	for _, name := range names {
		fmt.Printf("  %s: %v\n", name, best[name])
	}
	return nil
}
