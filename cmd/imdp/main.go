package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/imdp/internal/config"
	"github.com/san-kum/imdp/internal/experiment"
	"github.com/san-kum/imdp/internal/noise"
	"github.com/san-kum/imdp/internal/storage"
	"github.com/san-kum/imdp/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	live       bool
	verbose    bool
	horizon    int
	optimistic bool
	workers    int
	seed       int64
	bestEffort bool
	noiseType  string
	outFile    string
	initModel  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "imdp",
		Short:        "interval MDP abstraction and reach-avoid controller synthesis",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".imdp", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	synthCmd := &cobra.Command{
		Use:   "synth [model]",
		Short: "abstract a model and synthesize a controller",
		Args:  cobra.ExactArgs(1),
		RunE:  runSynthesis,
	}
	addProblemFlags(synthCmd)
	synthCmd.Flags().BoolVar(&live, "live", false, "show live progress")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [model]",
		Short: "synthesize and write grid, transitions and controller as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	addProblemFlags(exportJSONCmd)
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a problem file",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&initModel, "model", "vanderpol", "model")
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	rootCmd.AddCommand(synthCmd, exportJSONCmd, listCmd, showCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "problem file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&horizon, "horizon", config.DefaultHorizon, "finite horizon, 0 for infinite")
	cmd.Flags().BoolVar(&optimistic, "optimistic", false, "optimistic resolution")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count, 0 for every CPU")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "monte carlo seed")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "replace failed rows by vacuous intervals")
	cmd.Flags().StringVar(&noiseType, "noise", string(noise.Normal), "noise integration (normal, custom)")
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// problemConfig resolves the defaults, a preset, a problem file and the
// command line flags, in increasing priority.
func problemConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if loaded.Model != model {
			return nil, fmt.Errorf("config is for model %s, not %s", loaded.Model, model)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("optimistic") {
		cfg.Pessimistic = !optimistic
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("best-effort") {
		cfg.BestEffort = bestEffort
	}
	if flags.Changed("noise") {
		cfg.Noise = noise.Type(noiseType)
	}
	return cfg, cfg.Validate()
}

// execute builds the model of cfg and runs the pipeline. tune may adjust
// the experiment settings before the run.
func execute(ctx context.Context, cfg *config.Config, log *slog.Logger, tune func(*experiment.Config)) (*experiment.Run, map[string]float64, error) {
	registry := experiment.NewRegistry()
	model, err := registry.Get(cfg.Model)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyParams(model); err != nil {
		return nil, nil, err
	}
	problem, err := model.Problem()
	if err != nil {
		return nil, nil, err
	}

	expCfg := cfg.Experiment()
	expCfg.Logger = log
	if tune != nil {
		tune(&expCfg)
	}
	run, err := experiment.Execute(ctx, problem, expCfg)
	return run, model.GetParams(), err
}

func runSynthesis(cmd *cobra.Command, args []string) error {
	cfg, err := problemConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		run    *experiment.Run
		params map[string]float64
	)
	if live {
		// the terminal belongs to the progress view
		log := newLogger(io.Discard)
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		final, liveErr := viz.RunLive(fmt.Sprintf("synthesizing %s", cfg.Model), func(r viz.Reporter) error {
			r.Phase("abstraction")
			var runErr error
			run, params, runErr = execute(ctx, cfg, log, func(c *experiment.Config) {
				c.Abstraction.Progress = r.Units
				c.Synthesis.Observers = append(c.Synthesis.Observers, phaseOnce(r, "synthesis"), r)
			})
			return runErr
		})
		if errors.Is(liveErr, viz.ErrInterrupted) {
			cancel()
			return liveErr
		}
		err = liveErr
		if chart := viz.ResidualChart(final.Residuals(), 60, 8); chart != "" {
			fmt.Println(chart)
			fmt.Println()
		}
	} else {
		fmt.Printf("synthesizing %s...\n", cfg.Model)
		run, params, err = execute(ctx, cfg, newLogger(os.Stderr), nil)
	}

	if err != nil {
		// a canceled finite horizon run still carries a usable controller
		if run == nil || run.Result == nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	runID, err := st.Save(params, cfg.Seed, run)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	fmt.Println(viz.Summary(*meta))
	return nil
}

type phaseObserver struct {
	r    viz.Reporter
	name string
	sent bool
}

func phaseOnce(r viz.Reporter, name string) *phaseObserver {
	return &phaseObserver{r: r, name: name}
}

func (p *phaseObserver) OnIteration(int, float64) {
	if !p.sent {
		p.sent = true
		p.r.Phase(p.name)
	}
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tHORIZON\tRESOLUTION\tSTATUS\tITER\tSTATES")

	for _, run := range runs {
		h := "inf"
		if run.Horizon > 0 {
			h = fmt.Sprintf("%d", run.Horizon)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			h,
			run.Resolution,
			run.Status,
			run.Iterations,
			run.States,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	fmt.Println(viz.Summary(*meta))

	entries, err := st.LoadController(runID)
	if err != nil {
		return err
	}

	values := make([]float64, meta.States)
	for _, e := range entries {
		if e.Step == 0 && e.State >= 0 && e.State < len(values) {
			values[e.State] = e.Value
		}
	}
	fmt.Println()
	fmt.Println(viz.ValueChart(values, "satisfaction probability by state", 70, 12))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := experiment.NewRegistry().ListModels()
	if len(args) == 1 {
		names = args
	}
	for _, model := range names {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", model)
			continue
		}
		fmt.Printf("presets for %s:\n", model)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	cfg.Model = initModel
	if preset != "" {
		cfg = config.GetPreset(initModel, preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(initModel))
		}
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	cfg, err := problemConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run, _, err := execute(ctx, cfg, newLogger(os.Stderr), nil)
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, run)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
