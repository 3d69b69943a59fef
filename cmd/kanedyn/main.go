package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/kanedyn/internal/analysis"
	"github.com/san-kum/kanedyn/internal/codegen"
	"github.com/san-kum/kanedyn/internal/config"
	"github.com/san-kum/kanedyn/internal/dynamo"
	"github.com/san-kum/kanedyn/internal/export"
	"github.com/san-kum/kanedyn/internal/expr"
	"github.com/san-kum/kanedyn/internal/pipeline"
	"github.com/san-kum/kanedyn/internal/storage"
	"github.com/san-kum/kanedyn/internal/tui"
	"github.com/san-kum/kanedyn/internal/viz"
)

var (
	dataDir    string
	configFile string
	presetName string
	notation   string
	timeout    time.Duration
	noVerify   bool
	verbose    bool
	themeName  string
	sets       []string
	noSave     bool

	jsonOut   bool
	outPath   string
	lang      string
	pkgName   string
	sweepSym  string
	sweepMin  float64
	sweepMax  float64
	steps     int
	resultIdx int
	phaseX    string
	phaseY    string
	yMin      float64
	yMax      float64
	listMechs bool
)

var registry = pipeline.NewRegistry()

func main() {
	rootCmd := &cobra.Command{
		Use:          "kanedyn",
		Short:        "symbolic equations of motion by Kane's method",
		Long:         "kanedyn derives, reduces and compiles equations of motion.\nmechanisms: " + strings.Join(registry.List(), ", "),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kanedyn", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&presetName, "preset", "", "named parameter preset")
	rootCmd.PersistentFlags().StringVar(&notation, "notation", "mechanics", "printer: mechanics, plain, latex")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "reduction budget")
	rootCmd.PersistentFlags().BoolVar(&noVerify, "no-verify", false, "skip the M·ẋ = f identity check")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "cyberpunk", "theme: "+strings.Join(viz.ThemeNames(), ", "))
	rootCmd.PersistentFlags().StringArrayVar(&sets, "set", nil, "bind a symbol, name=value (repeatable)")

	deriveCmd := &cobra.Command{
		Use:   "derive [mechanism]",
		Short: "derive and reduce the equations of motion",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDerive,
	}
	deriveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	routineCmd := &cobra.Command{
		Use:   "routine [mechanism]",
		Short: "show the routine descriptor",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showRoutine,
	}
	routineCmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")

	evalCmd := &cobra.Command{
		Use:   "eval [mechanism]",
		Short: "evaluate ẋ at the bound state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  evaluate,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [mechanism]",
		Short: "sweep one argument and plot an entry of ẋ",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweep,
	}
	sweepCmd.Flags().StringVar(&sweepSym, "symbol", "", "swept argument")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", config.DefaultSweepMin, "sweep start")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", config.DefaultSweepMax, "sweep end")
	sweepCmd.Flags().IntVar(&steps, "steps", config.DefaultSweepSteps, "sample count")
	sweepCmd.Flags().IntVar(&resultIdx, "result", -1, "plotted entry of ẋ, negative counts from the end")
	sweepCmd.Flags().StringVar(&outPath, "out", "", "also write a chart (.png, .svg, .pdf)")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the sweep")

	verifyCmd := &cobra.Command{
		Use:   "verify [mechanism]",
		Short: "check the reduced form and compare against a reference model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  verify,
	}

	codegenCmd := &cobra.Command{
		Use:   "codegen [mechanism]",
		Short: "emit Go or C source for the routine",
		Args:  cobra.MaximumNArgs(1),
		RunE:  generate,
	}
	codegenCmd.Flags().StringVar(&lang, "lang", "go", "go or c")
	codegenCmd.Flags().StringVar(&pkgName, "pkg", "dynamics", "Go package name")
	codegenCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}
	listCmd.Flags().BoolVar(&listMechs, "mechanisms", false, "list mechanisms instead")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [mechanism]",
		Short: "export equations, routine and values as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [mechanism]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := registry.List()
			if len(args) > 0 {
				names = args[:1]
			}
			for _, name := range names {
				presets := config.ListPresets(name)
				if len(presets) == 0 {
					continue
				}
				fmt.Printf("%s:\n", name)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [mechanism]",
		Short: "draw the direction field of two states",
		Args:  cobra.MaximumNArgs(1),
		RunE:  phase,
	}
	phaseCmd.Flags().StringVar(&phaseX, "x", "q1", "horizontal state")
	phaseCmd.Flags().StringVar(&phaseY, "y", "u1", "vertical state")
	phaseCmd.Flags().Float64Var(&sweepMin, "xmin", config.DefaultSweepMin, "horizontal start")
	phaseCmd.Flags().Float64Var(&sweepMax, "xmax", config.DefaultSweepMax, "horizontal end")
	phaseCmd.Flags().Float64Var(&yMin, "ymin", -3, "vertical start")
	phaseCmd.Flags().Float64Var(&yMax, "ymax", 3, "vertical end")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "browse and evaluate equations interactively",
		RunE:  explore,
	}

	rootCmd.AddCommand(deriveCmd, routineCmd, evalCmd, sweepCmd, verifyCmd, codegenCmd, listCmd, showCmd, exportJSONCmd, presetsCmd, phaseCmd, exploreCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// settings layers defaults, config file, preset and changed flags.
func settings(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Mechanism = args[0]
	}
	if presetName != "" {
		p := config.GetPreset(cfg.Mechanism, presetName)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s (have %v)", presetName, cfg.Mechanism, config.ListPresets(cfg.Mechanism))
		}
		cfg.Apply(p)
	}

	flags := cmd.Flags()
	if flags.Changed("notation") || configFile == "" {
		cfg.Notation = notation
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("no-verify") {
		cfg.Verify = !noVerify
	}
	for _, s := range sets {
		name, val, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want name=value", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", s, err)
		}
		cfg.Set(strings.TrimSpace(name), v)
	}
	return cfg, nil
}

func format(cfg *config.Config) (expr.Format, error) {
	n, ok := expr.ParseNotation(cfg.Notation)
	if !ok {
		return expr.Format{}, fmt.Errorf("unknown notation %q", cfg.Notation)
	}
	return expr.Format{Notation: n}, nil
}

func derive(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pipeline.Result, error) {
	m, err := registry.Get(cfg.Mechanism)
	if err != nil {
		return nil, fmt.Errorf("%w (have %v)", err, registry.List())
	}
	return pipeline.Derive(ctx, m, pipeline.Options{Timeout: cfg.Timeout, Verify: cfg.Verify, Logger: log})
}

// prepare resolves settings and runs the pipeline.
func prepare(cmd *cobra.Command, args []string) (*config.Config, *pipeline.Result, error) {
	cfg, err := settings(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	res, err := derive(cmd.Context(), cfg, newLogger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, res, nil
}

func timings(res *pipeline.Result) map[string]float64 {
	t := res.Timings
	return map[string]float64{
		"kane":    t.Kane.Seconds(),
		"reduce":  t.Reduce.Seconds(),
		"verify":  t.Verify.Seconds(),
		"compile": t.Compile.Seconds(),
	}
}

func saveRun(cfg *config.Config, res *pipeline.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	var states []string
	for _, s := range res.Reduced.States {
		states = append(states, s.Name())
	}
	meta := storage.RunMetadata{
		Mechanism: cfg.Mechanism,
		Notation:  cfg.Notation,
		States:    states,
		Arguments: res.Routine.ArgumentNames(),
		Ops:       res.Reduced.Ops(),
		Verified:  cfg.Verify,
		Bindings:  cfg.Bindings(),
		Timings:   timings(res),
	}
	f, err := format(cfg)
	if err != nil {
		return "", err
	}
	return st.Save(meta, res.Lines(f), res.Routine)
}

func runDerive(cmd *cobra.Command, args []string) error {
	cfg, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	f, err := format(cfg)
	if err != nil {
		return err
	}
	styles := viz.NewStyles(viz.GetTheme(themeName))

	fmt.Println(styles.Equations(res.Mechanism.Name, res.Lines(f)))
	rows := [][2]string{
		{"states", strconv.Itoa(len(res.Reduced.States))},
		{"kane ops", strconv.Itoa(res.System.Ops())},
		{"reduced ops", strconv.Itoa(res.Reduced.Ops())},
		{"arguments", strings.Join(res.Routine.ArgumentNames(), " ")},
		{"verified", strconv.FormatBool(cfg.Verify)},
		{"reduce", res.Timings.Reduce.Round(time.Millisecond).String()},
	}
	if smoke, err := res.Smoke(); err == nil {
		vals := make([]string, len(smoke))
		for i, e := range smoke {
			vals[i] = f.Expr(e)
		}
		rows = append(rows, [2]string{"smoke", "[" + strings.Join(vals, ", ") + "]"})
	}
	fmt.Println(styles.Table(rows))

	if noSave {
		return nil
	}
	id, err := saveRun(cfg, res)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun saved: %s\n", id)
	return nil
}

func showRoutine(cmd *cobra.Command, args []string) error {
	cfg, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	if jsonOut {
		data, err := res.Routine.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	f, err := format(cfg)
	if err != nil {
		return err
	}
	return writeRoutine(os.Stdout, res.Routine, f)
}

// writeRoutine prints the three lists of a routine descriptor.
func writeRoutine(w io.Writer, rt *codegen.Routine, f expr.Format) error {
	vars := rt.ResultVars()
	fmt.Fprintf(w, "routine:   %s\n", rt.Name())
	fmt.Fprintf(w, "results:   %s\n", strings.Join(vars, " "))
	fmt.Fprintf(w, "arguments: %s\n", strings.Join(rt.ArgumentNames(), " "))
	fmt.Fprintln(w, "expressions:")
	for i, e := range rt.ResultExprs() {
		if _, err := fmt.Fprintf(w, "  %s = %s\n", vars[i], f.Expr(e)); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(cmd *cobra.Command, args []string) error {
	cfg, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	bindings := cfg.Bindings()
	vals, err := res.Evaluate(bindings)
	if err != nil {
		return err
	}
	f, err := format(cfg)
	if err != nil {
		return err
	}
	styles := viz.NewStyles(viz.GetTheme(themeName))

	var rows [][2]string
	for i, r := range res.Reduced.Rates {
		rows = append(rows, [2]string{f.Symbol(r), strconv.FormatFloat(vals[i], 'g', 10, 64)})
	}
	outs, err := res.Outputs(bindings)
	if err != nil {
		return err
	}
	for _, o := range outs {
		rows = append(rows, [2]string{o.Name, strconv.FormatFloat(o.Value, 'g', 10, 64)})
	}
	fmt.Println(styles.Table(rows))
	return nil
}

func sweep(cmd *cobra.Command, args []string) error {
	cfg, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		cfg.Sweep.Symbol = sweepSym
	}
	if flags.Changed("min") {
		cfg.Sweep.Min = sweepMin
	}
	if flags.Changed("max") {
		cfg.Sweep.Max = sweepMax
	}
	if flags.Changed("steps") {
		cfg.Sweep.Steps = steps
	}
	if flags.Changed("result") {
		cfg.Sweep.Result = resultIdx
	}

	names := res.Routine.ArgumentNames()
	index := slices.Index(names, cfg.Sweep.Symbol)
	if index < 0 {
		return fmt.Errorf("%s is not an argument of %s (have %v)", cfg.Sweep.Symbol, res.Mechanism.Name, names)
	}
	base, err := res.Arguments(cfg.Bindings())
	if err != nil {
		return err
	}
	points, err := analysis.Sweep(res.Callable, base, index, cfg.Sweep.Min, cfg.Sweep.Max, cfg.Sweep.Steps)
	if err != nil {
		return err
	}

	vars := res.Routine.ResultVars()
	col := cfg.Sweep.Result
	if col < 0 {
		col += len(vars)
	}
	if col < 0 || col >= len(vars) {
		return fmt.Errorf("result index %d out of range for %d rates", cfg.Sweep.Result, len(vars))
	}
	ys := analysis.Column(points, col)
	fmt.Println(asciigraph.Plot(ys,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s vs %s over [%g, %g]", vars[col], cfg.Sweep.Symbol, cfg.Sweep.Min, cfg.Sweep.Max)),
	))

	if outPath != "" {
		p, err := export.SweepPlot(res.Mechanism.Name, cfg.Sweep.Symbol, vars[col],
			[]export.Series{{Name: vars[col], X: analysis.Params(points), Y: ys}})
		if err != nil {
			return err
		}
		if err := export.Save(p, 6, 4, 150, outPath); err != nil {
			return err
		}
		fmt.Printf("chart written: %s\n", outPath)
	}

	if noSave {
		return nil
	}
	id, err := saveRun(cfg, res)
	if err != nil {
		return err
	}
	header := append([]string{cfg.Sweep.Symbol}, vars...)
	if err := storage.New(dataDir).SaveSweep(id, cfg.Sweep.Symbol, header, analysis.Rows(points)); err != nil {
		return err
	}
	fmt.Printf("sweep saved: %s\n", id)
	return nil
}

func verify(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd, args)
	if err != nil {
		return err
	}
	cfg.Verify = true
	res, err := derive(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}
	fmt.Printf("identity M·ẋ = f: ok (%s)\n", res.Timings.Verify.Round(time.Millisecond))

	rank, err := res.System.NumericRank(cfg.Check.Samples, cfg.Seed)
	if err != nil {
		return err
	}
	fmt.Printf("mass matrix rank: %d of %d\n", rank, res.System.MassMatrixFull().Rows())

	bindings := cfg.Bindings()
	ref, ok, err := registry.Reference(cfg.Mechanism, bindings)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("no reference model for %s\n", cfg.Mechanism)
		return nil
	}
	model, err := res.Model(bindings)
	if err != nil {
		return err
	}
	states := analysis.RandomStates(cfg.Check.Samples, model.StateDim(), cfg.Check.Scale, cfg.Seed)
	report, err := analysis.Compare(model, ref, states, cfg.Check.Tolerance)
	if err != nil {
		if report != nil && report.Worst != nil {
			fmt.Printf("worst state: %v\n", report.Worst)
		}
		return err
	}
	fmt.Printf("reference: %d states, max difference %.3g, max residual norm %.3g\n", report.Samples, report.MaxDiff, report.MaxNorm)

	if h, ok := ref.(dynamo.Hamiltonian); ok {
		x0, err := res.State(bindings)
		if err != nil {
			return err
		}
		fmt.Printf("reference energy at %v: %.6g\n", x0, h.Energy(x0))
	}
	return nil
}

func generate(cmd *cobra.Command, args []string) error {
	_, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch lang {
	case "go":
		return res.Routine.WriteGo(w, pkgName)
	case "c":
		return res.Routine.WriteC(w)
	default:
		return fmt.Errorf("unknown language %q (want go or c)", lang)
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	if listMechs {
		for _, name := range registry.List() {
			m, err := registry.Get(name)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %s\n", name, m.Description)
		}
		return nil
	}

	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMECHANISM\tSTATES\tOPS\tVERIFIED\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\t%s\n",
			r.ID, r.Mechanism, len(r.States), r.Ops, r.Verified,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	lines, err := st.LoadEquations(args[0])
	if err != nil {
		return err
	}
	styles := viz.NewStyles(viz.GetTheme(themeName))
	fmt.Println(styles.Equations(meta.ID, lines))

	rows := [][2]string{
		{"mechanism", meta.Mechanism},
		{"notation", meta.Notation},
		{"states", strings.Join(meta.States, " ")},
		{"arguments", strings.Join(meta.Arguments, " ")},
		{"ops", strconv.Itoa(meta.Ops)},
		{"verified", strconv.FormatBool(meta.Verified)},
	}
	for _, stage := range []string{"kane", "reduce", "verify", "compile"} {
		if t, ok := meta.Timings[stage]; ok {
			rows = append(rows, [2]string{stage, fmt.Sprintf("%.3fs", t)})
		}
	}
	fmt.Println(styles.Table(rows))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	cfg, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	f, err := format(cfg)
	if err != nil {
		return err
	}
	bindings := cfg.Bindings()
	vals, err := res.Evaluate(bindings)
	if err != nil {
		return err
	}

	data := &storage.ExportData{
		Mechanism: res.Mechanism.Name,
		Notation:  cfg.Notation,
		Routine:   res.Routine,
		Bindings:  bindings,
		Values:    vals,
	}
	for _, s := range res.Reduced.States {
		data.States = append(data.States, s.Name())
	}
	for i, r := range res.Reduced.Rates {
		data.Equations = append(data.Equations, storage.Equation{Rate: f.Symbol(r), Expr: f.Expr(res.Reduced.RHS[i])})
	}
	for _, o := range res.Mechanism.Outputs {
		data.Outputs = append(data.Outputs, storage.Equation{Rate: o.Name, Expr: f.Expr(o.Expr)})
	}

	if outPath != "" {
		return storage.ExportJSON(outPath, data)
	}
	return storage.ExportJSONTo(os.Stdout, data)
}

func phase(cmd *cobra.Command, args []string) error {
	cfg, res, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	var names []string
	for _, s := range res.Reduced.States {
		names = append(names, s.Name())
	}
	xi, yi := slices.Index(names, phaseX), slices.Index(names, phaseY)
	if xi < 0 || yi < 0 {
		return fmt.Errorf("phase axes %s, %s must be states of %s (have %v)", phaseX, phaseY, res.Mechanism.Name, names)
	}

	bindings := cfg.Bindings()
	model, err := res.Model(bindings)
	if err != nil {
		return err
	}
	x0, err := res.State(bindings)
	if err != nil {
		return err
	}
	field, err := analysis.GeneratePhaseField(model, x0, xi, yi, sweepMin, sweepMax, yMin, yMax, 40, 20)
	if err != nil {
		return err
	}
	fmt.Printf("%s (horizontal) vs %s (vertical)\n", phaseX, phaseY)
	fmt.Print(analysis.PhaseFieldToASCII(field))
	return nil
}

func explore(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd, args)
	if err != nil {
		return err
	}
	f, err := format(cfg)
	if err != nil {
		return err
	}
	deriveFn := func(ctx context.Context, name string) (*pipeline.Result, error) {
		c := *cfg
		c.Mechanism = name
		// logs would tear the alternate screen
		return derive(ctx, &c, nil)
	}
	return tui.RunExplorer(registry.List(), deriveFn, f, viz.GetTheme(themeName))
}
