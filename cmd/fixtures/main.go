package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/excel"
	"github.com/derekprior/fixtures/internal/fixture"
	"github.com/derekprior/fixtures/internal/logging"
	"github.com/derekprior/fixtures/internal/pipeline"
	"github.com/derekprior/fixtures/internal/schedule"
	"github.com/derekprior/fixtures/internal/standings"
	"github.com/derekprior/fixtures/internal/store"
	"github.com/derekprior/fixtures/internal/tournament"
	"github.com/derekprior/fixtures/internal/validator"
)

const defaultConfigFile = "config.yaml"

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

type generateFlags struct {
	output  string
	start   string
	preview bool
	dsn     string
	verbose bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Round-robin fixture generator and scheduler",
	}

	var configFile string
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: config.yaml in current directory)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	var gf generateFlags
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate and schedule fixtures from a config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), configPath, gf)
		},
	}
	generateCmd.Flags().StringVarP(&gf.output, "output", "o", "fixtures.xlsx", "Output Excel file path")
	generateCmd.Flags().StringVar(&gf.start, "start", "", "First date to schedule from, YYYY-MM-DD (default: tournament start_date)")
	generateCmd.Flags().BoolVar(&gf.preview, "preview", false, "Generate and validate rounds without scheduling them")
	generateCmd.Flags().StringVar(&gf.dsn, "db", "", "Database to store the schedule in (sqlite path or postgres:// URL)")
	generateCmd.Flags().BoolVarP(&gf.verbose, "verbose", "v", false, "Log each pipeline stage")

	validateCmd := &cobra.Command{
		Use:          "validate <fixtures.xlsx>",
		Short:        "Validate a fixtures workbook against config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runValidate(configPath, args[0])
		},
	}

	standingsCmd := &cobra.Command{
		Use:          "standings <fixtures.xlsx>",
		Short:        "Compute the league table from scores entered in the workbook",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runStandings(configPath, args[0])
		},
	}

	var addr string
	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the JSON HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: :$PORT)")

	rootCmd.AddCommand(initCmd, generateCmd, validateCmd, standingsCmd, serveCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

func loadTournament(configPath string) (*tournament.Tournament, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return tournament.New(cfg)
}

func runGenerate(ctx context.Context, configPath string, flags generateFlags) error {
	t, err := loadTournament(configPath)
	if err != nil {
		return err
	}
	cfg := t.Config()

	var start time.Time
	if flags.start != "" {
		if start, err = time.Parse("2006-01-02", flags.start); err != nil {
			return fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", flags.start)
		}
	}

	p := &pipeline.Pipeline{}
	if flags.verbose {
		p.Logger = logging.NewLogger(logging.Config{Level: "debug"})
	}
	if flags.dsn != "" {
		st, err := store.Open(flags.dsn)
		if err != nil {
			return err
		}
		defer st.Close()
		p.Store = st
	}

	opts := fixture.OptionsFromConfig(cfg.Options)
	opts.PreviewOnly = opts.PreviewOnly || flags.preview

	fmt.Printf("Generating fixtures for %d teams, %d leg(s): %d matches expected...\n",
		len(t.TeamIDs()), t.Legs(), t.ExpectedMatches())

	report, err := p.Run(ctx, t, opts, start)
	if errors.Is(err, pipeline.ErrInvalidFixtures) {
		for _, e := range report.Validation.Errors {
			fmt.Fprintf(os.Stderr, "✗ %s\n", e)
		}
		return err
	}
	if err != nil {
		return err
	}

	printWarnings(report.Validation.Warnings)

	if opts.PreviewOnly {
		printRounds(report.Rounds)
		return nil
	}

	result := report.Result
	total := len(result.Scheduled) + len(result.Unscheduled)
	if result.Success {
		fmt.Printf("✓ All %d matches scheduled\n", total)
	} else {
		fmt.Fprintf(os.Stderr, "⚠ %d of %d matches scheduled\n", len(result.Scheduled), total)
		fmt.Fprintf(os.Stderr, "\nGenerating partial schedule...\n")
	}

	fmt.Println("\nPer Team Metrics:")
	fmt.Printf("  %-15s %7s %4s %4s %7s\n", "Team", "Matches", "Home", "Away", "Derbies")
	for _, team := range t.TeamIDs() {
		m := result.TeamMetrics[team]
		fmt.Printf("  %-15s %7d %4d %4d %7d\n", team, m.Matches, m.Home, m.Away, m.Derbies)
	}

	if len(result.Conflicts) > 0 {
		fmt.Printf("\nConflicts (%d):\n", len(result.Conflicts))
		for _, c := range result.Conflicts {
			fmt.Printf("  ✗ %s\n", c.Detail)
		}
	}
	fmt.Printf("\nQuality score: %.1f/100 (attempt %d)\n", result.Score, result.Attempt+1)

	from := start
	if from.IsZero() {
		from = cfg.Tournament.StartDate.Time
	}
	blackouts := schedule.GenerateBlackoutSlots(cfg, from, cfg.Horizon())
	f, err := excel.Generate(t, result, blackouts)
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}
	if err := f.SaveAs(flags.output); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	fmt.Printf("\n✓ Fixtures saved to %s\n", flags.output)
	if report.Persisted {
		fmt.Printf("✓ Fixtures stored in %s\n", flags.dsn)
	}

	if !result.Success {
		return fmt.Errorf("schedule is incomplete: %d of %d matches scheduled", len(result.Scheduled), total)
	}
	return nil
}

func printWarnings(warnings []string) {
	if len(warnings) == 0 {
		fmt.Println("✓ Fixture structure valid")
		return
	}
	fmt.Printf("Fixture warnings (%d):\n", len(warnings))
	for _, w := range warnings {
		fmt.Printf("  ⚠ %s\n", w)
	}
}

func printRounds(rounds []fixture.Round) {
	for _, r := range rounds {
		fmt.Printf("\nRound %d (leg %d)\n", r.Number, r.Leg)
		for _, m := range r.Matches {
			marker := ""
			if m.Derby {
				marker = " (derby)"
			}
			fmt.Printf("  %s vs %s%s\n", m.Home, m.Away, marker)
		}
	}
}

func runValidate(configPath, fixturesPath string) error {
	t, err := loadTournament(configPath)
	if err != nil {
		return err
	}

	violations, err := validator.Validate(t, fixturesPath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errs := 0
	warnings := 0
	for _, v := range violations {
		where := ""
		if v.Row > 0 {
			where = fmt.Sprintf(" (row %d)", v.Row)
		}
		switch v.Type {
		case "error":
			errs++
			fmt.Printf("✗ Rule violation: %s%s\n", v.Message, where)
		case "warning":
			warnings++
			fmt.Printf("⚠ Guideline violation: %s%s\n", v.Message, where)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d guideline violations\n", errs, warnings)

	// Regenerate team sheets from the fixture list
	if err := excel.UpdateTeamSheets(fixturesPath, t); err != nil {
		return fmt.Errorf("updating team sheets: %w", err)
	}
	fmt.Printf("✓ Team sheets updated in %s\n", fixturesPath)

	if errs > 0 {
		return fmt.Errorf("%d rule violations found", errs)
	}
	return nil
}

func runStandings(configPath, fixturesPath string) error {
	t, err := loadTournament(configPath)
	if err != nil {
		return err
	}

	f, err := excelize.OpenFile(fixturesPath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	rows, err := excel.ReadFixtures(f)
	f.Close()
	if err != nil {
		return err
	}

	results := excel.Results(rows)
	table, warnings := standings.ComputeWithWarnings(t.TeamIDs(), results, t.Config().StandingsPoints())
	for _, w := range warnings {
		fmt.Printf("⚠ %s\n", w)
	}

	fmt.Printf("%d of %d matches played\n\n", len(results), len(rows))
	fmt.Printf("  %3s %-15s %3s %3s %3s %3s %4s %4s %4s %4s  %s\n",
		"Pos", "Team", "P", "W", "D", "L", "GF", "GA", "GD", "Pts", "Form")
	for _, r := range table {
		fmt.Printf("  %3d %-15s %3d %3d %3d %3d %4d %4d %+4d %4d  %s\n",
			r.Position, r.Team, r.Played, r.Won, r.Drawn, r.Lost,
			r.GoalsFor, r.GoalsAgainst, r.GoalDiff, r.Points, strings.Join(r.Form, ""))
	}

	if err := excel.WriteStandings(fixturesPath, table); err != nil {
		return fmt.Errorf("writing standings: %w", err)
	}
	fmt.Printf("\n✓ Standings written to %s\n", fixturesPath)
	return nil
}
