package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lazypower/momentum/internal/client"
	"github.com/lazypower/momentum/internal/config"
	"github.com/lazypower/momentum/internal/engine"
	"github.com/lazypower/momentum/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const cmdTimeout = 30 * time.Second

// openDB opens the database for CLI commands. $MOMENTUM_DB is already
// folded into cfg by config.Load.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// openEngine loads config and opens an engine over the local database.
// The caller closes the returned DB.
func openEngine() (*engine.Engine, *store.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return engine.New(db, cfg), db, nil
}

// resolveUser accepts a user ID or a handle.
func resolveUser(ctx context.Context, db *store.DB, ref string) (*store.User, error) {
	u, err := db.GetUser(ctx, ref)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return db.GetUserByHandle(ctx, ref)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- config command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println("# Effective configuration (defaults + file + environment)")
		fmt.Print(string(data))
		return nil
	},
}

// --- user command ---

var userName string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <handle>",
	Short: "Register a user (no-op if the handle exists)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		u, created, err := eng.EnsureUser(ctx, args[0], userName)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("created %s (%s) with %d energy\n", u.Handle, u.ID, u.CurrentEnergy)
		} else {
			fmt.Printf("exists %s (%s)\n", u.Handle, u.ID)
		}
		return nil
	},
}

// --- checkin command ---

var (
	checkinRemote   bool
	checkinMetrics  = map[string]*float64{}
	checkinExercise bool
	checkinMeditate bool
	checkinCold     bool
	checkinTriggers []string
	checkinMessage  string
)

var metricNames = []string{"energy", "mood", "urges", "stress", "focus"}

var checkinCmd = &cobra.Command{
	Use:   "checkin <user>",
	Short: "Record a check-in for today",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckin,
}

func runCheckin(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	// Unset flags stay nil so they do not move the day's averages.
	metric := func(name string) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return checkinMetrics[name]
	}

	if checkinRemote {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c := client.New(cfg.ServerURL())
		u, err := c.ResolveUser(ctx, args[0])
		if err != nil {
			return err
		}
		agg, err := c.CheckIn(ctx, u.ID, client.CheckIn{
			Energy: metric("energy"), Mood: metric("mood"), Urges: metric("urges"),
			Stress: metric("stress"), Focus: metric("focus"),
			Exercised: checkinExercise, Meditated: checkinMeditate, ColdShower: checkinCold,
			Triggers: checkinTriggers, RawMessage: checkinMessage,
		})
		if err != nil {
			return err
		}
		return printJSON(agg)
	}

	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := resolveUser(ctx, db, args[0])
	if err != nil {
		return err
	}
	agg, err := eng.CheckIn(ctx, u.ID, store.CheckIn{
		Energy: metric("energy"), Mood: metric("mood"), Urges: metric("urges"),
		Stress: metric("stress"), Focus: metric("focus"),
		Exercised: checkinExercise, Meditated: checkinMeditate, ColdShower: checkinCold,
		Triggers: checkinTriggers, RawMessage: checkinMessage,
	})
	if err != nil {
		return err
	}
	return printJSON(agg)
}

// --- event command ---

var (
	eventRemote   bool
	eventContext  string
	eventTriggers []string
)

var eventCmd = &cobra.Command{
	Use:   "event <user> <type>",
	Short: "Record a qualifying event (relapse, sexual_activity, achievement, sos_trigger)",
	Args:  cobra.ExactArgs(2),
	RunE:  runEvent,
}

func runEvent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	var (
		out *store.EventOutcome
		err error
	)
	if eventRemote {
		cfg, cerr := config.Load(configPath)
		if cerr != nil {
			return fmt.Errorf("load config: %w", cerr)
		}
		c := client.New(cfg.ServerURL())
		u, uerr := c.ResolveUser(ctx, args[0])
		if uerr != nil {
			return uerr
		}
		out, err = c.RecordEvent(ctx, u.ID, args[1], eventContext, eventTriggers)
	} else {
		eng, db, oerr := openEngine()
		if oerr != nil {
			return oerr
		}
		defer db.Close()

		u, uerr := resolveUser(ctx, db, args[0])
		if uerr != nil {
			return uerr
		}
		out, err = eng.RecordEvent(ctx, u.ID, args[1], eventContext, eventTriggers)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s recorded, balance %d\n", out.Event.Type, out.Balance)
	if out.Archived != nil {
		fmt.Printf("streak of %d days archived (%s to %s)\n", out.Archived.LengthDays, out.Archived.StartDate, out.Archived.EndDate)
	}
	return nil
}

// --- stats command ---

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show every analytic for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, db, err := openEngine()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	u, err := resolveUser(ctx, db, args[0])
	if err != nil {
		return err
	}
	s, err := eng.Stats(ctx, u.ID)
	if err != nil {
		return err
	}
	if statsJSON {
		return printJSON(s)
	}

	fmt.Printf("## %s\n\n", s.Handle)
	fmt.Printf("Streak:       %d days (best %d)\n", s.CurrentStreak, s.MaxStreak)
	fmt.Printf("Energy:       %d\n", s.Energy)
	fmt.Printf("Discipline:   %.1f (%s)\n", s.Discipline.Overall, s.Discipline.Grade)
	fmt.Printf("Risk:         %.0f%% %s\n", s.Risk.Probability*100, s.Risk.Level)
	for _, f := range s.Risk.Factors {
		fmt.Printf("  - %s [%s]: %s\n", f.Name, f.Impact, f.Description)
	}
	fmt.Printf("Recovery:     phase %d %s (%.0f%%)\n", s.Recovery.PhaseNumber, s.Recovery.Phase, s.Recovery.ProgressPercent)
	fmt.Printf("Survival:     7d %.0f%%, 30d %.0f%%, 90d %.0f%% (%d attempts)\n",
		s.Survival.SurvivalDay7*100, s.Survival.SurvivalDay30*100, s.Survival.SurvivalDay90*100, s.Survival.TotalAttempts)
	zones := make([]string, len(s.Survival.DangerZones))
	for i, z := range s.Survival.DangerZones {
		zones[i] = fmt.Sprintf("day %d", z.Day)
	}
	fmt.Printf("Danger zones: %s\n", strings.Join(zones, ", "))
	fmt.Printf("Forecast:     %s, 30d %.0f to %.0f (%s confidence)\n",
		s.Forecast.Trend, s.Forecast.Forecast30Conservative, s.Forecast.Forecast30Optimistic, s.Forecast.Confidence)
	fmt.Printf("Productivity: %.1f %s (%.1f focus hours)\n", s.Productivity.Index, s.Productivity.Zone, s.Productivity.FocusHours)
	fmt.Printf("Flow (7d):    +%d base, +%d streak, +%d activity, -%d losses\n",
		s.Flow.BaseDaily, s.Flow.StreakBonus, s.Flow.ActivityBonus, s.Flow.Losses)
	return nil
}

// --- ledger and goal listings ---

var (
	historyFrom string
	historyJSON bool
	goalsAll    bool
	eventsLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "Show the user's energy ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		u, err := resolveUser(ctx, db, args[0])
		if err != nil {
			return err
		}
		txs, err := eng.Transactions(ctx, u.ID, historyFrom)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(txs)
		}
		for _, t := range txs {
			fmt.Printf("%s  %+6d  %6d  %-15s %s\n", t.Day, t.Amount, t.RunningBalance, t.Source, t.Description)
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <user>",
	Short: "List the user's most recent events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		u, err := resolveUser(ctx, db, args[0])
		if err != nil {
			return err
		}
		events, err := eng.Events(ctx, u.ID, eventsLimit)
		if err != nil {
			return err
		}
		return printJSON(events)
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals <user>",
	Short: "List the user's active goals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		u, err := resolveUser(ctx, db, args[0])
		if err != nil {
			return err
		}
		status := store.GoalActive
		if goalsAll {
			status = ""
		}
		goals, err := eng.Goals(ctx, u.ID, status)
		if err != nil {
			return err
		}
		for _, g := range goals {
			fmt.Printf("%s  %-9s %s\n", g.ID, g.Status, g.Title)
		}
		return nil
	},
}

// --- maintenance commands ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute the discipline snapshot for every user",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		snap, err := eng.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("scored %d users\n", len(snap.Discipline))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Verify every cached balance against the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		mismatches, err := eng.Reconcile(ctx)
		if err != nil {
			return err
		}
		if len(mismatches) == 0 {
			fmt.Println("all balances consistent")
			return nil
		}
		for _, m := range mismatches {
			fmt.Println(m.Error())
		}
		return fmt.Errorf("%d inconsistent balances", len(mismatches))
	},
}

var dailyDay string

var dailyEnergyCmd = &cobra.Command{
	Use:   "daily-energy",
	Short: "Run the nightly streak increment and energy credit",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, db, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := eng.DistributeDaily(ctx, dailyDay)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d credited, %d skipped, %d failed (%d energy)\n", res.Day, res.Credited, res.Skipped, res.Failed, res.Total)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)

	userAddCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userCmd.AddCommand(userAddCmd)

	for _, name := range metricNames {
		v := new(float64)
		checkinMetrics[name] = v
		checkinCmd.Flags().Float64Var(v, name, 0, name+" (0-10)")
	}
	checkinCmd.Flags().BoolVar(&checkinExercise, "exercised", false, "Exercised today")
	checkinCmd.Flags().BoolVar(&checkinMeditate, "meditated", false, "Meditated today")
	checkinCmd.Flags().BoolVar(&checkinCold, "cold-shower", false, "Took a cold shower")
	checkinCmd.Flags().StringSliceVarP(&checkinTriggers, "trigger", "t", nil, "Trigger label (repeatable)")
	checkinCmd.Flags().StringVarP(&checkinMessage, "message", "m", "", "Free-text note")
	checkinCmd.Flags().BoolVar(&checkinRemote, "remote", false, "Send to a running server instead of the local database")

	eventCmd.Flags().StringVarP(&eventContext, "context", "c", "", "What happened")
	eventCmd.Flags().StringSliceVarP(&eventTriggers, "trigger", "t", nil, "Trigger label (repeatable)")
	eventCmd.Flags().BoolVar(&eventRemote, "remote", false, "Send to a running server instead of the local database")

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON")

	historyCmd.Flags().StringVar(&historyFrom, "from", "", "First day to show, YYYY-MM-DD (default all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print JSON")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", engine.DefaultEventLimit, "Maximum events to show")
	goalsCmd.Flags().BoolVar(&goalsAll, "all", false, "Include completed and abandoned goals")

	dailyEnergyCmd.Flags().StringVar(&dailyDay, "day", "", "Day to credit, YYYY-MM-DD (default today)")
}
