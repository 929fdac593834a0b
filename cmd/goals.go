package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pennywise/internal/cli"
	"pennywise/internal/engine"
)

var (
	flagGoalTarget   float64
	flagGoalCurrent  float64
	flagGoalColor    string
	flagGoalDeadline string

	flagGoalSetCurrent float64
	flagGoalSetAdd     float64
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage savings goals",
	RunE:  runGoalsList,
}

var goalsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a savings goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsAdd,
}

var goalsSetCmd = &cobra.Command{
	Use:   "set GOAL_ID",
	Short: "Update a goal's saved amount",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsSet,
}

func init() {
	goalsAddCmd.Flags().Float64VarP(&flagGoalTarget, "target", "t", 0, "Target amount (required)")
	goalsAddCmd.Flags().Float64Var(&flagGoalCurrent, "current", 0, "Amount already saved")
	goalsAddCmd.Flags().StringVar(&flagGoalColor, "color", "#3AA99F", "Display color")
	goalsAddCmd.Flags().StringVar(&flagGoalDeadline, "deadline", "", "Target date (YYYY-MM-DD)")
	_ = goalsAddCmd.MarkFlagRequired("target")

	goalsSetCmd.Flags().Float64Var(&flagGoalSetCurrent, "current", -1, "Set the saved amount")
	goalsSetCmd.Flags().Float64Var(&flagGoalSetAdd, "add", 0, "Add to the saved amount")

	goalsCmd.AddCommand(goalsAddCmd, goalsSetCmd)
	rootCmd.AddCommand(goalsCmd)
}

func runGoalsList(cmd *cobra.Command, _ []string) error {
	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	snap := eng.Snapshot()
	if len(snap.Goals) == 0 {
		fmt.Println("  No goals yet. Try `pennywise goals add`.")
		return nil
	}

	t := cli.Table{
		Title:   "Savings goals",
		Headers: []string{"Goal", "Saved", "Target", "Progress", "Deadline"},
	}
	for _, g := range snap.Goals {
		progress := 0.0
		if g.Target > 0 {
			progress = g.Current / g.Target
		}
		t.Rows = append(t.Rows, []string{
			g.Name,
			cli.FormatMoney(g.Current),
			cli.FormatMoney(g.Target),
			cli.FormatPercent(progress),
			deadlineCell(g.Deadline),
		})
	}
	fmt.Println(cli.RenderTable(t))
	return nil
}

func deadlineCell(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return cli.FormatDate(*d)
}

func runGoalsAdd(cmd *cobra.Command, args []string) error {
	var deadline *time.Time
	if flagGoalDeadline != "" {
		d, err := time.ParseInLocation("2006-01-02", flagGoalDeadline, time.Local)
		if err != nil {
			return fmt.Errorf("invalid deadline %q, want YYYY-MM-DD", flagGoalDeadline)
		}
		deadline = &d
	}

	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	goal, err := eng.RecordGoal(cmd.Context(), args[0], flagGoalTarget, flagGoalCurrent, flagGoalColor, deadline)
	if err != nil {
		return err
	}

	fmt.Printf("  Goal %q created: %s of %s saved.\n",
		goal.Name, cli.FormatMoney(goal.Current), cli.FormatMoney(goal.Target))
	return nil
}

func runGoalsSet(cmd *cobra.Command, args []string) error {
	if flagGoalSetCurrent < 0 && flagGoalSetAdd == 0 {
		return fmt.Errorf("nothing to change; pass --current or --add")
	}

	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	var patch engine.GoalPatch
	if flagGoalSetCurrent >= 0 {
		v := flagGoalSetCurrent
		patch.Current = &v
	} else {
		snap := eng.Snapshot()
		for _, g := range snap.Goals {
			if g.ID == args[0] {
				v := g.Current + flagGoalSetAdd
				patch.Current = &v
				break
			}
		}
		if patch.Current == nil {
			return fmt.Errorf("goal %s not found", args[0])
		}
	}

	goal, err := eng.UpdateGoal(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}

	fmt.Printf("  %q is now at %s of %s.\n",
		goal.Name, cli.FormatMoney(goal.Current), cli.FormatMoney(goal.Target))
	return nil
}
