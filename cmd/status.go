package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"pennywise/internal/cli"
	"pennywise/internal/metrics"
	"pennywise/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's budget at a glance",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	snap := eng.Snapshot()
	now := time.Now()

	spent := metrics.TodaySpent(snap, now)
	available := metrics.AvailableToday(snap)

	fmt.Println(cli.RenderTitle("pennywise"))
	fmt.Println()

	fmt.Println(cli.RenderTable(cli.Table{
		Title: "Today",
		Rows: [][]string{
			{"Spent", cli.FormatMoney(spent)},
			{"Available", cli.FormatMoney(available)},
			{"Daily limit", cli.FormatMoney(snap.DailyLimit)},
			{"Rollover", cli.FormatMoney(snap.RolloverBudget)},
			{"This week", cli.FormatMoney(metrics.WeekSpent(snap, now))},
			{"Streak", fmt.Sprintf("%d days", snap.StreakDays)},
			{"Impulses resisted", fmt.Sprintf("%d", snap.ImpulsesAvoided)},
			{"Total saved", cli.FormatMoney(metrics.TotalSaved(snap))},
		},
	}))

	fmt.Println("  " + cli.RenderBudgetBar(spent, available, 40))
	fmt.Println()

	if len(snap.CategoryLimits) > 0 {
		fmt.Println(cli.RenderTable(categoryTable(snap)))
	}

	if len(snap.Goals) > 0 {
		fmt.Println(cli.RenderTable(goalsTable(snap)))
	}

	if !metrics.HasReflectedToday(snap, now) {
		fmt.Println("  No reflection yet today. Try `pennywise reflect`.")
	}
	return nil
}

func goalsTable(snap model.Snapshot) cli.Table {
	t := cli.Table{
		Title:   "Savings goals",
		Headers: []string{"Goal", "Saved", "Target"},
	}
	for _, g := range snap.Goals {
		t.Rows = append(t.Rows, []string{
			g.Name,
			cli.FormatMoney(g.Current),
			cli.FormatMoney(g.Target),
		})
	}
	return t
}

func categoryTable(snap model.Snapshot) cli.Table {
	cats := make([]string, 0, len(snap.CategoryLimits))
	for c := range snap.CategoryLimits {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	t := cli.Table{
		Title:   "Category limits",
		Headers: []string{"Category", "Spent", "Limit", "Remaining"},
	}
	for _, c := range cats {
		cl := snap.CategoryLimits[c]
		t.Rows = append(t.Rows, []string{
			c,
			cli.FormatMoney(cl.Spent),
			cli.FormatMoney(cl.MonthlyLimit),
			cli.FormatMoney(metrics.CategoryRemaining(snap, c)),
		})
	}
	return t
}
