package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pennywise/internal/cli"
	"pennywise/internal/model"
)

var (
	flagLogCategory string
	flagLogImpulse  bool
	flagLogNote     string
)

var logCmd = &cobra.Command{
	Use:   "log AMOUNT",
	Short: "Log a spend",
	Long:  "Log a transaction against today's budget. Categories: " + strings.Join(model.Categories, ", ") + ".",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func init() {
	logCmd.Flags().StringVarP(&flagLogCategory, "category", "c", "", "Spending category (required)")
	logCmd.Flags().BoolVarP(&flagLogImpulse, "impulse", "i", false, "Mark as an impulse purchase")
	logCmd.Flags().StringVarP(&flagLogNote, "note", "m", "", "Optional note")
	_ = logCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(strings.TrimPrefix(args[0], "$"), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[0])
	}

	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	tx, err := eng.RecordTransaction(cmd.Context(), amount, flagLogCategory, flagLogImpulse, flagLogNote)
	if err != nil {
		return err
	}

	remaining := eng.AvailableToday() - eng.TodaySpent()
	fmt.Printf("  Logged %s on %s.\n", cli.FormatMoney(tx.Amount), tx.Category)
	fmt.Printf("  %s left today, %s left in %s this month.\n",
		cli.FormatMoney(remaining),
		cli.FormatMoney(eng.CategoryRemaining(tx.Category)),
		tx.Category)
	return nil
}
