package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagReflectRegret string
	flagReflectGood   string
	flagReflectNotes  string
)

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Log an end-of-day reflection",
	RunE:  runReflect,
}

func init() {
	reflectCmd.Flags().StringVar(&flagReflectRegret, "regret", "", "A purchase you regret")
	reflectCmd.Flags().StringVar(&flagReflectGood, "good", "", "A purchase you feel good about")
	reflectCmd.Flags().StringVar(&flagReflectNotes, "notes", "", "Anything else")
	rootCmd.AddCommand(reflectCmd)
}

func runReflect(cmd *cobra.Command, _ []string) error {
	eng, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if eng.HasReflectedToday() {
		fmt.Println("  Already reflected today. Come back tomorrow.")
		return nil
	}

	if _, err := eng.RecordReflection(cmd.Context(), flagReflectRegret, flagReflectGood, flagReflectNotes); err != nil {
		return err
	}

	fmt.Println("  Reflection saved. Keep the streak going.")
	return nil
}
