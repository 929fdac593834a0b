package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"pennywise/internal/api"
	"pennywise/internal/cli"
	"pennywise/internal/config"
	"pennywise/internal/model"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive first-run configuration",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseURL := cfg.API.BaseURL
	token := cfg.API.Token
	var incomeStr, expensesStr string

	validMoney := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("enter a number")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Budget service URL").
				Description("Where your budget backend runs.").
				Value(&baseURL),
			huh.NewInput().
				Title("API token").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly income").
				Description("Leave blank to keep the server's value.").
				Validate(validMoney).
				Value(&incomeStr),
			huh.NewInput().
				Title("Fixed monthly expenses").
				Description("Rent, subscriptions, and the rest.").
				Validate(validMoney).
				Value(&expensesStr),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.API.BaseURL = baseURL
	cfg.API.Token = token
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("  Config written to %s\n", config.ConfigPath())

	var income, expenses *float64
	if v, err := strconv.ParseFloat(strings.TrimSpace(incomeStr), 64); err == nil {
		income = &v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(expensesStr), 64); err == nil {
		expenses = &v
	}
	if income == nil && expenses == nil {
		return nil
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Token)
	user, err := client.UpdateUser(cmd.Context(), api.UpdateUserRequest{
		MonthlyIncome: income,
		FixedExpenses: expenses,
	})
	if err != nil {
		return fmt.Errorf("saving income: %w", err)
	}

	dailyLimit := (user.MonthlyIncome - user.FixedExpenses) / model.DaysInMonth
	fmt.Printf("  Income saved. Your daily budget is %s.\n", cli.FormatMoney(dailyLimit))
	return nil
}
