// payablesctl runs one-off maintenance jobs against the payables database.
//
// Usage (same DB_* / REDIS_ADDRESS env as the API):
//
//	go run ./cmd/payablesctl migrate
//	go run ./cmd/payablesctl seed
//	go run ./cmd/payablesctl user add --username clerk --password secret1 --role user
//	go run ./cmd/payablesctl user disable --username clerk
//	go run ./cmd/payablesctl verify
package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"github.com/spf13/cobra"
)

// connect opens the database unless a test already installed one.
func connect(cmd *cobra.Command, args []string) error {
	if config.GetDB() == nil {
		config.ConnectDatabaseWithRetry()
	}
	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "payablesctl",
		Short:         "Maintenance commands for the payables backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newMigrateCmd(), newSeedCmd(), newUserCmd(), newVerifyCmd())
	return rootCmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		Short:   "Create or update the suppliers, transactions, invoices and users tables",
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := models.MigrateTable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "seed",
		Short:   "Insert the initial suppliers, transactions, invoices and users (idempotent)",
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.GetRedisDB() == nil && os.Getenv("REDIS_ADDRESS") != "" {
				config.ConnectRedisWithRetry()
			}
			if err := models.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seed data in place")
			return nil
		},
	}
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage login users",
	}

	var input models.NewUser
	addCmd := &cobra.Command{
		Use:     "add",
		Short:   "Create a user",
		Example: "  payablesctl user add --username clerk --password secret1 --role user",
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := models.CreateUser(cmd.Context(), &input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id=%d role=%s)\n", user.Username, user.ID, user.Role)
			return nil
		},
	}
	addCmd.Flags().StringVar(&input.Username, "username", "", "login name")
	addCmd.Flags().StringVar(&input.Password, "password", "", "plain password, hashed before storing")
	addCmd.Flags().StringVar(&input.Role, "role", string(models.UserRoleUser), "admin or user")
	_ = addCmd.MarkFlagRequired("username")
	_ = addCmd.MarkFlagRequired("password")

	userCmd.AddCommand(addCmd, newUserActiveCmd("disable", false), newUserActiveCmd("enable", true))
	return userCmd
}

func newUserActiveCmd(use string, active bool) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:     use,
		Short:   "Set whether a user can log in; disable also ends their sessions",
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.GetRedisDB() == nil && os.Getenv("REDIS_ADDRESS") != "" {
				config.ConnectRedisWithRetry()
			}
			user, err := models.SetUserActive(cmd.Context(), username, active)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s active=%t\n", user.Username, user.Active())
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "verify",
		Short:   "Recompute every supplier balance from its transactions and report mismatches",
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := models.ReconcileAllSuppliers(cmd.Context())
			if err != nil {
				return err
			}
			mismatches := 0
			out := cmd.OutOrStdout()
			for _, check := range checks {
				status := "ok"
				if !check.Consistent {
					status = "MISMATCH"
					mismatches++
				}
				fmt.Fprintf(out, "supplier %d: stored=%s expected=%s transactions=%d %s\n",
					check.SupplierId, check.StoredBalance.StringFixed(4), check.ExpectedBalance.StringFixed(4), check.TransactionCount, status)
			}
			if mismatches > 0 {
				return fmt.Errorf("%d supplier balance(s) do not match their transactions", mismatches)
			}
			return nil
		},
	}
}

func main() {
	defer config.CloseDatabase()
	if err := newRootCmd().Execute(); err != nil {
		config.LogError(config.GetLogger(), "payablesctl", "main", "running command", os.Args[1:], err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		config.CloseDatabase()
		os.Exit(1)
	}
}
