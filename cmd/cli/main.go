package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/lotledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lotledger-cli",
		Short: "LotLedger CLI tool",
		Long:  `A command line interface for the LotLedger posting and tax-lot accounting API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the LotLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(positionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	var databaseURL, migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "migrations", "Path to migration files")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrations(databaseURL, migrationsPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrationsDown(databaseURL, migrationsPath)
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run a full reconciliation sweep",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := getJSON("/api/v1/reconciliation")
			if err != nil {
				fmt.Printf("Reconciliation FAILED: %v\n", err)
				os.Exit(1)
			}

			printJSON(result)

			if consistent, ok := result["ledger_consistent"].(bool); ok && !consistent {
				fmt.Println("Ledger is NOT consistent")
				os.Exit(1)
			}
			fmt.Println("Reconciliation PASSED")
		},
	}
}

func positionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Position operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "summary [position-id]",
		Short: "Show the derived state of a position",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			result, err := getJSON("/api/v1/positions/" + args[0] + "/summary")
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			printJSON(result)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check [position-id]",
		Short: "Verify a position against its disposal history",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := getJSON("/api/v1/positions/" + args[0] + "/check")
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}

			printJSON(result)

			if consistent, ok := result["consistent"].(bool); ok && !consistent {
				fmt.Println("Position is NOT consistent")
				os.Exit(1)
			}
		},
	})

	return cmd
}

func getJSON(path string) (map[string]any, error) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result, nil
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
