package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "canteen",
	Short:         "Campus canteen ordering server",
	Version:       version,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [command] [args...]",
	Short: "Run database migrations",
	Long: `Run goose migrations embedded in the binary against DATABASE_URL.

Examples:
  canteen migrate up
  canteen migrate status
  canteen migrate down-to 1`,
	RunE: runMigrate,
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check the local server's /health endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runHealthcheck()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, healthcheckCmd)
}
