// cmd/seeder/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/unclebandit/mailer-backend/internal/db"
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Database setup for the mailer backend",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the embedded schema",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(db.Schema())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
