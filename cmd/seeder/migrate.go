package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclebandit/mailer-backend/internal/config"
	"github.com/unclebandit/mailer-backend/internal/db"
	"github.com/unclebandit/mailer-backend/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func connect(ctx context.Context) (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, cfg.Database, logger.New(cfg.AppEnv))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	fmt.Println("Migrations completed successfully")
	return nil
}
