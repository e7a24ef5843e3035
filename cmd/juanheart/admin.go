package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/app"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/database"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(db, log); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var cmd service.CreateUserCommand
	c := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first administrator account",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer func() { _ = database.Close(db) }()

			ctx := c.Context()
			a, err := app.New(ctx, app.Options{
				Config:  cfg,
				Repos:   app.PostgresRepositories(db),
				Metrics: metrics.NewCollector(cfg.App.Name),
				Log:     log,
			})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			cmd.Role = domain.RoleAdmin
			system := domain.Actor{UserID: uuid.Nil, Role: domain.RoleAdmin, RequestID: "seed-admin"}
			u, err := a.Services.Auth.CreateUser(ctx, system, cmd)
			if err != nil {
				return err
			}
			log.Info("administrator created", zap.String("user_id", u.ID.String()), zap.String("email", u.Email))
			return nil
		},
	}
	c.Flags().StringVar(&cmd.Email, "email", "", "Administrator email")
	c.Flags().StringVar(&cmd.Password, "password", "", "Initial password (at least 12 characters)")
	c.Flags().StringVar(&cmd.FirstName, "first-name", "System", "First name")
	c.Flags().StringVar(&cmd.LastName, "last-name", "Administrator", "Last name")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
