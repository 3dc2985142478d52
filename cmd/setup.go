package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/transcribeflow/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", config.Database.Path)
}

// SetupConfig writes a config file from the embedded template, or updates selected values in an existing one.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
	} else if cmd.Bool("force") {
		if err := shared.SaveConfig(configPath, shared.DefaultConfig()); err != nil {
			return err
		}
		r.logger.Info("config file reset to defaults", "path", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}

	changed := false
	if v := cmd.String("api-url"); v != "" {
		config.API.BaseURL = v
		changed = true
	}
	if v := cmd.String("issuer"); v != "" {
		config.Identity.Issuer = v
		changed = true
	}
	if v := cmd.String("client-id"); v != "" {
		config.Identity.ClientID = v
		changed = true
	}
	if v := cmd.String("lang"); v != "" {
		config.Upload.TargetLanguage = v
		changed = true
	}

	if changed {
		if err := shared.SaveConfig(configPath, config); err != nil {
			return err
		}
	}

	r.writePlain("✓ Config ready at %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set [identity] client_id and issuer to enable 'tflow auth login'\n")
	r.writePlain("2. Run 'tflow setup database' to create the local database\n")
	r.writePlain("3. Run 'tflow upload <file>' to transcribe audio\n")
	return nil
}
