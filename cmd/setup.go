package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/desertthunder/musiq/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a config file from the embedded template, optionally pointing it at a backend.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	if cmd.IsSet("base-url") {
		base := cmd.String("base-url")
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			os.Remove(path)
			return fmt.Errorf("%w: --base-url %q is not an absolute URL", shared.ErrInvalidFlag, base)
		}

		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		config.API.BaseURL = base
		if err := shared.SaveConfig(config, path); err != nil {
			return err
		}
		r.config = config
	}

	r.writePlain("✓ Config written to %s\n", path)
	return r.writePlain("Run 'musiq setup database' next\n")
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

type setupStatus struct {
	ConfigPath string                   `json:"config_path" yaml:"config_path"`
	ConfigFile bool                     `json:"config_file" yaml:"config_file"`
	BaseURL    string                   `json:"base_url" yaml:"base_url"`
	Database   string                   `json:"database" yaml:"database"`
	Migrations []shared.MigrationStatus `json:"migrations" yaml:"migrations"`
}

// SetupStatus reports the active configuration and which migrations are applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrations, err := shared.MigrationStatuses(db)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(r.configPath)
	status := setupStatus{
		ConfigPath: r.configPath,
		ConfigFile: statErr == nil,
		BaseURL:    r.config.API.BaseURL,
		Database:   r.config.Database.Path,
		Migrations: migrations,
	}

	return r.render(cmd, status, func() error {
		r.writePlainHeader("musiq setup")
		source := "built-in defaults"
		if status.ConfigFile {
			source = status.ConfigPath
		}
		r.writePlain("Config: %s\n", source)
		r.writePlain("Backend: %s\n", status.BaseURL)
		r.writePlain("Database: %s\n", status.Database)
		r.writePlainln("Migrations")
		for _, m := range migrations {
			mark := "✗"
			if m.Applied {
				mark = "✓"
			}
			r.writePlain("%s %03d %s\n", mark, m.Version, m.Name)
		}
		return nil
	})
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	r.logger.Warn("rolled back migration", "database", r.config.Database.Path)
	return r.writePlain("✓ Rolled back the latest migration\n")
}
