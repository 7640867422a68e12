package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/ratchet/internal/config"
	"github.com/zulandar/ratchet/internal/db"
	"github.com/zulandar/ratchet/internal/store"
	"gorm.io/gorm"
)

const defaultConfigPath = "ratchet.yaml"

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Ratchet database",
		Long:  "Creates or migrates all tables and seeds projects from configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for owner %q from %s\n", cfg.Owner, configPath)

	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedProjects(gormDB, cfg.Projects); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d project(s):", len(cfg.Projects))
	for _, p := range cfg.Projects {
		fmt.Fprintf(out, " %s", p.Name)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "\nRatchet database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Ratchet database",
		Long:  "Removes the sqlite database file (sqlite driver only), then re-creates and seeds it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("db reset only supports the sqlite driver; drop %q manually", cfg.Database.Name)
	}

	if !skipConfirm {
		fmt.Fprintf(out, "This deletes %s and all ratchet history. Continue? [y/N] ", cfg.Database.Path)
		var answer string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
			// No readable answer (EOF, closed stdin) means no consent.
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
		if answer != "y" && answer != "Y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := os.Remove(cfg.Database.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", cfg.Database.Path, err)
	}
	fmt.Fprintf(out, "Removed %s\n", cfg.Database.Path)

	return runDBInit(cmd, configPath)
}

// connectFromConfig opens the configured database backend.
func connectFromConfig(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Connect(db.Options{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return gormDB, nil
}

// openStore loads configuration and returns a ready Store. Shared by the
// one-shot CLI commands.
func openStore(configPath string) (*store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return store.New(gormDB), nil
}
