package main

import (
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/zulandar/ratchet/internal/codehost"
	"github.com/zulandar/ratchet/internal/config"
	"github.com/zulandar/ratchet/internal/models"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that Ratchet's environment is ready",
		Long: `Verifies the pieces a running daemon depends on: the config file, the
database, the GitHub token, and the agent binary. Exits non-zero if any
check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	return cmd
}

func runDoctor(out io.Writer, configPath string) error {
	failures := 0
	check := func(name string, err error) {
		if err != nil {
			failures++
			fmt.Fprintf(out, "  FAIL %s: %v\n", name, err)
		} else {
			fmt.Fprintf(out, "  ok   %s\n", name)
		}
	}

	fmt.Fprintln(out, "Ratchet doctor")

	cfg, err := config.Load(configPath)
	check("config", err)
	if err != nil {
		// Everything else depends on the config.
		return fmt.Errorf("1 check failed")
	}

	check("database", checkDatabase(cfg))
	check("github token", checkGitHub(cfg))
	check("agent binary", checkAgentBinary(cfg))

	if cfg.Digest.Enabled {
		check("digest cron", checkDigestCron(cfg.Digest.Cron))
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

func checkDatabase(cfg *config.Config) error {
	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return err
	}
	var count int64
	if err := gormDB.Model(&models.Project{}).Count(&count).Error; err != nil {
		return fmt.Errorf("projects table missing; run `ratchet db init` (%v)", err)
	}
	return nil
}

func checkGitHub(cfg *config.Config) error {
	if cfg.GitHub.Token == "" {
		return fmt.Errorf("no token configured (set github.token or GITHUB_TOKEN)")
	}
	_, err := codehost.NewGitHub(codehost.GitHubOpts{
		Token:   cfg.GitHub.Token,
		Timeout: time.Duration(cfg.GitHub.APITimeoutMs) * time.Millisecond,
	})
	return err
}

func checkAgentBinary(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.Agent.Binary); err != nil {
		return fmt.Errorf("%q not found on PATH", cfg.Agent.Binary)
	}
	return nil
}

func checkDigestCron(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
