package main

import (
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/ratchet/internal/codehost"
	"github.com/zulandar/ratchet/internal/config"
	"github.com/zulandar/ratchet/internal/dashboard"
	"github.com/zulandar/ratchet/internal/notify"
	"github.com/zulandar/ratchet/internal/scheduler"
	"github.com/zulandar/ratchet/internal/session"
	"github.com/zulandar/ratchet/internal/store"
)

func newStartCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the ratchet scheduler daemon",
		Long: `Starts the polling loop that watches every ratchet-enabled workspace's PR,
dispatches fixer sessions, and notifies on state changes. Runs until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath, once)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single evaluation cycle and exit")
	return cmd
}

func runStart(cmd *cobra.Command, configPath string, once bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gormDB, err := connectFromConfig(cfg)
	if err != nil {
		return err
	}

	st := store.New(gormDB)

	client, err := codehost.NewGitHub(codehost.GitHubOpts{
		Token:   cfg.GitHub.Token,
		Timeout: time.Duration(cfg.GitHub.APITimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	runner := &session.Runner{
		Store:   st,
		Spawner: &session.ClaudeSpawner{Binary: cfg.Agent.Binary},
	}

	notifier := buildNotifier(cfg)

	sched, err := scheduler.New(scheduler.Opts{
		Config: scheduler.Config{
			Interval:             cfg.Ratchet.Interval(),
			Concurrency:          cfg.Ratchet.Concurrency,
			MaxFixerSessions:     cfg.Ratchet.MaxFixerSessions,
			NotificationCooldown: cfg.Ratchet.NotificationCooldown(),
			SessionIdleTimeout:   cfg.Ratchet.SessionIdleTimeout(),
		},
		Store:    st,
		Client:   client,
		Launcher: runner,
		Notifier: notifier,
		Out:      out,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		sched.RunCycle(ctx)
		return nil
	}

	if cfg.Dashboard.Enabled {
		go func() {
			if err := dashboard.Start(ctx, dashboard.StartOpts{
				DB:   gormDB,
				Port: cfg.Dashboard.Port,
				Out:  out,
			}); err != nil {
				log.Printf("dashboard: %v", err)
			}
		}()
	}

	if cfg.Digest.Enabled {
		go func() {
			if err := sched.RunDigest(ctx, cfg.Digest.Cron); err != nil {
				log.Printf("digest: %v", err)
			}
		}()
	}

	return sched.Run(ctx)
}

// buildNotifier assembles the sink fanout from configuration. Misconfigured
// sinks are skipped with a log line rather than failing startup.
func buildNotifier(cfg *config.Config) *notify.Notifier {
	var sinks []notify.Sink

	if cfg.Notify.Command != "" {
		sinks = append(sinks, &notify.CommandSink{Command: cfg.Notify.Command})
	}
	if cfg.Notify.Slack.Channel != "" {
		sink, err := notify.NewSlackSink(notify.SlackOpts{
			Token:     cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			log.Printf("notify: slack disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if cfg.Notify.Discord.Channel != "" {
		sink, err := notify.NewDiscordSink(notify.DiscordOpts{
			Token:     cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.Channel,
		})
		if err != nil {
			log.Printf("notify: discord disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}

	return notify.NewNotifier(sinks...)
}
