package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/ratchet/internal/dashboard"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the ratchet state of every workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(configPath)
			if err != nil {
				return err
			}

			rows, err := dashboard.ListWorkspaces(st.DB())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No workspaces registered.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORKSPACE\tPROJECT\tSTATE\tPR\tCI\tCOLUMN\tCHECKED")
			for _, row := range rows {
				pr := "-"
				if row.PRNumber > 0 {
					pr = fmt.Sprintf("#%d %s", row.PRNumber, row.PRState)
				}
				col := row.KanbanColumn
				if col == "" {
					col = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					row.Name, row.Project, row.RatchetState, pr,
					row.CIStatus, col, relativeTime(row.LastCheckedAt))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	return cmd
}

// relativeTime renders a timestamp as a short "Nm ago" string.
func relativeTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	d := time.Since(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
