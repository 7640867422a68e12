package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "audit <workspace>",
		Short: "Show the transition history for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(configPath)
			if err != nil {
				return err
			}

			ws, err := st.FindWorkspaceByName(args[0])
			if err != nil {
				return err
			}

			entries, err := st.RecentAudit(ws.ID, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No audit history for workspace %s.\n", ws.Name)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTRANSITION\tACTION\tDETAIL")
			for _, e := range entries {
				detail := e.ActionDetail
				if detail == "" {
					detail = "-"
				}
				fmt.Fprintf(w, "%s\t%s -> %s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.PreviousState, e.NewState, e.Action, detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	return cmd
}
