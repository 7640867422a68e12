package main

import (
	"fmt"
	"regexp"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/ratchet/internal/store"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage ratchet workspaces",
	}

	cmd.AddCommand(newWorkspaceAddCmd())
	cmd.AddCommand(newWorkspaceListCmd())
	cmd.AddCommand(newWorkspaceEnableCmd(true))
	cmd.AddCommand(newWorkspaceEnableCmd(false))
	cmd.AddCommand(newWorkspaceSetPRCmd())
	return cmd
}

func newWorkspaceAddCmd() *cobra.Command {
	var (
		configPath string
		project    string
		branch     string
		path       string
		enable     bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a workspace worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(configPath)
			if err != nil {
				return err
			}

			proj, err := st.FindProjectByName(project)
			if err != nil {
				return err
			}

			ws, err := st.CreateWorkspace(store.CreateWorkspaceOpts{
				ProjectID: proj.ID,
				Name:      args[0],
				Branch:    branch,
				Path:      path,
				Enabled:   enable,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s registered (id %s, project %s)\n",
				ws.Name, ws.ID, proj.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	cmd.Flags().StringVarP(&project, "project", "p", "", "project name (required)")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "workspace branch")
	cmd.Flags().StringVar(&path, "path", "", "worktree path on disk")
	cmd.Flags().BoolVar(&enable, "enable", false, "enable ratcheting immediately")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newWorkspaceListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(configPath)
			if err != nil {
				return err
			}

			workspaces, err := st.ListAllWorkspaces()
			if err != nil {
				return err
			}
			if len(workspaces) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No workspaces registered.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROJECT\tBRANCH\tRATCHET\tSTATE\tPR")
			for _, ws := range workspaces {
				enabled := "off"
				if ws.RatchetEnabled {
					enabled = "on"
				}
				pr := "-"
				if ws.PRNumber > 0 {
					pr = fmt.Sprintf("#%d (%s)", ws.PRNumber, ws.PRState)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					ws.Name, ws.Project.Name, ws.Branch, enabled, ws.RatchetState, pr)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	return cmd
}

func newWorkspaceEnableCmd(enable bool) *cobra.Command {
	var configPath string

	use, short := "enable <name>", "Enable ratcheting for a workspace"
	if !enable {
		use, short = "disable <name>", "Disable ratcheting for a workspace"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
			if err := st.SetRatchetEnabled(ws.ID, enable); err != nil {
				return err
			}

			verb := "enabled"
			if !enable {
				verb = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ratcheting %s for workspace %s\n", verb, ws.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	return cmd
}

var prURLPattern = regexp.MustCompile(`/pull/(\d+)$`)

func newWorkspaceSetPRCmd() *cobra.Command {
	var (
		configPath string
		number     int
	)

	cmd := &cobra.Command{
		Use:   "set-pr <name> <pr-url>",
		Short: "Attach a pull request to a workspace",
		Long: `Points a workspace at a pull request and resets its ratchet state so the
next scheduler cycle evaluates it fresh. The PR number is parsed from the
URL unless --number is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, prURL := args[0], args[1]

			if number == 0 {
				m := prURLPattern.FindStringSubmatch(prURL)
				if m == nil {
					return fmt.Errorf("cannot parse PR number from %q; pass --number", prURL)
				}
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return fmt.Errorf("cannot parse PR number from %q: %w", prURL, err)
				}
				number = n
			}

			st, err := openStore(configPath)
			if err != nil {
				return err
			}

			ws, err := st.FindWorkspaceByName(name)
			if err != nil {
				return err
			}
			if err := st.AttachPR(ws.ID, prURL, number); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s now tracking PR #%d\n", ws.Name, number)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Ratchet config file")
	cmd.Flags().IntVarP(&number, "number", "n", 0, "PR number (overrides URL parsing)")
	return cmd
}
