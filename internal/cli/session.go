package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JimmyLeeSnow/xyflow/pkg/config"
	"github.com/JimmyLeeSnow/xyflow/pkg/session"
)

// sessionCommand creates the session command group for managing saved
// sessions.
func (c *CLI) sessionCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved editor sessions",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	backend := func(cmd *cobra.Command) (session.Store, *config.Config, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		st, err := newSessionStore(cmd.Context(), cfg)
		return st, cfg, err
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := backend(cmd)
			if err != nil {
				return err
			}
			ids, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("no sessions in %s backend", cfg.Session.Backend)
				return nil
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(styleDim).
				Headers("ID", "NAME", "NODES", "UPDATED", "EXPIRES")
			for _, id := range ids {
				sess, err := st.Get(cmd.Context(), id)
				if err != nil {
					continue
				}
				t.Row(sess.ID, sess.Name,
					fmt.Sprintf("%d", len(sess.Document.Nodes)),
					sess.UpdatedAt.Local().Format("2006-01-02 15:04"),
					time.Until(sess.ExpiresAt).Round(time.Minute).String())
			}
			fmt.Println(t)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := backend(cmd)
			if err != nil {
				return err
			}
			sess, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printKeyValue("id", sess.ID)
			printKeyValue("name", sess.Name)
			printKeyValue("created", sess.CreatedAt.Local().Format(time.RFC822))
			printKeyValue("updated", sess.UpdatedAt.Local().Format(time.RFC822))
			printKeyValue("expires", sess.ExpiresAt.Local().Format(time.RFC822))
			printStats(len(sess.Document.Nodes), len(sess.Document.Edges), false)
			printNextStep("Export this session", "xyflow export <saved.json> -f svg")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := backend(cmd)
			if err != nil {
				return err
			}
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("deleted %s", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := backend(cmd)
			if err != nil {
				return err
			}
			if err := st.Cleanup(cmd.Context()); err != nil {
				return err
			}
			printSuccess("expired sessions removed")
			return nil
		},
	})

	return cmd
}
