package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"laddersim/internal/tui"
	"laddersim/internal/util"
)

func newTUICmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Play the simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rc.load()
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			// The alternate screen owns stdout; keep the model's logs quiet.
			quiet := util.NewLogger("error", cfg.Logging.Format, io.Discard)
			p := tea.NewProgram(
				tui.New(sess.eng, sess.snaps, quiet),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running tui: %w", err)
			}
			return nil
		},
	}
}
