package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// newViewCmd builds a read-only command that replays a plan and prints part
// of it.
func newViewCmd(app *App, use, short string, show func(io.Writer, *session)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <plan>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			show(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newDecisionsCmd(app *App) *cobra.Command {
	return newViewCmd(app, "decisions", "List the open decisions and conflicts", func(w io.Writer, s *session) {
		printDecisions(w, s.decider)
	})
}

func newScheduleCmd(app *App) *cobra.Command {
	return newViewCmd(app, "schedule", "Show when each selected subject is taken", func(w io.Writer, s *session) {
		printSchedule(w, s.plan())
	})
}

func newBansCmd(app *App) *cobra.Command {
	return newViewCmd(app, "bans", "List content the plan has made unavailable and why", func(w io.Writer, s *session) {
		printBans(w, s.plan())
	})
}

func newNextCmd(app *App) *cobra.Command {
	return newViewCmd(app, "next", "Show the decision to make next", func(w io.Writer, s *session) {
		printNext(w, s.decider)
	})
}
