package cli

import (
	"fmt"
	"strings"

	"github.com/limaJavier/studyplan/internal/store"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage saved plans",
	}

	cmd.AddCommand(
		newPlanNewCmd(app),
		newPlanListCmd(app),
		newPlanShowCmd(app),
		newPlanDeleteCmd(app),
	)

	return cmd
}

func newPlanNewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := app.Plans.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := app.Plans.SaveInputs(cmd.Context(), record.ID, store.Inputs{}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan %v [%v]\n", record.Name, record.ID)
			return nil
		},
	}
}

func newPlanListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := app.Plans.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render("No plans yet"))
				return nil
			}
			for _, record := range records {
				printRecord(cmd.OutOrStdout(), record)
			}
			return nil
		},
	}
}

func newPlanShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan>",
		Short: "Show a plan's selections, decisions, schedule and unavailable content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printRecord(w, s.record)
			printSelections(w, s.plan())
			printDecisions(w, s.decider)
			printSchedule(w, s.plan())
			printBans(w, s.plan())
			return nil
		},
	}
}

func newPlanDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plan>",
		Short: "Delete a saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := app.Plans.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := app.Plans.Delete(cmd.Context(), record.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %v\n", record.Name)
			return nil
		},
	}
}
