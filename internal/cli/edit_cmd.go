package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/spf13/cobra"
)

// printOutcome shows what a mutation left open.
func printOutcome(cmd *cobra.Command, s *session) {
	w := cmd.OutOrStdout()
	printDecisions(w, s.decider)
	printSchedule(w, s.plan())
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <plan> <code>...",
		Short: "Select subjects or a course",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.mutate(cmd.Context(), args[0], func(s *session) error {
				for _, code := range args[1:] {
					content, err := s.lookup(code)
					if err != nil {
						return err
					}
					if err := s.decider.AddContent(content); err != nil {
						return fmt.Errorf("adding %v: %w", code, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			printOutcome(cmd, s)
			return nil
		},
	}
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <plan> <code>...",
		Short: "Deselect subjects or a course",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.mutate(cmd.Context(), args[0], func(s *session) error {
				for _, code := range args[1:] {
					content, err := s.lookup(code)
					if err != nil {
						return err
					}
					if err := s.decider.RemoveContent(content); err != nil {
						return fmt.Errorf("removing %v: %w", code, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			printOutcome(cmd, s)
			return nil
		},
	}
}

func newForceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "force <plan> <code> <year> <session>",
		Short: "Pin a selected subject to a time, e.g. force <plan> COMP1000 2025 S2",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseTime(strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			s, err := app.mutate(cmd.Context(), args[0], func(s *session) error {
				subject, err := s.lookupSubject(args[1])
				if err != nil {
					return err
				}
				return s.decider.ForceTime(subject, t)
			})
			if err != nil {
				return err
			}
			printOutcome(cmd, s)
			return nil
		},
	}
}

func newUnforceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unforce <plan> <code>",
		Short: "Let the scheduler place a subject again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.mutate(cmd.Context(), args[0], func(s *session) error {
				subject, err := s.lookupSubject(args[1])
				if err != nil {
					return err
				}
				return s.decider.UnforceTime(subject)
			})
			if err != nil {
				return err
			}
			printOutcome(cmd, s)
			return nil
		},
	}
}

func newCapacityCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity <plan> <year> <session> <credit points>",
		Short: "Override how many credit points fit in one time",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseTime(strings.Join(args[1:3], " "))
			if err != nil {
				return err
			}
			creditPoints, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid credit points %q: %w", args[3], err)
			}
			s, err := app.mutate(cmd.Context(), args[0], func(s *session) error {
				return s.decider.SetCapacity(t, creditPoints)
			})
			if err != nil {
				return err
			}
			printSchedule(cmd.OutOrStdout(), s.plan())
			return nil
		},
	}
}
