package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pieme/nzpoints/internal/answers"
	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/render"
	"github.com/pieme/nzpoints/internal/session"
	"github.com/pieme/nzpoints/internal/store"
)

type sessionFlags struct {
	tableFlags
	verbose bool
}

func newSessionCmd() *cobra.Command {
	f := &sessionFlags{}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Work through the questionnaire in a stored session",
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.rules, "rules", "", "Built-in rule table name")
	pf.StringVar(&f.rulesFile, "rules-file", "", "Custom rule table file")
	pf.BoolVar(&f.verbose, "verbose", false, "Log at debug level")

	cmd.AddCommand(
		newSessionNewCmd(f),
		newSessionShowCmd(f),
		newSessionSetCmd(f),
		newSessionTransitionCmd(f, "final", "Mark the questionnaire as finished", (*session.Service).MarkFinal),
		newSessionTransitionCmd(f, "save", "Move the current answers into history", (*session.Service).SaveHistory),
		newSessionTransitionCmd(f, "reset", "Start a new pass and keep history", (*session.Service).Reset),
		newSessionTransitionCmd(f, "clear", "Discard answers and history", (*session.Service).Clear),
		newSessionDeleteCmd(f),
		newSessionResultCmd(f),
		newSessionListCmd(f),
		newSessionEventsCmd(f),
	)
	return cmd
}

// withSessions opens the store for the duration of fn.
func withSessions(f *sessionFlags, fn func(svc *session.Service) error) error {
	a, err := loadApp(f.tableFlags, f.verbose, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	svc, st, err := a.openSessions(nil)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(svc)
}

// sessionError maps service errors to exit codes.
func sessionError(id string, err error) error {
	var inv *session.InvalidError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return exitError(3, "no session %s", id)
	case errors.As(err, &inv):
		msg := "invalid answers:"
		if inv.Step != "" {
			msg = fmt.Sprintf("invalid %s answers:", inv.Step)
		}
		for _, e := range inv.Errors {
			msg += "\n  " + e.Error()
		}
		return exitError(3, "%s", msg)
	case errors.Is(err, store.ErrConflict):
		return exitError(4, "session %s changed concurrently, retry", id)
	}
	if id == "" {
		return exitError(4, "session store: %v", err)
	}
	return exitError(4, "session %s: %v", id, err)
}

func printSession(w io.Writer, sess *store.Session) error {
	fmt.Fprintf(w, "# session %s (version %d, updated %s)\n",
		sess.ID, sess.Version, sess.UpdatedAt.Format(time.RFC3339))
	data, err := yaml.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func newSessionNewCmd(f *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "new [answers-file]",
		Short: "Start a session, optionally seeded from an answers file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := questionnaire.Empty()
			if len(args) == 1 {
				file, err := answers.Load(args[0])
				if err != nil {
					return exitError(3, "failed to load answers: %v", err)
				}
				initial = file.State
			}
			return withSessions(f, func(svc *session.Service) error {
				sess, err := svc.Create(cmd.Context(), initial)
				if err != nil {
					return sessionError("", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
				return nil
			})
		},
	}
}

func newSessionShowCmd(f *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(f, func(svc *session.Service) error {
				sess, err := svc.Get(cmd.Context(), args[0])
				if err != nil {
					return sessionError(args[0], err)
				}
				return printSession(cmd.OutOrStdout(), sess)
			})
		},
	}
}

func newSessionSetCmd(f *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <step> <file>",
		Short: "Answer one questionnaire step from a YAML or JSON file",
		Long: "Answer one questionnaire step. Steps: identity, qualification,\n" +
			"experience, employment, partner. Use - to read the file from stdin.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, step := args[0], questionnaire.Step(args[1])
			if !step.Valid() {
				return exitError(3, "unknown step %q", args[1])
			}
			c, err := answers.LoadStep(args[2], step)
			if err != nil {
				return exitError(3, "failed to load %s answers: %v", step, err)
			}
			return withSessions(f, func(svc *session.Service) error {
				sess, err := svc.SetStep(cmd.Context(), id, c)
				if err != nil {
					return sessionError(id, err)
				}
				return printSession(cmd.OutOrStdout(), sess)
			})
		},
	}
}

type transitionFunc func(*session.Service, context.Context, string) (*store.Session, error)

func newSessionTransitionCmd(f *sessionFlags, use, short string, fn transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(f, func(svc *session.Service) error {
				sess, err := fn(svc, cmd.Context(), args[0])
				if err != nil {
					return sessionError(args[0], err)
				}
				return printSession(cmd.OutOrStdout(), sess)
			})
		},
	}
}

func newSessionDeleteCmd(f *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(f, func(svc *session.Service) error {
				if err := svc.Delete(cmd.Context(), args[0]); err != nil {
					return sessionError(args[0], err)
				}
				return nil
			})
		},
	}
}

func newSessionResultCmd(f *sessionFlags) *cobra.Command {
	var format string
	var failBelow int
	cmd := &cobra.Command{
		Use:   "result <id>",
		Short: "Score a session's current answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(f, func(svc *session.Service) error {
				rs, err := svc.Result(cmd.Context(), args[0])
				if err != nil {
					return sessionError(args[0], err)
				}
				w := cmd.OutOrStdout()
				switch format {
				case "text":
					fmt.Fprint(w, render.Text(rs))
				case "md":
					fmt.Fprint(w, render.Markdown(rs))
				case "json":
					data, err := json.MarshalIndent(rs, "", "  ")
					if err != nil {
						return fmt.Errorf("failed to marshal output: %w", err)
					}
					fmt.Fprintln(w, string(data))
				default:
					return exitError(3, "unknown format: %s", format)
				}
				if failBelow > 0 && rs.Total < failBelow {
					return exitError(2, "total %s is below %s", render.Points(rs.Total), render.Points(failBelow))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, md or json")
	cmd.Flags().IntVar(&failBelow, "fail-below", 0, "Exit 2 if the total is below this many points")
	return cmd
}

func newSessionListCmd(f *sessionFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(f, func(svc *session.Service) error {
				sums, err := svc.List(cmd.Context(), limit)
				if err != nil {
					return exitError(4, "failed to list sessions: %v", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVERSION\tFINAL\tHISTORY\tUPDATED")
				for _, s := range sums {
					fmt.Fprintf(tw, "%s\t%d\t%t\t%d\t%s\n",
						s.ID, s.Version, s.IsFinal, s.History, s.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list")
	return cmd
}

func newSessionEventsCmd(f *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "events <id>",
		Short: "Print a session's change log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessions(f, func(svc *session.Service) error {
				events, err := svc.Events(cmd.Context(), args[0])
				if err != nil {
					return sessionError(args[0], err)
				}
				w := cmd.OutOrStdout()
				for _, e := range events {
					fmt.Fprintf(w, "%d\t%s\t%s\n", e.Version, e.At.Format(time.RFC3339), e.Action)
				}
				return nil
			})
		},
	}
}
