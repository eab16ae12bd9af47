package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pieme/nzpoints/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate points rule tables",
	}
	cmd.AddCommand(newRulesListCmd(), newRulesShowCmd(), newRulesValidateCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in rule tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := rules.List()
			if err != nil {
				return fmt.Errorf("failed to list rule tables: %w", err)
			}
			w := cmd.OutOrStdout()
			for _, n := range names {
				marker := " "
				if n == rules.Default {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s\n", marker, n)
			}
			return nil
		},
	}
}

func newRulesShowCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Print a rule table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			t, err := rules.Resolve(name, file)
			if err != nil {
				return exitError(3, "failed to load rule table: %v", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), rules.Format(t))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "rules-file", "", "Show a custom rule table file instead")
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a custom rule table and list every problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesValidate(args[0], cmd.OutOrStdout())
		},
	}
}

func runRulesValidate(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return exitError(3, "failed to read rule table: %v", err)
	}
	t, err := rules.Decode(data)
	if err != nil {
		return exitError(3, "failed to parse rule table: %v", err)
	}
	probs := t.Validate()
	if len(probs) == 0 {
		fmt.Fprintf(w, "%s (version %d): ok\n", t.Name, t.Version)
		return nil
	}
	for _, p := range probs {
		fmt.Fprintln(w, p)
	}
	return exitError(3, "%s: %d problem(s)", path, len(probs))
}
