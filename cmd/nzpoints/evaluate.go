package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/answers"
	"github.com/pieme/nzpoints/internal/engine"
	"github.com/pieme/nzpoints/internal/render"
	"github.com/pieme/nzpoints/internal/schema"
)

type evaluateFlags struct {
	tableFlags
	format    string
	out       string
	now       string
	share     bool
	failBelow int
	verbose   bool
}

// report is the JSON form of an evaluation.
type report struct {
	Tool    string           `json:"tool"`
	Version string           `json:"version"`
	Input   reportInput      `json:"input"`
	Result  engine.ResultSet `json:"result"`
	Outcome string           `json:"outcome"`
	Share   string           `json:"share,omitempty"`
}

type reportInput struct {
	AnswersFile string `json:"answers_file"`
	AnswersHash string `json:"answers_hash"`
}

func newEvaluateCmd() *cobra.Command {
	f := &evaluateFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate <answers-file>",
		Short: "Score an answers file and print the points breakdown",
		Long: "Score an answers file (YAML or JSON) and print the points per category.\n" +
			"Use - to read the answers from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(args[0], f, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "text", "Output format: text, md or json")
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.StringVar(&f.now, "now", "", "Evaluation date as YYYY-MM-DD (default: today)")
	flags.StringVar(&f.rules, "rules", "", "Built-in rule table name")
	flags.StringVar(&f.rulesFile, "rules-file", "", "Custom rule table file")
	flags.BoolVar(&f.share, "share", false, "Append the share message")
	flags.IntVar(&f.failBelow, "fail-below", 0, "Exit 2 if the total is below this many points")
	flags.BoolVar(&f.verbose, "verbose", false, "Log at debug level")

	return cmd
}

func runEvaluate(path string, f *evaluateFlags, stdout io.Writer) error {
	a, err := loadApp(f.tableFlags, f.verbose, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	now, err := parseNow(f.now)
	if err != nil {
		return err
	}

	file, err := answers.Load(path)
	if err != nil {
		return exitError(3, "failed to load answers: %v", err)
	}
	a.log.Debug("answers loaded", zap.String("path", path), zap.String("hash", file.Hash))

	rs := a.engine.Evaluate(file.State, now)
	if errs := schema.ValidateResult(rs); len(errs) > 0 {
		return fmt.Errorf("result failed validation: %w", schema.AsError(errs))
	}

	var output string
	switch f.format {
	case "text":
		output = render.Text(rs)
		if f.share {
			output += "\n" + render.ShareMessage(rs) + "\n"
		}
	case "md":
		output = render.Markdown(rs)
		if f.share {
			output += render.ShareMessage(rs) + "\n"
		}
	case "json":
		rep := report{
			Tool:    "nzpoints",
			Version: version,
			Input:   reportInput{AnswersFile: filepath.Base(path), AnswersHash: file.Hash},
			Result:  rs,
			Outcome: render.Outcome(rs),
		}
		if f.share {
			rep.Share = render.ShareMessage(rs)
		}
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		output = string(data) + "\n"
	default:
		return exitError(3, "unknown format: %s", f.format)
	}

	if f.out != "" {
		a.log.Debug("writing output", zap.String("path", f.out))
		if err := os.WriteFile(f.out, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Fprint(stdout, output)
	}

	if f.failBelow > 0 && rs.Total < f.failBelow {
		return exitError(2, "total %s is below %s", render.Points(rs.Total), render.Points(f.failBelow))
	}
	return nil
}
