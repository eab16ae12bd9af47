package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullAnswers = "../../testdata/answers/full.yaml"

// testEnv points configuration at a fresh data dir and keeps logs quiet.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NZPOINTS_DATA_DIR", dir)
	t.Setenv("NZPOINTS_LOG_LEVEL", "error")
	t.Setenv("NZPOINTS_RULES", "")
	t.Setenv("NZPOINTS_RULES_FILE", "")
	return dir
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertExitCode(t *testing.T, err error, wantCode int) {
	t.Helper()
	if wantCode == 0 {
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("expected exit code %d, got nil error", wantCode)
	}
	var ee *exitErr
	if !errors.As(err, &ee) {
		t.Fatalf("expected *exitErr, got %T: %v", err, err)
	}
	if ee.code != wantCode {
		t.Errorf("exit code = %d, want %d (msg: %s)", ee.code, wantCode, ee.msg)
	}
}

// run executes the command tree with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunEvaluateText(t *testing.T) {
	testEnv(t)
	var out bytes.Buffer
	err := runEvaluate(fullAnswers, &evaluateFlags{format: "text", now: "2024-06-15", share: true}, &out)
	assertExitCode(t, err, 0)

	got := out.String()
	for _, want := range []string{
		"Skilled employment   110pt",
		"Total                310pt",
		"meets the 160pt selection threshold",
		"My New Zealand immigration points is 310",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunEvaluateJSON(t *testing.T) {
	testEnv(t)
	var out bytes.Buffer
	err := runEvaluate(fullAnswers, &evaluateFlags{format: "json", now: "2024-06-15"}, &out)
	assertExitCode(t, err, 0)

	var rep report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if rep.Tool != "nzpoints" || rep.Version != version {
		t.Errorf("tool/version = %s/%s", rep.Tool, rep.Version)
	}
	if rep.Input.AnswersFile != "full.yaml" || !strings.HasPrefix(rep.Input.AnswersHash, "sha256:") {
		t.Errorf("input = %+v", rep.Input)
	}
	if rep.Result.Total != 310 || len(rep.Result.Items) != 5 {
		t.Errorf("result total = %d, items = %d", rep.Result.Total, len(rep.Result.Items))
	}
	if rep.Share != "" {
		t.Error("share should be omitted without --share")
	}
}

func TestRunEvaluateOutFile(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "report.md")
	var out bytes.Buffer
	err := runEvaluate(fullAnswers, &evaluateFlags{format: "md", now: "2024-06-15", out: path}, &out)
	assertExitCode(t, err, 0)

	if out.Len() != 0 {
		t.Errorf("stdout should be empty with --out, got %q", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "| **Total** | **310pt** |") {
		t.Errorf("report missing total:\n%s", data)
	}
}

func TestRunEvaluateFailBelow(t *testing.T) {
	testEnv(t)
	tests := []struct {
		name      string
		failBelow int
		want      int
	}{
		{"disabled", 0, 0},
		{"met", 310, 0},
		{"below", 311, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &evaluateFlags{format: "text", now: "2024-06-15", failBelow: tt.failBelow}
			assertExitCode(t, runEvaluate(fullAnswers, f, &bytes.Buffer{}), tt.want)
		})
	}
}

func TestRunEvaluateInputErrors(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()
	bad := writeTempFile(t, dir, "bad.yaml", "identity:\n  dateOfBirth: someday\n")

	tests := []struct {
		name string
		path string
		f    evaluateFlags
	}{
		{"missing file", "/nonexistent/answers.yaml", evaluateFlags{format: "text"}},
		{"bad answers", bad, evaluateFlags{format: "text"}},
		{"unknown format", fullAnswers, evaluateFlags{format: "pdf"}},
		{"bad now", fullAnswers, evaluateFlags{format: "text", now: "15/06/2024"}},
		{"unknown table", fullAnswers, evaluateFlags{format: "text", tableFlags: tableFlags{rules: "nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.f
			assertExitCode(t, runEvaluate(tt.path, &f, &bytes.Buffer{}), 3)
		})
	}
}

func TestRunEvaluateBrokenRulesFile(t *testing.T) {
	testEnv(t)
	f := &evaluateFlags{format: "json", now: "2024-06-15",
		tableFlags: tableFlags{rulesFile: "../../testdata/rules/broken.yaml"}}
	assertExitCode(t, runEvaluate(fullAnswers, f, &bytes.Buffer{}), 3)
}

func TestRulesCommands(t *testing.T) {
	testEnv(t)

	out, err := run(t, "rules", "list")
	assertExitCode(t, err, 0)
	if !strings.Contains(out, "* nz-smc") {
		t.Errorf("list should mark the default table:\n%s", out)
	}

	out, err = run(t, "rules", "show", "nz-smc")
	assertExitCode(t, err, 0)
	if !strings.Contains(out, "Selection threshold: 160pt") {
		t.Errorf("show output:\n%s", out)
	}

	_, err = run(t, "rules", "show", "nope")
	assertExitCode(t, err, 3)

	out, err = run(t, "rules", "validate", "../../internal/rules/builtin/nz-smc.yaml")
	assertExitCode(t, err, 0)
	if !strings.Contains(out, "nz-smc (version 1): ok") {
		t.Errorf("validate output:\n%s", out)
	}

	builtin, err := os.ReadFile("../../internal/rules/builtin/nz-smc.yaml")
	if err != nil {
		t.Fatal(err)
	}
	typo := writeTempFile(t, t.TempDir(), "typo.yaml",
		strings.Replace(string(builtin), "shortage_bonus:", "shortage_bonuss:", 1))
	_, err = run(t, "rules", "validate", typo)
	assertExitCode(t, err, 3)

	out, err = run(t, "rules", "validate", "../../testdata/rules/broken.yaml")
	assertExitCode(t, err, 3)
	for _, want := range []string{"version:", "labels.partner:", "partner.skilled_job_bonus:"} {
		if !strings.Contains(out, want) {
			t.Errorf("validate output missing %q:\n%s", want, out)
		}
	}
}

func TestSessionFlow(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()

	out, err := run(t, "session", "new")
	assertExitCode(t, err, 0)
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("session new printed no id")
	}

	qual := writeTempFile(t, dir, "qual.yaml", "qualificationLevel: level-9-10\n")
	out, err = run(t, "session", "set", id, "qualification", qual)
	assertExitCode(t, err, 0)
	if !strings.Contains(out, "level-9-10") {
		t.Errorf("set output should show the stored answers:\n%s", out)
	}

	emp := writeTempFile(t, dir, "emp.json", `{"hasJobOfferInNZ":true,"hourlyRate":"55","workType":"full-time"}`)
	_, err = run(t, "session", "set", id, "employment", emp)
	assertExitCode(t, err, 0)

	out, err = run(t, "session", "result", id, "--format", "json")
	assertExitCode(t, err, 0)
	var rs struct{ Total int }
	if err := json.Unmarshal([]byte(out), &rs); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, out)
	}
	// level-9-10 (60) + job offer (50) + hourly rate (20)
	if rs.Total != 130 {
		t.Errorf("total = %d, want 130", rs.Total)
	}

	_, err = run(t, "session", "result", id, "--fail-below", "160")
	assertExitCode(t, err, 2)

	_, err = run(t, "session", "save", id)
	assertExitCode(t, err, 0)
	out, err = run(t, "session", "list")
	assertExitCode(t, err, 0)
	if !strings.Contains(out, id) {
		t.Errorf("list missing session:\n%s", out)
	}

	out, err = run(t, "session", "events", id)
	assertExitCode(t, err, 0)
	for _, want := range []string{"create", "set:qualification", "set:employment", "save"} {
		if !strings.Contains(out, want) {
			t.Errorf("events missing %q:\n%s", want, out)
		}
	}

	_, err = run(t, "session", "delete", id)
	assertExitCode(t, err, 0)
	_, err = run(t, "session", "show", id)
	assertExitCode(t, err, 3)
}

func TestSessionSetErrors(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()

	out, err := run(t, "session", "new", fullAnswers)
	assertExitCode(t, err, 0)
	id := strings.TrimSpace(out)

	future := writeTempFile(t, dir, "future.yaml", "dateOfBirth: 2999-01-01\n")
	_, err = run(t, "session", "set", id, "identity", future)
	assertExitCode(t, err, 3)

	_, err = run(t, "session", "set", id, "hobbies", future)
	assertExitCode(t, err, 3)

	_, err = run(t, "session", "final", "no-such-session")
	assertExitCode(t, err, 3)

	seed := writeTempFile(t, dir, "seed.yaml", "employment:\n  hasJobInNZ: true\n")
	_, err = run(t, "session", "new", seed)
	assertExitCode(t, err, 3)
}
