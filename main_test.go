package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "toggle.js", `import { createMachine } from 'xstate';

export const toggleMachine = createMachine({
  id: 'toggle',
  initial: 'off',
  states: {
    off: { on: { TOGGLE: 'on' } },
    on: { on: { TOGGLE: 'off' } },
  },
});
`)
	writeTestFile(t, dir, "wizard.ts", `import { createMachine } from 'xstate';

export const wizardMachine = createMachine({
  id: 'wizard',
  initial: 'intro',
  states: {
    intro: { on: { NEXT: 'details' } },
    details: { on: { NEXT: 'done', BACK: 'intro' } },
    done: { type: 'final' },
  },
});
`)
	return dir
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "repo:") {
		t.Error("missing repo: header")
	}
	if !strings.Contains(out, "machines[2]") {
		t.Errorf("expected 2 machines, got:\n%s", out)
	}
	if !strings.Contains(out, "toggle.js") {
		t.Error("missing toggle.js")
	}
	if !strings.Contains(out, "wizard.ts") {
		t.Error("missing wizard.ts")
	}
	if !strings.Contains(out, "states[") {
		t.Error("missing states table")
	}
	if !strings.Contains(out, "edges[") {
		t.Error("missing edges table")
	}
}

func TestRunEdges(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "off,on,TOGGLE") {
		t.Errorf("missing off→on TOGGLE edge:\n%s", out)
	}
	if !strings.Contains(out, "details,done,NEXT") {
		t.Errorf("missing details→done NEXT edge:\n%s", out)
	}
}

func TestRunTargets(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "targets[") {
		t.Error("missing targets table")
	}
	// Target string literals keep their verbatim text along with a location.
	if !strings.Contains(out, "details,done") {
		t.Errorf("missing target row for details state:\n%s", out)
	}
}

func TestRunMaxMachines(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-n", "1", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "machines[1]") {
		t.Errorf("expected 1 machine, got:\n%s", out)
	}
}

func TestRunLanguageFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-l", "typescript", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "wizard.ts") {
		t.Error("missing wizard.ts")
	}
	if strings.Contains(out, "toggle.js") {
		t.Errorf("toggle.js should be filtered out:\n%s", out)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "chartmap") {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for no scannable files")
	}
	if !strings.Contains(err.Error(), "no scannable files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunNoMachines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "util.js", "export const add = (a, b) => a + b;\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for no machine definitions")
	}
	if !strings.Contains(err.Error(), "no machine definitions") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-l", "rust", t.TempDir()}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	err := run([]string{"--cache", cachePath, dir}, &stdout1, &stderr1)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Cache file should exist
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	// Second run should produce identical output, fresh cache or not.
	var stdout2, stderr2 bytes.Buffer
	err = run([]string{"--cache", cachePath, dir}, &stdout2, &stderr2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if stdout1.String() != stdout2.String() {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}
}

func TestRunCacheStaleAfterEdit(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout1, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Touching a source file after the cache was written must invalidate it.
	writeTestFile(t, dir, "toggle.js", `const m = createMachine({
  id: 'renamed',
  initial: 'off',
  states: { off: {} },
});
`)

	var stdout2 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout2, &bytes.Buffer{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(stdout2.String(), "renamed") {
		t.Errorf("stale cache served after edit:\n%s", stdout2.String())
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{f}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for non-directory")
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "small.js", "const m = createMachine({id:'s',initial:'a',states:{a:{}}});\n")
	writeTestFile(t, dir, "big.js", strings.Repeat("// padding line to inflate the file\n", 20)+
		"const m = createMachine({id:'big',initial:'a',states:{a:{}}});\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--max-file-size", "200", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "small.js") {
		t.Error("missing small.js")
	}
	if strings.Contains(out, "big.js") {
		t.Error("big.js should be filtered out")
	}
	if !strings.Contains(stderr.String(), "Warning") {
		t.Error("expected warning about skipped file")
	}
}

const mixedMachinesSource = `import { createMachine } from 'xstate';

const broken = createMachine(someConfigFromElsewhere);

const good = createMachine({
  id: 'good',
  initial: 'idle',
  states: { idle: { on: { GO: 'running' } }, running: {} },
});
`

func TestRunFailedMachineDropsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "mixed.js", mixedMachinesSource)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatalf("expected error when the only file fails extraction:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Warning") {
		t.Errorf("expected extraction warning on stderr, got: %s", stderr.String())
	}
}

func TestRunSkipFailed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "mixed.js", mixedMachinesSource)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-skip-failed", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "machines[1]") {
		t.Errorf("expected the good machine to survive:\n%s", out)
	}
	if !strings.Contains(out, "good") {
		t.Errorf("missing good machine id:\n%s", out)
	}
	if !strings.Contains(out, "errors[1]") {
		t.Errorf("expected errors table with one row:\n%s", out)
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"-n", "5", "."}, []string{"-n", "5", "."}},
		{"positional first", []string{".", "-n", "5"}, []string{"-n", "5", "."}},
		{"mixed", []string{"-l", "typescript", ".", "-n", "5"}, []string{"-l", "typescript", "-n", "5", "."}},
		{"multi-lang", []string{"-l", "typescript,tsx", "."}, []string{"-l", "typescript,tsx", "."}},
		{"no flags", []string{"."}, []string{"."}},
		{"no args", nil, nil},
		{"bool flag", []string{"-V"}, []string{"-V"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reorderArgs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %q, want %q (full: %v)", i, got[i], tt.want[i], got)
					break
				}
			}
		})
	}
}
