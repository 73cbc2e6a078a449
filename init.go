package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	sentinelStart = "<!-- chartmap:start -->"
	sentinelEnd   = "<!-- chartmap:end -->"
)

// runInit implements the `chartmap init` subcommand, which writes (or updates)
// a chartmap usage section in a CLAUDE.md file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("chartmap init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: chartmap init [flags] [path-to-CLAUDE.md]

Write a chartmap usage section to a CLAUDE.md file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote chartmap section to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped chartmap documentation block.
func generateSection() string {
	body := `## chartmap — Statechart Map

Run ` + "`chartmap`" + ` via the Bash tool before working on state-machine logic in a
JavaScript/TypeScript codebase. It locates every createMachine/Machine call
and produces tables of machines, states (with source locations), transition
targets, and the resolved transition graph — no need to read machine files to
understand their structure.

**Availability:** Check with ` + "`chartmap --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
chartmap                                   # current directory, all languages
chartmap /path/to/repo                     # explicit path
chartmap -l typescript,tsx                 # filter by language
chartmap -n 20                             # limit to top 20 machines
chartmap -skip-failed                      # keep going past malformed machines
chartmap --cache .chartmap-cache           # cache output (fast on repeat runs)
` + "```" + `

**Caching:** Use ` + "`--cache <file>`" + ` to avoid re-parsing on every call. Add the
cache file to ` + "`.gitignore`" + `. A conventional path is ` + "`.chartmap-cache`" + `.

**All flags:** ` + "`chartmap --help`" + `

**How to use the output — follow these rules:**

1. **Use ` + "`states`" + ` to jump to definitions.** Every state node is listed with
   its file, dot-joined path, and line/column. Open the file at that line
   instead of searching for state names.

2. **Use ` + "`edges`" + ` to trace flows.** The edges table is the resolved
   transition graph (event, source state, target state). Follow it instead of
   reading machine configs end to end. ` + "`resolved:false`" + ` rows are targets that
   point outside the machine (external ids, history markers).

3. **Use ` + "`targets`" + ` for exact source spans** when editing a transition: each
   row locates the target string literal itself.

4. **Only fall back to Grep for things chartmap cannot answer** — e.g., guard
   or action implementations, which are captured as opaque references.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
