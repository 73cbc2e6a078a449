// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chartmap/chartmap/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

const rootLabel = "(root)"

// Encode converts a MachineMap into TOON format.
func Encode(mm *model.MachineMap) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(mm.RepoName)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(mm.Root)))

	var machineRows [][]string
	for i := range mm.Files {
		f := &mm.Files[i]
		for j := range f.Machines {
			m := &f.Machines[j]
			targets := 0
			for k := range m.StatesMeta {
				targets += len(m.StatesMeta[k].Targets)
			}
			machineRows = append(machineRows, []string{
				f.Path,
				fmt.Sprintf("%d", j),
				m.Config.ID,
				m.Config.Initial,
				fmt.Sprintf("%d", len(m.StatesMeta)),
				fmt.Sprintf("%d", targets),
			})
		}
	}
	parts = append(parts, formatTabular("machines",
		[]string{"file", "machine", "id", "initial", "states", "targets"}, machineRows))

	var stateRows [][]string
	for i := range mm.Files {
		f := &mm.Files[i]
		for j := range f.Machines {
			m := &f.Machines[j]
			for k := range m.StatesMeta {
				meta := &m.StatesMeta[k]
				stateRows = append(stateRows, []string{
					f.Path,
					fmt.Sprintf("%d", j),
					pathLabel(meta.Path),
					fmt.Sprintf("%d", meta.Location.Start.Line),
					fmt.Sprintf("%d", meta.Location.Start.Column),
					fmt.Sprintf("%.4f", meta.Rank),
					fmt.Sprintf("%d", len(meta.Targets)),
				})
			}
		}
	}
	parts = append(parts, formatTabular("states",
		[]string{"file", "machine", "path", "line", "col", "rank", "targets"}, stateRows))

	var targetRows [][]string
	for i := range mm.Files {
		f := &mm.Files[i]
		for j := range f.Machines {
			m := &f.Machines[j]
			for k := range m.StatesMeta {
				meta := &m.StatesMeta[k]
				for _, ref := range meta.Targets {
					targetRows = append(targetRows, []string{
						f.Path,
						fmt.Sprintf("%d", j),
						pathLabel(meta.Path),
						ref.Target,
						fmt.Sprintf("%d", ref.Location.Start.Line),
						fmt.Sprintf("%d", ref.Location.Start.Column),
					})
				}
			}
		}
	}
	parts = append(parts, formatTabular("targets",
		[]string{"file", "machine", "state", "target", "line", "col"}, targetRows))

	var edgeRows [][]string
	for i := range mm.Edges {
		e := &mm.Edges[i]
		edgeRows = append(edgeRows, []string{
			e.File,
			fmt.Sprintf("%d", e.Machine),
			e.Source,
			e.Target,
			e.Event,
			fmt.Sprintf("%t", e.Resolved),
		})
	}
	parts = append(parts, formatTabular("edges",
		[]string{"file", "machine", "source", "target", "event", "resolved"}, edgeRows))

	var errorRows [][]string
	for i := range mm.Files {
		f := &mm.Files[i]
		for _, msg := range f.Errors {
			errorRows = append(errorRows, []string{f.Path, msg})
		}
	}
	if len(errorRows) > 0 {
		parts = append(parts, formatTabular("errors", []string{"file", "error"}, errorRows))
	}

	return strings.Join(parts, "\n")
}

func pathLabel(path []string) string {
	if len(path) == 0 {
		return rootLabel
	}
	return strings.Join(path, ".")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
