// Package graph builds a state-transition graph from extracted machines and
// computes PageRank over states.
package graph

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chartmap/chartmap/internal/model"
)

// RootLabel names the root state node in edge and table output.
const RootLabel = "(root)"

// BuildEdges creates transition edges for every machine. Target strings are
// resolved best-effort against the machine's own states: "#id" paths via the
// id index, ".child" relative to the source state, bare names as siblings
// with a root-child fallback. Targets that do not resolve (external ids,
// history markers) become dangling edges with Resolved=false and the raw
// target string kept verbatim.
func BuildEdges(files []model.FileMachines) []model.Edge {
	type edgeKey struct {
		file           string
		machine        int
		source, target string
		event          string
	}
	seen := make(map[edgeKey]struct{})

	var edges []model.Edge
	for i := range files {
		f := &files[i]
		for j := range f.Machines {
			m := &f.Machines[j]
			pathSet := make(map[string]struct{}, len(m.StatesMeta))
			for k := range m.StatesMeta {
				pathSet[joinPath(m.StatesMeta[k].Path)] = struct{}{}
			}
			idIndex := make(map[string][]string)
			indexIDs(m.Config, nil, idIndex)

			add := func(source []string, event, raw string) {
				if raw == "" {
					return
				}
				target, resolved := resolveTarget(raw, source, pathSet, idIndex)
				key := edgeKey{f.Path, j, labelPath(source), target, event}
				if _, dup := seen[key]; dup {
					return
				}
				seen[key] = struct{}{}
				edges = append(edges, model.Edge{
					File:     f.Path,
					Machine:  j,
					Source:   labelPath(source),
					Target:   target,
					Event:    event,
					Resolved: resolved,
				})
			}
			walkEdges(m.Config, nil, add)
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := &edges[i], &edges[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Machine != b.Machine {
			return a.Machine < b.Machine
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Event != b.Event {
			return a.Event < b.Event
		}
		return a.Target < b.Target
	})
	return edges
}

func walkEdges(cfg *model.StateNodeConfig, path []string, add func(source []string, event, raw string)) {
	if cfg == nil {
		return
	}
	events := make([]string, 0, len(cfg.On))
	for ev := range cfg.On {
		events = append(events, ev)
	}
	sort.Strings(events)
	for _, ev := range events {
		for _, t := range cfg.On[ev] {
			add(path, ev, t.Target)
		}
	}
	for _, t := range cfg.Always {
		add(path, "always", t.Target)
	}
	delays := make([]string, 0, len(cfg.After))
	for d := range cfg.After {
		delays = append(delays, d)
	}
	sort.Strings(delays)
	for _, d := range delays {
		for _, t := range cfg.After[d] {
			add(path, "after:"+d, t.Target)
		}
	}
	for _, t := range cfg.OnDone {
		add(path, "done", t.Target)
	}
	for _, inv := range cfg.Invoke {
		for _, t := range inv.OnDone {
			add(path, "invoke", t.Target)
		}
		for _, t := range inv.OnError {
			add(path, "invoke", t.Target)
		}
	}

	children := make([]string, 0, len(cfg.States))
	for name := range cfg.States {
		children = append(children, name)
	}
	sort.Strings(children)
	for _, name := range children {
		walkEdges(cfg.States[name], appendPath(path, name), add)
	}
}

func indexIDs(cfg *model.StateNodeConfig, path []string, idx map[string][]string) {
	if cfg == nil {
		return
	}
	if cfg.ID != "" {
		if _, dup := idx[cfg.ID]; !dup {
			idx[cfg.ID] = path
		}
	}
	for name, child := range cfg.States {
		indexIDs(child, appendPath(path, name), idx)
	}
}

// resolveTarget maps a raw target string to a dot-joined state path of the
// same machine. Returns the raw string unchanged when resolution fails.
func resolveTarget(raw string, source []string, pathSet map[string]struct{}, idIndex map[string][]string) (string, bool) {
	check := func(p []string) (string, bool) {
		joined := joinPath(p)
		if _, ok := pathSet[joined]; ok {
			return labelPath(p), true
		}
		return "", false
	}

	switch {
	case strings.HasPrefix(raw, "#"):
		segs := strings.Split(raw[1:], ".")
		base, ok := idIndex[segs[0]]
		if !ok {
			return raw, false
		}
		if resolved, ok := check(appendPath(base, segs[1:]...)); ok {
			return resolved, true
		}
	case strings.HasPrefix(raw, "."):
		if resolved, ok := check(appendPath(source, strings.Split(raw[1:], ".")...)); ok {
			return resolved, true
		}
	default:
		segs := strings.Split(raw, ".")
		if len(source) > 0 {
			parent := source[:len(source)-1]
			if resolved, ok := check(appendPath(parent, segs...)); ok {
				return resolved, true
			}
		}
		if resolved, ok := check(segs); ok {
			return resolved, true
		}
	}
	return raw, false
}

// Rank applies PageRank to the states of all machines over resolved edges
// and stores the result on each StateMeta.
func Rank(files []model.FileMachines, edges []model.Edge) {
	nodes := make(map[string]struct{})
	metaByNode := make(map[string]*model.StateMeta)
	for i := range files {
		f := &files[i]
		for j := range f.Machines {
			m := &f.Machines[j]
			for k := range m.StatesMeta {
				meta := &m.StatesMeta[k]
				key := nodeKey(f.Path, j, labelPath(meta.Path))
				nodes[key] = struct{}{}
				metaByNode[key] = meta
			}
		}
	}
	if len(nodes) == 0 {
		return
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, e := range edges {
		if !e.Resolved {
			continue
		}
		src := nodeKey(e.File, e.Machine, e.Source)
		tgt := nodeKey(e.File, e.Machine, e.Target)
		outEdges[src] = append(outEdges[src], tgt)
		outDegree[src]++
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
	for key, meta := range metaByNode {
		meta.Rank = ranks[key]
	}
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		// Distribute rank through edges
		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		// Check convergence
		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func nodeKey(file string, machine int, path string) string {
	return file + "#" + strconv.Itoa(machine) + ":" + path
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}

func labelPath(path []string) string {
	if len(path) == 0 {
		return RootLabel
	}
	return strings.Join(path, ".")
}

func appendPath(path []string, segs ...string) []string {
	out := make([]string, 0, len(path)+len(segs))
	out = append(out, path...)
	return append(out, segs...)
}
