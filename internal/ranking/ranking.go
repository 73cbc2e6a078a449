// Package ranking implements output-budget-aware machine selection.
package ranking

import (
	"sort"

	"github.com/chartmap/chartmap/internal/model"
)

// SelectMachines returns a new MachineMap with only the top-scoring
// machines, where a machine's score is the sum of its state ranks. File and
// machine order is preserved; edges of dropped machines are dropped and the
// remaining edges are renumbered to the kept machine indices. If maxMachines
// is <= 0 or covers every machine, mm is returned unchanged.
func SelectMachines(mm *model.MachineMap, maxMachines int) *model.MachineMap {
	total := 0
	for i := range mm.Files {
		total += len(mm.Files[i].Machines)
	}
	if maxMachines <= 0 || maxMachines >= total {
		return mm
	}

	type ref struct {
		file, machine int
		score         float64
	}
	refs := make([]ref, 0, total)
	for i := range mm.Files {
		for j := range mm.Files[i].Machines {
			var score float64
			for _, meta := range mm.Files[i].Machines[j].StatesMeta {
				score += meta.Rank
			}
			refs = append(refs, ref{file: i, machine: j, score: score})
		}
	}
	sort.SliceStable(refs, func(a, b int) bool {
		return refs[a].score > refs[b].score
	})

	keep := make(map[[2]int]struct{}, maxMachines)
	for _, r := range refs[:maxMachines] {
		keep[[2]int{r.file, r.machine}] = struct{}{}
	}

	out := &model.MachineMap{RepoName: mm.RepoName, Root: mm.Root}
	remap := make(map[[2]int]int)
	for i := range mm.Files {
		f := &mm.Files[i]
		kept := model.FileMachines{Path: f.Path, Language: f.Language, Errors: f.Errors}
		for j := range f.Machines {
			if _, ok := keep[[2]int{i, j}]; ok {
				remap[[2]int{i, j}] = len(kept.Machines)
				kept.Machines = append(kept.Machines, f.Machines[j])
			}
		}
		if len(kept.Machines) > 0 || len(kept.Errors) > 0 {
			out.Files = append(out.Files, kept)
		}
	}

	fileIdx := make(map[string]int, len(mm.Files))
	for i := range mm.Files {
		fileIdx[mm.Files[i].Path] = i
	}
	for _, e := range mm.Edges {
		i, ok := fileIdx[e.File]
		if !ok {
			continue
		}
		if newIdx, ok := remap[[2]int{i, e.Machine}]; ok {
			e.Machine = newIdx
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
