// chartmap extracts statechart machine definitions from JavaScript and
// TypeScript sources and emits a machine map in TOON format.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/discover"
	"github.com/chartmap/chartmap/internal/extract"
	"github.com/chartmap/chartmap/internal/graph"
	"github.com/chartmap/chartmap/internal/lang"
	"github.com/chartmap/chartmap/internal/model"
	"github.com/chartmap/chartmap/internal/ranking"
	"github.com/chartmap/chartmap/internal/toon"
)

var version = "dev"

const defaultMaxFileSize = 1_000_000 // 1 MB

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "init" {
		return runInit(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("chartmap", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		maxMachines int
		langs       string
		cachePath   string
		maxFileSize int
		skipFailed  bool
		showVersion bool
	)

	fs.IntVar(&maxMachines, "n", 0, "maximum number of machines to include")
	fs.IntVar(&maxMachines, "max-machines", 0, "maximum number of machines to include")
	fs.StringVar(&langs, "l", "", "comma-separated languages to include")
	fs.StringVar(&langs, "langs", "", "comma-separated languages to include")
	fs.StringVar(&cachePath, "cache", "", "cache file path")
	fs.IntVar(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	fs.BoolVar(&skipFailed, "skip-failed", false, "skip machines that fail to extract instead of skipping the whole file")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "chartmap %s\n", version)
		return nil
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	var langFilter []string
	if langs != "" {
		for _, name := range strings.Split(langs, ",") {
			name = strings.TrimSpace(name)
			if _, ok := lang.Languages[name]; !ok {
				return fmt.Errorf("unsupported language %q", name)
			}
			langFilter = append(langFilter, name)
		}
	}

	// Discover files
	files, err := discover.Files(root, langFilter)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no scannable files found")
	}

	// Check cache freshness
	if cachePath != "" && cacheIsFresh(cachePath, root, files) {
		data, err := os.ReadFile(cachePath)
		if err == nil {
			_, _ = stdout.Write(data)
			return nil
		}
	}

	// Filter by size
	files = filterBySize(root, files, maxFileSize, stderr)
	if len(files) == 0 {
		return fmt.Errorf("no scannable files found (all exceeded size limit)")
	}

	// Extract machines concurrently
	fileMachines := scanFilesConcurrent(root, files, skipFailed, stderr)
	if len(fileMachines) == 0 {
		return fmt.Errorf("no machine definitions found")
	}

	// Build transition graph and rank states
	edges := graph.BuildEdges(fileMachines)
	graph.Rank(fileMachines, edges)

	mm := &model.MachineMap{
		RepoName: filepath.Base(root),
		Root:     filepath.Base(root),
		Files:    fileMachines,
		Edges:    edges,
	}

	// Select top N machines
	if maxMachines > 0 {
		mm = ranking.SelectMachines(mm, maxMachines)
	}

	// Encode to TOON
	output := toon.Encode(mm)

	// Write cache
	if cachePath != "" {
		_ = os.WriteFile(cachePath, []byte(output+"\n"), 0o644)
	}

	_, _ = fmt.Fprintln(stdout, output)
	return nil
}

func cacheIsFresh(cachePath, root string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, stderr io.Writer) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: skipped (>%d bytes)\n", f.Path, maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// scanFilesConcurrent extracts machines from every discovered file using a
// worker pool. Each goroutine owns its parsers; the extractor itself is
// stateless, so no coordination is needed beyond collecting results. Files
// without machine definitions are dropped from the result.
func scanFilesConcurrent(root string, files []discover.FileEntry, skipFailed bool, stderr io.Writer) []model.FileMachines {
	type result struct {
		index int
		info  model.FileMachines
		ok    bool
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	var stderrMu sync.Mutex

	warnf := func(format string, args ...interface{}) {
		stderrMu.Lock()
		_, _ = fmt.Fprintf(stderr, format, args...)
		stderrMu.Unlock()
	}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parsers
			parsers := make(map[string]*sitter.Parser)

			for idx := range work {
				f := files[idx]
				parser, ok := parsers[f.Language]
				if !ok {
					parser = lang.Languages[f.Language].NewParser()
					parsers[f.Language] = parser
				}

				source, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					warnf("Warning: failed to read %s: %v\n", f.Path, err)
					continue
				}

				machines, machineErrs, err := extract.Machines(parser, source,
					extract.Options{ContinueOnError: skipFailed})
				if err != nil {
					warnf("Warning: %s: %v\n", f.Path, err)
					continue
				}

				info := model.FileMachines{
					Path:     f.Path,
					Language: f.Language,
					Machines: machines,
				}
				for _, merr := range machineErrs {
					warnf("Warning: %s: %v\n", f.Path, merr)
					info.Errors = append(info.Errors, merr.Error())
				}
				if len(info.Machines) == 0 && len(info.Errors) == 0 {
					continue
				}
				results <- result{index: idx, info: info, ok: true}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]model.FileMachines, len(files))
	valid := make([]bool, len(files))
	for r := range results {
		indexed[r.index] = r.info
		valid[r.index] = r.ok
	}

	var fileMachines []model.FileMachines
	for i, v := range valid {
		if v {
			fileMachines = append(fileMachines, indexed[i])
		}
	}

	return fileMachines
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-n": true, "--n": true,
	"-max-machines": true, "--max-machines": true,
	"-l": true, "--l": true,
	"-langs": true, "--langs": true,
	"-cache": true, "--cache": true,
	"-max-file-size": true, "--max-file-size": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
