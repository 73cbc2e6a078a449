// Package extract reconstructs statechart machine definitions, with source
// locations, from JavaScript/TypeScript files using tree-sitter. It is a
// static, read-only extractor: machines are never executed, and guard,
// action, and service implementations are captured as opaque references
// only.
package extract

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/lang"
	"github.com/chartmap/chartmap/internal/model"
)

// factoryNames are the recognized machine-factory invocations.
var factoryNames = map[string]struct{}{
	"createMachine": {},
	"Machine":       {},
}

// Options controls extraction behavior.
type Options struct {
	// ContinueOnError skips a machine invocation that fails to extract
	// instead of aborting the whole file. Per-machine errors are returned
	// alongside the successful results.
	ContinueOnError bool
}

// Machines extracts every machine definition from one file's source text.
// Results are in source order of the factory invocations. The caller owns
// the parser; a parser must not be shared across goroutines.
//
// With Options.ContinueOnError unset (the default), the first failing
// machine aborts the file and is returned as the error. When set, failing
// machines are skipped and their errors are collected in the second return
// value.
func Machines(parser *sitter.Parser, source []byte, opts Options) ([]model.ParseResult, []error, error) {
	// Cheap textual pre-filter to avoid parsing files that cannot
	// contain a machine factory call.
	if !bytes.Contains(source, []byte("createMachine")) && !bytes.Contains(source, []byte("Machine")) {
		return nil, nil, nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing source")
	}
	// The tree is deliberately not closed: ParseResult retains node
	// references, and go-tree-sitter frees trees through finalizers.
	root := tree.RootNode()

	var calls []*sitter.Node
	collectFactoryCalls(root, source, &calls)

	var results []model.ParseResult
	var machineErrs []error
	for _, call := range calls {
		res, err := extractMachine(call, root, source)
		if err != nil {
			if opts.ContinueOnError {
				machineErrs = append(machineErrs, err)
				continue
			}
			return nil, nil, err
		}
		results = append(results, res)
	}
	return results, machineErrs, nil
}

// collectFactoryCalls appends, in source (preorder) order, every call
// expression whose callee is a bare name equal to a recognized factory.
func collectFactoryCalls(n *sitter.Node, source []byte, out *[]*sitter.Node) {
	if n.Type() == "call_expression" {
		fn := unwrap(n.ChildByFieldName("function"))
		if fn != nil && fn.Type() == "identifier" {
			if _, ok := factoryNames[lang.NodeText(fn, source)]; ok {
				*out = append(*out, n)
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectFactoryCalls(n.NamedChild(i), source, out)
	}
}

func extractMachine(call, root *sitter.Node, source []byte) (model.ParseResult, error) {
	args := callArguments(call)
	if len(args) == 0 {
		return model.ParseResult{}, shapeErrf("%s: machine config must be an object literal",
			calleeName(call, source))
	}

	cfgNode := args[0]
	switch {
	case isObject(cfgNode):
	case cfgNode.Type() == "identifier":
		name := lang.NodeText(cfgNode, source)
		decl := findDeclarator(root, name, source)
		if decl == nil {
			return model.ParseResult{}, resolutionErrf(
				"no variable declaration found for machine config %q", name)
		}
		init := unwrap(decl.ChildByFieldName("value"))
		if init == nil || !isObject(init) {
			return model.ParseResult{}, resolutionErrf(
				"machine config %q is not initialized with an object literal", name)
		}
		cfgNode = init
	default:
		return model.ParseResult{}, shapeErrf("machine config must be an object literal, found %s",
			cfgNode.Type())
	}

	cfg, metas, err := buildStateNode(cfgNode, nil, source)
	if err != nil {
		return model.ParseResult{}, err
	}
	return model.ParseResult{
		Config:     cfg,
		Node:       cfgNode,
		Location:   spanOf(cfgNode),
		StatesMeta: metas,
	}, nil
}

// findDeclarator returns the first variable declarator in file order that
// binds name. This is a flat whole-file search, not lexical scope
// resolution; the first occurrence wins.
func findDeclarator(n *sitter.Node, name string, source []byte) *sitter.Node {
	if n.Type() == "variable_declarator" {
		id := n.ChildByFieldName("name")
		if id != nil && id.Type() == "identifier" && lang.NodeText(id, source) == name {
			return n
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := findDeclarator(n.NamedChild(i), name, source); found != nil {
			return found
		}
	}
	return nil
}
