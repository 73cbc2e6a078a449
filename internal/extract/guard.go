package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/model"
)

// resolveGuard classifies a guard expression. String constants become named
// references. References and inline functions cannot be evaluated
// statically, so they become the always-satisfied placeholder.
func resolveGuard(n *sitter.Node, source []byte) (*model.GuardRef, error) {
	n = unwrap(n)
	switch {
	case isString(n):
		return &model.GuardRef{Kind: model.GuardNamed, Name: stringValue(n, source)}, nil
	case isReference(n), isFunctionExpr(n):
		return &model.GuardRef{Kind: model.GuardAlwaysTrue}, nil
	}
	return nil, shapeErrf("unsupported guard expression %s (want a string, a name reference, or a function)", n.Type())
}
