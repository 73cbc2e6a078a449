package extract

import (
	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/model"
)

// resolveActions classifies an action expression or an array of action
// expressions, preserving order.
func resolveActions(n *sitter.Node, source []byte) ([]model.ActionRef, error) {
	n = unwrap(n)
	if isArray(n) {
		var actions []model.ActionRef
		for _, el := range arrayElements(n) {
			a, err := resolveAction(el, source)
			if err != nil {
				return nil, err
			}
			actions = append(actions, a)
		}
		return actions, nil
	}
	a, err := resolveAction(n, source)
	if err != nil {
		return nil, err
	}
	return []model.ActionRef{a}, nil
}

// resolveAction classifies a single action expression: a literal name, a
// recognized built-in constructor call, or an opaque placeholder for
// behavior that is not inspected.
func resolveAction(n *sitter.Node, source []byte) (model.ActionRef, error) {
	n = unwrap(n)
	switch {
	case isString(n):
		return model.ActionRef{Kind: model.ActionNamed, Name: stringValue(n, source)}, nil
	case isReference(n):
		return model.ActionRef{Kind: model.ActionOpaque}, nil
	case n.Type() == "call_expression":
		return resolveActionCall(n, source)
	case isFunctionExpr(n):
		return model.ActionRef{Kind: model.ActionOpaque}, nil
	}
	return model.ActionRef{}, shapeErrf(
		"unsupported action expression %s (want a string, a name reference, a function, or an action constructor call)",
		n.Type())
}

func resolveActionCall(call *sitter.Node, source []byte) (model.ActionRef, error) {
	args := callArguments(call)
	switch calleeName(call, source) {
	case "assign":
		// The updater body is intentionally not evaluated.
		return model.ActionRef{Kind: model.ActionAssign}, nil
	case "send":
		return model.ActionRef{Kind: model.ActionSend}, nil
	case "sendParent":
		return model.ActionRef{Kind: model.ActionSendParent}, nil
	case "forwardTo":
		if len(args) == 0 || !isString(args[0]) {
			return model.ActionRef{}, shapeErrf("forwardTo requires a string literal target id")
		}
		return model.ActionRef{Kind: model.ActionForwardTo, To: stringValue(args[0], source)}, nil
	case "stop":
		return model.ActionRef{Kind: model.ActionStop}, nil
	case "choose":
		return resolveChoose(args, source)
	}
	// Unknown constructors are carried as opaque placeholders; their
	// effect is not modeled.
	return model.ActionRef{Kind: model.ActionOpaque}, nil
}

func resolveChoose(args []*sitter.Node, source []byte) (model.ActionRef, error) {
	if len(args) == 0 || !isArray(args[0]) {
		return model.ActionRef{}, shapeErrf("choose requires an array literal of branch objects")
	}
	var branches []model.ChooseBranch
	for _, el := range arrayElements(args[0]) {
		if !isObject(el) {
			return model.ActionRef{}, shapeErrf("choose branch must be an object literal, found %s", el.Type())
		}
		entries, err := objectEntries(el, source, false)
		if err != nil {
			return model.ActionRef{}, errors.Wrap(err, "choose branch")
		}
		var branch model.ChooseBranch
		for _, e := range entries {
			switch e.key {
			case "actions":
				branch.Actions, err = resolveActions(e.value, source)
				if err != nil {
					return model.ActionRef{}, errors.Wrap(err, "choose branch actions")
				}
			case "cond":
				branch.Cond, err = resolveGuard(e.value, source)
				if err != nil {
					return model.ActionRef{}, errors.Wrap(err, "choose branch cond")
				}
			}
		}
		branches = append(branches, branch)
	}
	return model.ActionRef{Kind: model.ActionChoose, Branches: branches}, nil
}
