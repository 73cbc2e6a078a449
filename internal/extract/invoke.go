package extract

import (
	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/model"
)

// resolveInvoke builds invoke entries from a single invoke object or an
// array of them (order preserved), together with the targets surfaced by
// their onDone/onError transitions.
func resolveInvoke(n *sitter.Node, source []byte) ([]model.InvokeConfig, []model.TargetRef, error) {
	n = unwrap(n)
	if isArray(n) {
		var invokes []model.InvokeConfig
		var targets []model.TargetRef
		for _, el := range arrayElements(n) {
			inv, refs, err := resolveInvokeObject(el, source)
			if err != nil {
				return nil, nil, err
			}
			invokes = append(invokes, inv)
			targets = append(targets, refs...)
		}
		return invokes, targets, nil
	}
	inv, targets, err := resolveInvokeObject(n, source)
	if err != nil {
		return nil, nil, err
	}
	return []model.InvokeConfig{inv}, targets, nil
}

func resolveInvokeObject(n *sitter.Node, source []byte) (model.InvokeConfig, []model.TargetRef, error) {
	if !isObject(n) {
		return model.InvokeConfig{}, nil, shapeErrf(
			"invoke must be an object literal or an array of object literals, found %s", n.Type())
	}
	entries, err := objectEntries(n, source, false)
	if err != nil {
		return model.InvokeConfig{}, nil, errors.Wrap(err, "invoke")
	}

	// An invoke with no src at all is an anonymous service.
	inv := model.InvokeConfig{Src: model.InvokeSrc{Kind: model.SrcAnonymous}}
	var targets []model.TargetRef

	for _, e := range entries {
		switch e.key {
		case "id":
			if !isString(e.value) {
				return model.InvokeConfig{}, nil, shapeErrf(
					"invoke id must be a string literal, found %s", e.value.Type())
			}
			inv.ID = stringValue(e.value, source)
		case "src":
			switch {
			case isString(e.value):
				inv.Src = model.InvokeSrc{Kind: model.SrcNamed, Name: stringValue(e.value, source)}
			case isReference(e.value), isFunctionExpr(e.value):
				inv.Src = model.InvokeSrc{Kind: model.SrcAnonymous}
			default:
				return model.InvokeConfig{}, nil, shapeErrf(
					"unsupported invoke src %s (want a string, a name reference, or a function)",
					e.value.Type())
			}
		case "onDone":
			var refs []model.TargetRef
			inv.OnDone, refs, err = resolveTransitions(e.value, source)
			if err != nil {
				return model.InvokeConfig{}, nil, errors.Wrap(err, "invoke onDone")
			}
			targets = append(targets, refs...)
		case "onError":
			var refs []model.TargetRef
			inv.OnError, refs, err = resolveTransitions(e.value, source)
			if err != nil {
				return model.InvokeConfig{}, nil, errors.Wrap(err, "invoke onError")
			}
			targets = append(targets, refs...)
		case "autoForward", "forward", "data":
			// Accepted and intentionally ignored.
		}
	}
	return inv, targets, nil
}
