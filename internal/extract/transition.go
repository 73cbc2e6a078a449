package extract

import (
	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/model"
)

// resolveTransitions normalizes a transition-bearing value into an ordered
// list of canonical transitions, accumulating every concrete target string
// together with the span of the string constant that produced it. The value
// may be a bare target string, a single transition object, or an array of
// either (array order is guard-priority order and is preserved).
func resolveTransitions(n *sitter.Node, source []byte) ([]model.Transition, []model.TargetRef, error) {
	n = unwrap(n)
	if isArray(n) {
		var transitions []model.Transition
		var targets []model.TargetRef
		for _, el := range arrayElements(n) {
			t, refs, err := resolveTransition(el, source)
			if err != nil {
				return nil, nil, err
			}
			transitions = append(transitions, t)
			targets = append(targets, refs...)
		}
		return transitions, targets, nil
	}
	t, targets, err := resolveTransition(n, source)
	if err != nil {
		return nil, nil, err
	}
	return []model.Transition{t}, targets, nil
}

func resolveTransition(n *sitter.Node, source []byte) (model.Transition, []model.TargetRef, error) {
	n = unwrap(n)
	switch {
	case isString(n):
		target := stringValue(n, source)
		return model.Transition{Target: target},
			[]model.TargetRef{{Target: target, Location: spanOf(n)}}, nil
	case isObject(n):
		return resolveTransitionObject(n, source)
	}
	return model.Transition{}, nil, shapeErrf(
		"unsupported transition %s (want a target string, a transition object, or an array of either)",
		n.Type())
}

func resolveTransitionObject(obj *sitter.Node, source []byte) (model.Transition, []model.TargetRef, error) {
	entries, err := objectEntries(obj, source, false)
	if err != nil {
		return model.Transition{}, nil, errors.Wrap(err, "transition")
	}
	var t model.Transition
	var targets []model.TargetRef
	for _, e := range entries {
		switch e.key {
		case "target":
			if !isString(e.value) {
				return model.Transition{}, nil, shapeErrf(
					"transition target must be a string literal, found %s", e.value.Type())
			}
			t.Target = stringValue(e.value, source)
			targets = append(targets, model.TargetRef{Target: t.Target, Location: spanOf(e.value)})
		case "cond":
			t.Cond, err = resolveGuard(e.value, source)
			if err != nil {
				return model.Transition{}, nil, errors.Wrap(err, "transition cond")
			}
		case "actions":
			t.Actions, err = resolveActions(e.value, source)
			if err != nil {
				return model.Transition{}, nil, errors.Wrap(err, "transition actions")
			}
		}
	}
	return t, targets, nil
}
