package extract

import (
	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/model"
)

// buildStateNode is the recursive descent over one state-node object
// literal. It returns the reconstructed config for the subtree rooted here
// and the flat metadata sequence in preorder: this node's StateMeta first,
// then its descendants'. Targets attached to this node's StateMeta come only
// from its own transition-bearing keys, in encounter order; descendant
// targets live on the descendants' entries.
func buildStateNode(obj *sitter.Node, path []string, source []byte) (*model.StateNodeConfig, []model.StateMeta, error) {
	if !isObject(obj) {
		return nil, nil, shapeErrf("state node %s must be an object literal, found %s",
			pathString(path), obj.Type())
	}
	entries, err := objectEntries(obj, source, false)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "state node %s", pathString(path))
	}

	cfg := &model.StateNodeConfig{}
	var targets []model.TargetRef
	var childMeta []model.StateMeta

	for _, e := range entries {
		switch e.key {
		case "id", "initial", "type":
			if !isString(e.value) {
				return nil, nil, shapeErrf("state node %s: %q must be a string literal, found %s",
					pathString(path), e.key, e.value.Type())
			}
			s := stringValue(e.value, source)
			switch e.key {
			case "id":
				cfg.ID = s
			case "initial":
				cfg.Initial = s
			case "type":
				cfg.Type = s
			}

		case "states":
			if !isObject(e.value) {
				return nil, nil, shapeErrf("state node %s: \"states\" must be an object literal, found %s",
					pathString(path), e.value.Type())
			}
			children, err := objectEntries(e.value, source, false)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: states", pathString(path))
			}
			for _, child := range children {
				childPath := append(append([]string(nil), path...), child.key)
				childCfg, metas, err := buildStateNode(child.value, childPath, source)
				if err != nil {
					return nil, nil, err
				}
				if cfg.States == nil {
					cfg.States = make(map[string]*model.StateNodeConfig)
				}
				cfg.States[child.key] = childCfg
				childMeta = append(childMeta, metas...)
			}

		case "on":
			if !isObject(e.value) {
				return nil, nil, shapeErrf("state node %s: \"on\" must be an object literal, found %s",
					pathString(path), e.value.Type())
			}
			events, err := objectEntries(e.value, source, false)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: on", pathString(path))
			}
			for _, ev := range events {
				transitions, refs, err := resolveTransitions(ev.value, source)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "state node %s: on %q", pathString(path), ev.key)
				}
				if cfg.On == nil {
					cfg.On = make(map[string][]model.Transition)
				}
				cfg.On[ev.key] = transitions
				targets = append(targets, refs...)
			}

		case "always":
			transitions, refs, err := resolveTransitions(e.value, source)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: always", pathString(path))
			}
			cfg.Always = transitions
			targets = append(targets, refs...)

		case "after":
			if !isObject(e.value) {
				return nil, nil, shapeErrf("state node %s: \"after\" must be an object literal, found %s",
					pathString(path), e.value.Type())
			}
			delays, err := objectEntries(e.value, source, true)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: after", pathString(path))
			}
			for _, d := range delays {
				transitions, refs, err := resolveTransitions(d.value, source)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "state node %s: after %q", pathString(path), d.key)
				}
				if cfg.After == nil {
					cfg.After = make(map[string][]model.Transition)
				}
				cfg.After[d.key] = transitions
				targets = append(targets, refs...)
			}

		case "entry", "onEntry":
			actions, err := resolveActions(e.value, source)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: %s", pathString(path), e.key)
			}
			cfg.Entry = append(cfg.Entry, actions...)

		case "exit", "onExit":
			actions, err := resolveActions(e.value, source)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: %s", pathString(path), e.key)
			}
			cfg.Exit = append(cfg.Exit, actions...)

		case "onDone":
			transitions, refs, err := resolveTransitions(e.value, source)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: onDone", pathString(path))
			}
			cfg.OnDone = transitions
			targets = append(targets, refs...)

		case "invoke":
			if !isObject(e.value) && !isArray(e.value) {
				return nil, nil, shapeErrf("state node %s: \"invoke\" must be an object or array literal, found %s",
					pathString(path), e.value.Type())
			}
			invokes, refs, err := resolveInvoke(e.value, source)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "state node %s: invoke", pathString(path))
			}
			cfg.Invoke = append(cfg.Invoke, invokes...)
			targets = append(targets, refs...)

		case "history", "meta":
			// Accepted and intentionally ignored.

		default:
			// Unrecognized keys contribute nothing (forward compatible).
		}
	}

	meta := model.StateMeta{
		Path:     path,
		Location: spanOf(obj),
		Targets:  targets,
	}
	return cfg, append([]model.StateMeta{meta}, childMeta...), nil
}
