// Package model defines core data structures for chartmap.
package model

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Position is a point in a source file.
type Position struct {
	Offset int // byte offset from the start of the file
	Line   int // 1-based
	Column int // bytes from the start of the line, 0-based
}

// Span covers the source text from Start (inclusive) to End (exclusive).
type Span struct {
	Start Position
	End   Position
}

// TargetRef records one transition target exactly as written in source.
// Target is not resolved to a concrete state node; it may be absolute
// ("#id"), relative (".child"), a sibling name, or a history marker.
type TargetRef struct {
	Target   string
	Location Span // span of the string constant token, quotes included
}

// StateMeta describes one state node of an extracted machine.
type StateMeta struct {
	Path     []string // key path from the root state node; empty for the root
	Location Span     // span of the object literal defining this state
	Targets  []TargetRef
	Rank     float64
}

// GuardKind classifies a guard reference.
type GuardKind string

const (
	GuardNamed GuardKind = "named"
	// GuardAlwaysTrue stands in for guards that cannot be resolved
	// statically (inline functions, identifier references). Structural
	// only: callers must not treat it as behaviorally true.
	GuardAlwaysTrue GuardKind = "always-true"
)

// GuardRef references a guard condition.
type GuardRef struct {
	Kind GuardKind
	Name string // set when Kind == GuardNamed
}

// ActionKind classifies an action reference.
type ActionKind string

const (
	ActionNamed      ActionKind = "named"
	ActionOpaque     ActionKind = "opaque"
	ActionAssign     ActionKind = "assign"
	ActionSend       ActionKind = "send"
	ActionSendParent ActionKind = "send-parent"
	ActionForwardTo  ActionKind = "forward-to"
	ActionStop       ActionKind = "stop"
	ActionChoose     ActionKind = "choose"
)

// ActionRef references an action: a literal name, a recognized built-in
// form, or an opaque placeholder for behavior that is not inspected.
type ActionRef struct {
	Kind     ActionKind
	Name     string         // set when Kind == ActionNamed
	To       string         // set when Kind == ActionForwardTo
	Branches []ChooseBranch // set when Kind == ActionChoose, input order
}

// ChooseBranch is one branch of a choose() built-in action.
type ChooseBranch struct {
	Cond    *GuardRef
	Actions []ActionRef
}

// Transition is the canonical form of a single transition candidate.
// Arrays of guarded transitions keep their source order (guard priority).
type Transition struct {
	Target  string // "" when the transition declares no target
	Cond    *GuardRef
	Actions []ActionRef
}

// SrcKind classifies an invoked service source.
type SrcKind string

const (
	SrcNamed     SrcKind = "named"
	SrcAnonymous SrcKind = "anonymous"
)

// InvokeSrc references an invoked service source.
type InvokeSrc struct {
	Kind SrcKind
	Name string // set when Kind == SrcNamed
}

// InvokeConfig is one invoke entry of a state node.
type InvokeConfig struct {
	ID      string
	Src     InvokeSrc
	OnDone  []Transition
	OnError []Transition
}

// StateNodeConfig is the reconstructed configuration of one state node.
// Entry order of States is not preserved here; order-sensitive consumers
// read the preorder StatesMeta sequence instead.
type StateNodeConfig struct {
	ID      string
	Initial string
	Type    string
	States  map[string]*StateNodeConfig
	On      map[string][]Transition
	Always  []Transition
	After   map[string][]Transition
	Entry   []ActionRef
	Exit    []ActionRef
	OnDone  []Transition
	Invoke  []InvokeConfig
}

// ParseResult is the outcome of extracting one machine-factory invocation.
type ParseResult struct {
	Config *StateNodeConfig
	// Node is the config object literal, retained for downstream span
	// queries. The owning tree is kept alive through it.
	Node       *sitter.Node
	Location   Span        // span of the config object literal
	StatesMeta []StateMeta // root first, preorder
}

// FileMachines holds every machine extracted from a single source file.
type FileMachines struct {
	Path     string // relative to the scan root
	Language string
	Machines []ParseResult
	Errors   []string // per-machine errors when extraction continues past failures
}

// Edge is one resolved transition in the state graph. Source and Target are
// dot-joined state paths; when a target string cannot be resolved to a state
// of the same machine, Target keeps the raw string and Resolved is false.
type Edge struct {
	File     string
	Machine  int // index of the machine within its file
	Source   string
	Target   string
	Event    string // event name, or "always"/"after:<delay>"/"done"/"invoke"
	Resolved bool
}

// MachineMap is the complete extracted map, ready for serialization.
type MachineMap struct {
	RepoName string
	Root     string
	Files    []FileMachines
	Edges    []Edge
}
