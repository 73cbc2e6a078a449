package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/lang"
)

// unwrap strips wrapper nodes that do not change the value being described:
// parentheses and TypeScript assertion forms (as/satisfies/non-null).
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression", "type_assertion":
			inner := n.NamedChild(0)
			if inner == nil || inner == n {
				return n
			}
			n = inner
		default:
			return n
		}
	}
	return n
}

func isObject(n *sitter.Node) bool { return n != nil && n.Type() == "object" }
func isArray(n *sitter.Node) bool  { return n != nil && n.Type() == "array" }
func isString(n *sitter.Node) bool { return n != nil && n.Type() == "string" }
func isNumber(n *sitter.Node) bool { return n != nil && n.Type() == "number" }

// isFunctionExpr reports whether n is an anonymous function-like expression.
// Node type names differ across grammar revisions, so both spellings of the
// function expression are matched.
func isFunctionExpr(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "arrow_function", "function", "function_expression",
		"generator_function", "generator_function_expression":
		return true
	}
	return false
}

// isReference reports whether n is a bare name or member-access reference.
func isReference(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier", "member_expression":
		return true
	}
	return false
}

// stringValue returns the content of a string literal node with its
// enclosing quote characters removed.
func stringValue(n *sitter.Node, source []byte) string {
	text := lang.NodeText(n, source)
	if len(text) >= 2 {
		switch text[0] {
		case '"', '\'', '`':
			if text[len(text)-1] == text[0] {
				return text[1 : len(text)-1]
			}
		}
	}
	return text
}

// entry is one key-value member of an object literal.
type entry struct {
	keyNode *sitter.Node
	key     string
	value   *sitter.Node
}

// objectEntries iterates an object literal's members in source order.
// Keys must be identifier-like: a bare property name or a quoted string.
// Numeric keys are accepted only when numericKeys is set (delay maps).
// Any other member shape (computed keys, spreads, method definitions)
// fails with a schema error.
func objectEntries(obj *sitter.Node, source []byte, numericKeys bool) ([]entry, error) {
	var entries []entry
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		member := obj.NamedChild(i)
		if member.Type() == "comment" {
			continue
		}
		if member.Type() != "pair" {
			return nil, schemaErrf("unsupported object member %s (want key: value pairs)", member.Type())
		}
		keyNode := member.ChildByFieldName("key")
		valueNode := member.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			return nil, schemaErrf("malformed object member %q", lang.NodeText(member, source))
		}
		var key string
		switch keyNode.Type() {
		case "property_identifier":
			key = lang.NodeText(keyNode, source)
		case "string":
			key = stringValue(keyNode, source)
		case "number":
			if !numericKeys {
				return nil, schemaErrf("property key %q must be an identifier", lang.NodeText(keyNode, source))
			}
			key = lang.NodeText(keyNode, source)
		default:
			return nil, schemaErrf("property key must be an identifier, found %s", keyNode.Type())
		}
		entries = append(entries, entry{keyNode: keyNode, key: key, value: unwrap(valueNode)})
	}
	return entries, nil
}

// arrayElements returns the named elements of an array literal, comments
// skipped, wrappers unwrapped.
func arrayElements(arr *sitter.Node) []*sitter.Node {
	var elems []*sitter.Node
	for i := 0; i < int(arr.NamedChildCount()); i++ {
		el := arr.NamedChild(i)
		if el.Type() == "comment" {
			continue
		}
		elems = append(elems, unwrap(el))
	}
	return elems
}

// calleeName resolves the invoked name of a call expression: the bare
// identifier, or the final segment of a member-access callee. Returns ""
// for anything else.
func calleeName(call *sitter.Node, source []byte) string {
	fn := unwrap(call.ChildByFieldName("function"))
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return lang.NodeText(fn, source)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return ""
		}
		return lang.NodeText(prop, source)
	}
	return ""
}

// callArguments returns the argument expressions of a call, in order.
func callArguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	return arrayElements(args)
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "(root)"
	}
	return strings.Join(path, ".")
}
