package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/chartmap/chartmap/internal/model"
)

// spanOf converts a tree-sitter node span into a model.Span.
// Lines are 1-based (tree-sitter rows are 0-based), columns are 0-based.
func spanOf(n *sitter.Node) model.Span {
	return model.Span{
		Start: model.Position{
			Offset: int(n.StartByte()),
			Line:   int(n.StartPoint().Row) + 1,
			Column: int(n.StartPoint().Column),
		},
		End: model.Position{
			Offset: int(n.EndByte()),
			Line:   int(n.EndPoint().Row) + 1,
			Column: int(n.EndPoint().Column),
		},
	}
}
