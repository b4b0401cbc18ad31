package report

import (
	"context"

	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/pkg/errors"
)

type walkOptions struct {
	// skipParent renders only the children of the starting node
	skipParent bool
	// noHeader omits the heading of the starting node and its page break
	noHeader bool
}

// walk renders n at level followed by its subtree. Children always render
// with their heading at level+1. depth counts the recursion below the
// starting node.
func (a *Assembler) walk(ctx context.Context, doc *document.Document, n *model.Node, level int, opts walkOptions, depth int) error {
	if skippedNodes[n.Name] {
		return nil
	}
	if depth > a.opts.MaxDepth {
		return errors.ErrTreeTooDeep(n.Name, a.opts.MaxDepth)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !opts.skipParent {
		if level < 3 && !opts.noHeader {
			doc.PageBreak()
		}
		doc.NewLine("")
		if !opts.noHeader {
			doc.Header(headerLevel(level), n.Name)
		}
		if err := a.rich.Render(ctx, doc, n, ""); err != nil {
			return err
		}
	}

	for _, child := range n.Children {
		if err := a.walk(ctx, doc, child, level+1, walkOptions{}, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func headerLevel(level int) int {
	if level > maxHeaderLevel {
		return maxHeaderLevel
	}
	if level < 1 {
		return 1
	}
	return level
}
