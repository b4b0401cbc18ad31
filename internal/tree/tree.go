// Package tree assembles notebook nodes into an in-memory tree and searches it.
package tree

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/store"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// DefaultMaxDepth bounds recursion when the caller does not configure a limit.
const DefaultMaxDepth = 64

// Build loads every descendant of root and attaches them in sibling order.
// The root sits at depth 0; a node deeper than maxDepth fails with TreeTooDeep.
func Build(ctx context.Context, nodes store.NodeStore, root *model.Node, maxDepth int) (*model.Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if err := populate(ctx, nodes, root, 0, maxDepth); err != nil {
		return nil, err
	}
	return root, nil
}

func populate(ctx context.Context, nodes store.NodeStore, parent *model.Node, depth, maxDepth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, err := nodes.Children(ctx, parent.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 && depth+1 > maxDepth {
		return errors.ErrTreeTooDeep(children[0].Name, maxDepth)
	}

	parent.Children = children
	for _, child := range children {
		if err := populate(ctx, nodes, child, depth+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}

// Load fetches the node called name and builds its subtree.
func Load(ctx context.Context, nodes store.NodeStore, name string, maxDepth int) (_ *model.Node, err error) {
	ctx, span := telemetry.StartSpan(ctx, "tree.load", trace.WithAttributes(telemetry.AttrNodeName.String(name)))
	defer telemetry.EndSpan(span, &err)

	root, err := nodes.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return Build(ctx, nodes, root, maxDepth)
}

// FindDescendant returns the first node below root (root excluded) whose
// name matches, searching depth-first in pre-order with children visited in
// sibling order.
func FindDescendant(root *model.Node, name string) (*model.Node, error) {
	if n := find(root, name); n != nil {
		return n, nil
	}
	return nil, errors.ErrNotFound(fmt.Sprintf("node %q under %q", name, root.Name))
}

// HasDescendant reports whether a node called name exists below root.
func HasDescendant(root *model.Node, name string) bool {
	return find(root, name) != nil
}

func find(parent *model.Node, name string) *model.Node {
	for _, child := range parent.Children {
		if child.Name == name {
			return child
		}
		if n := find(child, name); n != nil {
			return n
		}
	}
	return nil
}

// Without returns a shallow copy of n whose children omit index i.
// The loaded tree itself is never mutated.
func Without(n *model.Node, i int) *model.Node {
	cp := *n
	if i < 0 || i >= len(n.Children) {
		return &cp
	}
	cp.Children = make([]*model.Node, 0, len(n.Children)-1)
	cp.Children = append(cp.Children, n.Children[:i]...)
	cp.Children = append(cp.Children, n.Children[i+1:]...)
	return &cp
}
