package store

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/pkg/errors"
)

// NodeStore defines read operations on notebook nodes.
type NodeStore interface {
	// GetByName returns the node with the given name. When several nodes
	// share the name the one with the lowest node_id wins.
	GetByName(ctx context.Context, name string) (*model.Node, error)
	GetByID(ctx context.Context, id int64) (*model.Node, error)

	// Children returns the direct children of a node in sibling order.
	Children(ctx context.Context, id int64) ([]*model.Node, error)

	// Images returns the images anchored in a node, in row order.
	Images(ctx context.Context, id int64) ([]model.Image, error)

	// CodeBlocks returns the code boxes anchored in a node, in row order.
	CodeBlocks(ctx context.Context, id int64) ([]model.CodeBlock, error)

	Count(ctx context.Context) (int64, error)
}

type nodeStore struct {
	db *gorm.DB
}

func newNodeStore(db *gorm.DB) NodeStore {
	return &nodeStore{db: db}
}

func (s *nodeStore) GetByName(ctx context.Context, name string) (*model.Node, error) {
	var row model.NodeRow
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("node_id").First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound(fmt.Sprintf("node %q", name))
		}
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query node by name", err)
	}
	return toNode(row)
}

func (s *nodeStore) GetByID(ctx context.Context, id int64) (*model.Node, error) {
	var row model.NodeRow
	err := s.db.WithContext(ctx).Where("node_id = ?", id).First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound(fmt.Sprintf("node id %d", id))
		}
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query node by id", err)
	}
	return toNode(row)
}

func (s *nodeStore) Children(ctx context.Context, id int64) ([]*model.Node, error) {
	var rows []model.NodeRow
	err := s.db.WithContext(ctx).
		Table("node AS n").
		Select("n.node_id, n.name, n.txt").
		Joins("JOIN children c ON c.node_id = n.node_id").
		Where("c.father_id = ?", id).
		Order("c.sequence, n.node_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query children", err)
	}

	nodes := make([]*model.Node, 0, len(rows))
	for _, row := range rows {
		n, err := toNode(row)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *nodeStore) Images(ctx context.Context, id int64) ([]model.Image, error) {
	var images []model.Image
	err := s.db.WithContext(ctx).
		Table("image AS i").
		Select(`n.name AS node_name, i."offset", i.png`).
		Joins("JOIN node n ON n.node_id = i.node_id").
		Where("i.node_id = ?", id).
		Order("i.rowid").
		Scan(&images).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query images", err)
	}
	return images, nil
}

func (s *nodeStore) CodeBlocks(ctx context.Context, id int64) ([]model.CodeBlock, error) {
	var blocks []model.CodeBlock
	err := s.db.WithContext(ctx).
		Table("codebox").
		Select(`"offset", txt, syntax`).
		Where("node_id = ?", id).
		Order("rowid").
		Scan(&blocks).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to query code boxes", err)
	}
	return blocks, nil
}

func (s *nodeStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.NodeRow{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to count nodes", err)
	}
	return count, nil
}

func toNode(row model.NodeRow) (*model.Node, error) {
	text, err := NormalizeText(row.Txt)
	if err != nil {
		return nil, errors.ErrMalformedContent(row.Name, err)
	}
	return &model.Node{
		ID:   row.NodeID,
		Name: row.Name,
		Text: text,
	}, nil
}
