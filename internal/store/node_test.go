package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/ctreport/pkg/errors"
)

func TestNodeStore_GetByName(t *testing.T) {
	f := NewFixture(t)
	hosts := f.AddNode(0, "Hosts", "")
	f.AddNode(hosts, "10.10.10.5", "plain notes")

	node, err := f.Store().Nodes().GetByName(context.Background(), "10.10.10.5")
	if err != nil {
		t.Fatalf("GetByName() failed: %v", err)
	}
	if node.Text != "plain notes" {
		t.Errorf("Expected text 'plain notes', got '%s'", node.Text)
	}
	if node.ID != 2 {
		t.Errorf("Expected ID 2, got %d", node.ID)
	}
}

func TestNodeStore_GetByName_NotFound(t *testing.T) {
	f := NewFixture(t)

	_, err := f.Store().Nodes().GetByName(context.Background(), "Personal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestNodeStore_GetByName_DuplicateTakesLowestID(t *testing.T) {
	f := NewFixture(t)
	first := f.AddNode(0, "Proof", "first")
	f.AddNode(0, "Proof", "second")

	node, err := f.Store().Nodes().GetByName(context.Background(), "Proof")
	require.NoError(t, err)
	assert.Equal(t, first, node.ID)
	assert.Equal(t, "first", node.Text)
}

func TestNodeStore_GetByID(t *testing.T) {
	f := NewFixture(t)
	f.AddNode(0, "Hosts", "")
	id := f.AddNode(0, "Personal", `{"osid":"OS-1"}`)

	node, err := f.Store().Nodes().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Personal", node.Name)

	_, err = f.Store().Nodes().GetByID(context.Background(), 99)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestNodeStore_Children_Ordered(t *testing.T) {
	f := NewFixture(t)
	root := f.AddNode(0, "Hosts", "")
	f.AddNode(root, "b-host", "")
	f.AddNode(root, "a-host", "")
	f.AddNode(root, "c-host", "")

	// Move b-host to the end of the sibling order
	require.NoError(t, f.DB().Exec("UPDATE children SET sequence = 10 WHERE node_id = 2").Error)

	children, err := f.Store().Nodes().Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, children, 3)

	names := []string{children[0].Name, children[1].Name, children[2].Name}
	assert.Equal(t, []string{"a-host", "c-host", "b-host"}, names)
}

func TestNodeStore_Children_NormalizesXML(t *testing.T) {
	f := NewFixture(t)
	root := f.AddNode(0, "Hosts", "")
	f.AddNode(root, "rich", `<?xml version="1.0" ?><node><rich_text>nmap </rich_text><rich_text weight="heavy">-sV</rich_text></node>`)

	children, err := f.Store().Nodes().Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "nmap -sV", children[0].Text)
}

func TestNodeStore_Children_MalformedXML(t *testing.T) {
	f := NewFixture(t)
	root := f.AddNode(0, "Hosts", "")
	f.AddNode(root, "broken", `<?xml version="1.0" ?><node><rich_text>oops</node>`)

	_, err := f.Store().Nodes().Children(context.Background(), root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedContent), "got %v", err)
}

func TestNodeStore_ImagesAndCodeBlocks(t *testing.T) {
	f := NewFixture(t)
	id := f.AddNode(0, "Exploit", "abcdef")
	f.AddImage(id, 4, []byte("png-2"))
	f.AddImage(id, 1, []byte("png-1"))
	f.AddCodebox(id, 2, "id")

	images, err := f.Store().Nodes().Images(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, images, 2)
	// Row order, not offset order
	assert.Equal(t, 4, images[0].Offset)
	assert.Equal(t, []byte("png-2"), images[0].PNG)
	assert.Equal(t, "Exploit", images[0].NodeName)
	assert.Equal(t, 1, images[1].Offset)

	blocks, err := f.Store().Nodes().CodeBlocks(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 2, blocks[0].Offset)
	assert.Equal(t, "id", blocks[0].Text)
	assert.Equal(t, "sh", blocks[0].Syntax)
}

func TestNodeStore_Count(t *testing.T) {
	f := NewFixture(t)
	f.AddNode(0, "Hosts", "")
	f.AddNode(0, "Personal", "")

	count, err := f.Store().Nodes().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
