// Package richtext rebuilds a node's reading order from its text and the
// images and code boxes anchored into it.
package richtext

import (
	"context"
	"fmt"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/store"
	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// FragmentKind distinguishes embedded objects
type FragmentKind string

const (
	// FragmentImage is an embedded PNG image
	FragmentImage FragmentKind = "image"
	// FragmentCode is an embedded code box
	FragmentCode FragmentKind = "codebox"
)

// Fragment is an image or code box anchored at Offset in the node's
// original text.
type Fragment struct {
	Kind   FragmentKind
	Offset int
	// File is the image file name, Text and Lang describe a code box
	File string
	Text string
	Lang string
}

// Reconstructor writes rich node content into a document
type Reconstructor struct {
	nodes     store.NodeStore
	sink      ImageSink
	imagesRef string
	metrics   *telemetry.Metrics
}

// Option configures a Reconstructor
type Option func(*Reconstructor)

// WithImagesRef sets the directory used in image references (default "images")
func WithImagesRef(dir string) Option {
	return func(r *Reconstructor) { r.imagesRef = dir }
}

// WithMetrics records fragment counters
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reconstructor) { r.metrics = m }
}

// New creates a Reconstructor reading fragments from nodes and saving images to sink
func New(nodes store.NodeStore, sink ImageSink, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		nodes:     nodes,
		sink:      sink,
		imagesRef: "images",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fragments loads the node's images and code boxes, saves the images, and
// returns both merged in reading order.
func (r *Reconstructor) Fragments(ctx context.Context, n *model.Node) ([]Fragment, error) {
	images, err := r.nodes.Images(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	codes, err := r.nodes.CodeBlocks(ctx, n.ID)
	if err != nil {
		return nil, err
	}

	frags := make([]Fragment, 0, len(images)+len(codes))
	for i, img := range images {
		name := ImageName(img.NodeName, i+1)
		if err := r.sink.WriteImage(name, img.PNG); err != nil {
			return nil, err
		}
		frags = append(frags, Fragment{Kind: FragmentImage, Offset: img.Offset, File: name})
	}
	for _, cb := range codes {
		frags = append(frags, Fragment{Kind: FragmentCode, Offset: cb.Offset, Text: cb.Text, Lang: fenceLanguage(cb.Syntax)})
	}
	Sort(frags)
	return frags, nil
}

// Render appends the node's content to doc. label, when set, is written
// once in front of the first text segment.
func (r *Reconstructor) Render(ctx context.Context, doc *document.Document, n *model.Node, label string) error {
	frags, err := r.Fragments(ctx, n)
	if err != nil {
		return err
	}
	Emit(doc, n.Text, frags, label, r.imagesRef)

	for _, f := range frags {
		if r.metrics != nil {
			r.metrics.RecordFragment(ctx, string(f.Kind))
		}
	}
	if len(frags) > 0 {
		logger.Debug("Rendered rich content",
			zap.String(logger.FieldNode, n.Name),
			zap.Int("fragments", len(frags)),
		)
	}
	return nil
}

// Emit writes text interleaved with frags, which must already be sorted.
// Image references point into imagesRef.
func Emit(doc *document.Document, text string, frags []Fragment, label, imagesRef string) {
	runes := []rune(text)

	if len(frags) == 0 {
		if label != "" {
			doc.Paragraph(label)
			doc.Write(text)
			return
		}
		doc.Paragraph(text)
		return
	}

	prev := 0
	for i, f := range frags {
		start, end := segmentBounds(prev, f.Offset, i, len(runes))
		segment := string(runes[start:end])
		if i == 0 && label != "" {
			doc.Paragraph(label)
			doc.Write(segment)
		} else {
			doc.Paragraph(segment)
		}
		emitFragment(doc, f, imagesRef)
		prev = f.Offset
	}

	start, _ := segmentBounds(prev, prev, len(frags)-1, len(runes))
	doc.Paragraph(string(runes[start:]))
}

// segmentBounds converts the original-text offsets [from, to) of the text
// segment that precedes fragment n into indices of the stored text.
//
// Each fragment already placed is assumed to have inserted exactly one line
// break into the stored text, so both bounds shift left by n, the number of
// fragments emitted before this segment. The tail after the last fragment
// (index k-1) is sliced from the returned start with n = k-1. Bounds are
// clamped to [0, length] so offsets past the end of the text yield empty
// segments instead of panics.
func segmentBounds(from, to, n, length int) (start, end int) {
	start = clamp(from-n, length)
	end = clamp(to-n, length)
	if end < start {
		end = start
	}
	return start, end
}

func clamp(i, length int) int {
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func emitFragment(doc *document.Document, f Fragment, imagesRef string) {
	switch f.Kind {
	case FragmentImage:
		doc.Image("", path.Join(imagesRef, f.File))
	case FragmentCode:
		doc.Code(f.Text, f.Lang)
	}
}

// Sort orders fragments by offset. Fragments sharing an offset keep their
// relative order, so images stay ahead of code boxes and each keeps store order.
func Sort(frags []Fragment) {
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].Offset < frags[j].Offset })
}

// ImageName returns the file name of the seq-th (1-based) image of a node
func ImageName(nodeName string, seq int) string {
	return fmt.Sprintf("%s-%d.png", nodeName, seq)
}

// fenceLanguage maps a CherryTree syntax name to a code fence language
func fenceLanguage(syntax string) string {
	switch syntax {
	case "", "plain-text", "custom-colors":
		return ""
	}
	return syntax
}
