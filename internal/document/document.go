// Package document holds the append-only sequence of primitives a report is
// built from. Exporters turn the sequence into markdown, HTML or PDF.
package document

// Kind identifies a primitive
type Kind int

const (
	// KindHeader is an ATX heading
	KindHeader Kind = iota
	// KindParagraph starts a new paragraph
	KindParagraph
	// KindRaw is appended verbatim, without any separator
	KindRaw
	// KindNewLine starts a new line
	KindNewLine
	// KindImage is an inline image reference on its own line
	KindImage
	// KindCode is a fenced code block
	KindCode
	// KindTable is a table whose first row is the header
	KindTable
	// KindPageBreak forces a new page
	KindPageBreak
	// KindList is a bulleted list
	KindList
	// KindFrontMatter is the YAML title block
	KindFrontMatter
)

var kindNames = map[Kind]string{
	KindHeader:      "header",
	KindParagraph:   "paragraph",
	KindRaw:         "raw",
	KindNewLine:     "newline",
	KindImage:       "image",
	KindCode:        "code",
	KindTable:       "table",
	KindPageBreak:   "pagebreak",
	KindList:        "list",
	KindFrontMatter: "frontmatter",
}

// String returns the kind name
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Block is one primitive. Only the fields relevant to its Kind are set.
type Block struct {
	Kind  Kind
	Level int    // header level
	Text  string // header title, paragraph/raw/newline/code/front-matter text
	Alt   string // image alt text
	Path  string // image path relative to the document
	Lang  string // code block language
	// Columns and Cells describe a table, row-major with the header first
	Columns int
	Cells   []string
	// Marker and Items describe a list
	Marker string
	Items  []string
}

// Document is an ordered, append-only list of blocks.
type Document struct {
	blocks []Block
}

// New returns an empty document
func New() *Document {
	return &Document{}
}

func (d *Document) add(b Block) *Document {
	d.blocks = append(d.blocks, b)
	return d
}

// Header appends a heading
func (d *Document) Header(level int, title string) *Document {
	return d.add(Block{Kind: KindHeader, Level: level, Text: title})
}

// Paragraph appends text as a new paragraph
func (d *Document) Paragraph(text string) *Document {
	return d.add(Block{Kind: KindParagraph, Text: text})
}

// Write appends text directly after the previous block
func (d *Document) Write(text string) *Document {
	return d.add(Block{Kind: KindRaw, Text: text})
}

// NewLine appends text on a new line
func (d *Document) NewLine(text string) *Document {
	return d.add(Block{Kind: KindNewLine, Text: text})
}

// Image appends an image reference
func (d *Document) Image(alt, path string) *Document {
	return d.add(Block{Kind: KindImage, Alt: alt, Path: path})
}

// Code appends a fenced code block
func (d *Document) Code(text, lang string) *Document {
	return d.add(Block{Kind: KindCode, Text: text, Lang: lang})
}

// Table appends a table. cells holds the header row followed by the data
// rows; len(cells) must be a multiple of columns.
func (d *Document) Table(columns int, cells []string) *Document {
	cp := make([]string, len(cells))
	copy(cp, cells)
	return d.add(Block{Kind: KindTable, Columns: columns, Cells: cp})
}

// PageBreak appends a forced page break
func (d *Document) PageBreak() *Document {
	return d.add(Block{Kind: KindPageBreak})
}

// List appends a bulleted list
func (d *Document) List(marker string, items []string) *Document {
	cp := make([]string, len(items))
	copy(cp, items)
	return d.add(Block{Kind: KindList, Marker: marker, Items: cp})
}

// FrontMatter appends the YAML title block
func (d *Document) FrontMatter(yaml string) *Document {
	return d.add(Block{Kind: KindFrontMatter, Text: yaml})
}

// Append copies every block of other onto d
func (d *Document) Append(other *Document) *Document {
	d.blocks = append(d.blocks, other.blocks...)
	return d
}

// Blocks returns the blocks in order. The slice must not be modified.
func (d *Document) Blocks() []Block {
	return d.blocks
}

// Len returns the number of blocks
func (d *Document) Len() int {
	return len(d.blocks)
}

// Headers returns the titles of all headings at the given level
func (d *Document) Headers(level int) []string {
	var titles []string
	for _, b := range d.blocks {
		if b.Kind == KindHeader && b.Level == level {
			titles = append(titles, b.Text)
		}
	}
	return titles
}
