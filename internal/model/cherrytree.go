package model

// The row types below map the tables of a CherryTree SQLite notebook (.ctb).
// Only the columns the report reads are declared; gorm ignores the rest.

// NodeRow is a row of the node table.
type NodeRow struct {
	NodeID    int64  `gorm:"column:node_id;primaryKey;autoIncrement:false"`
	Name      string `gorm:"column:name"`
	Txt       string `gorm:"column:txt"`
	Syntax    string `gorm:"column:syntax"`
	IsRichTxt int    `gorm:"column:is_richtxt"`
	Level     int    `gorm:"column:level"`
}

// TableName returns the CherryTree table name
func (NodeRow) TableName() string { return "node" }

// ChildRow is a row of the children table linking a node to its father.
type ChildRow struct {
	NodeID   int64 `gorm:"column:node_id"`
	FatherID int64 `gorm:"column:father_id"`
	Sequence int   `gorm:"column:sequence"`
}

// TableName returns the CherryTree table name
func (ChildRow) TableName() string { return "children" }

// ImageRow is a row of the image table. Offset is the character position in
// the owning node's text where the image was anchored.
type ImageRow struct {
	NodeID        int64  `gorm:"column:node_id"`
	Offset        int    `gorm:"column:offset"`
	Justification string `gorm:"column:justification"`
	PNG           []byte `gorm:"column:png"`
	Filename      string `gorm:"column:filename"`
}

// TableName returns the CherryTree table name
func (ImageRow) TableName() string { return "image" }

// CodeboxRow is a row of the codebox table.
type CodeboxRow struct {
	NodeID        int64  `gorm:"column:node_id"`
	Offset        int    `gorm:"column:offset"`
	Justification string `gorm:"column:justification"`
	Txt           string `gorm:"column:txt"`
	Syntax        string `gorm:"column:syntax"`
}

// TableName returns the CherryTree table name
func (CodeboxRow) TableName() string { return "codebox" }

// NotebookModels returns the row types of a CherryTree notebook.
// Tests use it to create fixture stores.
func NotebookModels() []any {
	return []any{
		&NodeRow{},
		&ChildRow{},
		&ImageRow{},
		&CodeboxRow{},
	}
}

// NotebookTables lists the tables a usable notebook must contain.
func NotebookTables() []string {
	return []string{"node", "children", "image", "codebox"}
}
