package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
)

// Node is a notebook node with its text already stripped of any XML wrapper.
// Children keep the notebook's sibling order.
type Node struct {
	ID       int64
	Name     string
	Text     string
	Children []*Node
}

// ChildNamed returns the first direct child with the given name, or nil.
func (n *Node) ChildNamed(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Image is an embedded image together with the name of the node owning it.
type Image struct {
	NodeName string `gorm:"column:node_name"`
	Offset   int    `gorm:"column:offset"`
	PNG      []byte `gorm:"column:png"`
}

// CodeBlock is an embedded code box.
type CodeBlock struct {
	Offset int    `gorm:"column:offset"`
	Text   string `gorm:"column:txt"`
	Syntax string `gorm:"column:syntax"`
}

// ExamDateLayout is the layout of Personal.ExamDate (month-day-year).
const ExamDateLayout = "01-02-2006"

// LongDateLayout renders an exam date for prose, e.g. "Monday, January 02, 2006".
const LongDateLayout = "Monday, January 02, 2006"

// Personal is the candidate information stored as JSON in the Personal node.
type Personal struct {
	Name     string `json:"name"`
	ExamDate string `json:"exam_date"`
	OSID     string `json:"osid"`
	Email    string `json:"email"`
}

// ParsePersonal decodes the Personal node text.
func ParsePersonal(text string) (*Personal, error) {
	var p Personal
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return nil, fmt.Errorf("decode personal info: %w", err)
	}
	if p.OSID == "" {
		return nil, fmt.Errorf("personal info has no osid")
	}
	if p.ExamDate == "" {
		return nil, fmt.Errorf("personal info has no exam_date")
	}
	return &p, nil
}

// ExamTime parses the exam date.
func (p *Personal) ExamTime() (time.Time, error) {
	t, err := time.Parse(ExamDateLayout, p.ExamDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("exam_date %q is not mm-dd-yyyy: %w", p.ExamDate, err)
	}
	return t, nil
}

// LongExamDate returns the exam date formatted for prose.
func (p *Personal) LongExamDate() (string, error) {
	t, err := p.ExamTime()
	if err != nil {
		return "", err
	}
	return t.Format(LongDateLayout), nil
}

// PersonalFields lists the keys accepted by Personal.Field
var PersonalFields = []string{"name", "exam_date", "osid", "email", "exam_date_long"}

// IsPersonalField reports whether key names a personal field
func IsPersonalField(key string) bool {
	for _, f := range PersonalFields {
		if f == key {
			return true
		}
	}
	return false
}

// Field returns a personal field by its JSON key. Static sections reference
// their substitution values this way.
func (p *Personal) Field(key string) (string, bool) {
	switch key {
	case "name":
		return p.Name, true
	case "exam_date":
		return p.ExamDate, true
	case "osid":
		return p.OSID, true
	case "email":
		return p.Email, true
	case "exam_date_long":
		s, err := p.LongExamDate()
		if err != nil {
			return "", false
		}
		return s, true
	}
	return "", false
}
