// Package xml defines the output tree produced by grammar interpretation
// and its serialization to XML text.
package xml

import "strings"

// Node is a node in the output tree. The three concrete types are
// *Element, Text and Attr. Attr nodes float upwards through hidden
// layers until an enclosing element lifts them into its attribute list.
type Node interface {
	// TextContent returns the concatenated character content of the
	// node and all its descendants.
	TextContent() string

	node()
}

// Element is a named node with attributes and ordered children.
type Element struct {
	Name       string
	Attributes []Attr
	Children   []Node
}

// Text is a run of character content.
type Text string

// Attr is a name/value pair destined for an element's attribute list.
type Attr struct {
	Name  string
	Value string
}

func (*Element) node() {}
func (Text) node()     {}
func (Attr) node()     {}

func (e *Element) TextContent() string {
	var sb strings.Builder
	for _, child := range e.Children {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

func (t Text) TextContent() string { return string(t) }

func (a Attr) TextContent() string { return a.Value }

// SetAttr appends an attribute, replacing an existing one of the same name.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attributes {
		if e.Attributes[i].Name == name {
			e.Attributes[i].Value = value
			return
		}
	}
	e.Attributes = append(e.Attributes, Attr{Name: name, Value: value})
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
