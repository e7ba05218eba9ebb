package xml

import (
	"io"
	"strings"
)

// Encode writes the XML serialization of node to w.
func Encode(w io.Writer, node Node) error {
	_, err := io.WriteString(w, Marshal(node))
	return err
}

// Marshal returns the XML serialization of node. Attribute values are
// single-quoted; empty elements are self-closing. Stray Attr nodes
// (ones no element lifted) serialize to nothing.
func Marshal(node Node) string {
	var sb strings.Builder
	marshal(&sb, node)
	return sb.String()
}

func marshal(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Element:
		sb.WriteByte('<')
		sb.WriteString(n.Name)
		for _, a := range n.Attributes {
			sb.WriteByte(' ')
			sb.WriteString(a.Name)
			sb.WriteString("='")
			sb.WriteString(escapeAttr(a.Value))
			sb.WriteByte('\'')
		}
		if len(n.Children) == 0 {
			sb.WriteString("/>")
			return
		}
		sb.WriteByte('>')
		for _, child := range n.Children {
			marshal(sb, child)
		}
		sb.WriteString("</")
		sb.WriteString(n.Name)
		sb.WriteByte('>')
	case Text:
		sb.WriteString(escapeText(string(n)))
	case Attr:
		// Lifted by the enclosing element; nothing to emit here.
	}
}

// In single-quoted attribute values the XML spec requires escaping
// ampersand, less-than and the quote itself.
func escapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", "'", "&apos;")
	return r.Replace(s)
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;")
	return r.Replace(s)
}
