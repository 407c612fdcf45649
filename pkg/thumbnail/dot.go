package thumbnail

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/matzehuels/bpdoc/pkg/entity"
)

// Header colors per node kind, close to the editor's palette.
var kindColors = map[entity.NodeKind]string{
	entity.NodeEvent:     "#8b1a1a",
	entity.NodeFunction:  "#1f4e8c",
	entity.NodeVariable:  "#2e7d32",
	entity.NodeComposite: "#5a5a5a",
}

func kindColor(k entity.NodeKind) string {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return "#444444"
}

// ToDOT converts a descriptor to Graphviz DOT. Nodes use HTML-like labels:
// a colored title bar over one row per pin, inputs on the left and outputs
// on the right.
func ToDOT(d Descriptor) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"#1e1e1e\";\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\", fontsize=11, fontcolor=white];\n")
	buf.WriteString("  edge [color=\"#cccccc\", arrowsize=0.6];\n")
	buf.WriteString("\n")

	switch d.Kind {
	case DescribeKindGraph:
		for _, b := range d.Boxes {
			fmt.Fprintf(&buf, "  %q [label=<%s>];\n", b.ID, boxLabel(b))
		}
		if len(d.Edges) > 0 {
			buf.WriteString("\n")
		}
		for _, e := range d.Edges {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	default:
		fmt.Fprintf(&buf, "  \"node\" [label=<%s>];\n", nodeLabel(d))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func boxLabel(b Box) string {
	return fmt.Sprintf(
		`<TABLE BORDER="0" CELLBORDER="0" CELLSPACING="0" CELLPADDING="6" BGCOLOR="%s"><TR><TD>%s</TD></TR></TABLE>`,
		kindColor(b.Kind), html.EscapeString(b.Title))
}

func nodeLabel(d Descriptor) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="1" COLOR="#000000" CELLBORDER="0" CELLSPACING="0" CELLPADDING="4" BGCOLOR="#2b2b2b">`)
	fmt.Fprintf(&b, `<TR><TD COLSPAN="2" BGCOLOR="%s" ALIGN="LEFT"><B>%s</B></TD></TR>`,
		kindColor(d.NodeKind), html.EscapeString(d.Title))

	rows := max(len(d.Inputs), len(d.Outputs))
	for i := range rows {
		b.WriteString("<TR>")
		b.WriteString(pinCell(d.Inputs, i, "LEFT", "&#9654; "))
		b.WriteString(pinCell(d.Outputs, i, "RIGHT", ""))
		b.WriteString("</TR>")
	}
	b.WriteString("</TABLE>")
	return b.String()
}

func pinCell(pins []PinRow, i int, align, marker string) string {
	if i >= len(pins) {
		return "<TD></TD>"
	}
	p := pins[i]
	text := html.EscapeString(p.Name)
	if !p.Exec && p.Type != "" {
		text += ` <FONT COLOR="#9e9e9e">` + html.EscapeString(p.Type) + "</FONT>"
	}
	if p.Exec {
		text = marker + text
	}
	return fmt.Sprintf(`<TD ALIGN="%s">%s</TD>`, align, text)
}
