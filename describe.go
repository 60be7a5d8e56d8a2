package sampledata

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DescriptionWidth is the column width descriptions are wrapped to.
const DescriptionWidth = 60

const describeIndent = "    "

// Describe renders a deterministic multi-line summary of a dataset:
// identity, wrapped description, and one tree entry per provided slot.
func Describe(desc DatasetDescriptor) string {
	var b strings.Builder

	b.WriteString("cryoET DataSet\n")
	fmt.Fprintf(&b, "%sname: %s\n", describeIndent, desc.Name())
	fmt.Fprintf(&b, "%sauthor: %s\n", describeIndent, desc.Author())
	fmt.Fprintf(&b, "%sbase url: %s\n", describeIndent, desc.BaseURL())

	fmt.Fprintf(&b, "\n%sdescription:\n", describeIndent)
	for _, line := range WordWrap(desc.Description(), DescriptionWidth) {
		b.WriteString(describeIndent + describeIndent + line + "\n")
	}

	fmt.Fprintf(&b, "\n%sdata\n", describeIndent)
	names := desc.SlotNames()
	for i, name := range names {
		fd, _ := desc.Slot(name)
		branch, stem := "├──", "  │   "
		if i == len(names)-1 {
			branch, stem = "└──", "      "
		}
		fmt.Fprintf(&b, "%s  %s %s\n", describeIndent, branch, name)
		fmt.Fprintf(&b, "%s%s├── file name: %s\n", describeIndent, stem, fd.FileName())
		fmt.Fprintf(&b, "%s%s└── checksum: %s\n", describeIndent, stem, fd.Checksum())
	}

	return b.String()
}

// WordWrap wraps text to width display columns while keeping explicit line
// breaks: an empty input line becomes an empty string in the result. Words
// longer than width are kept whole. Runs of whitespace inside a line are
// collapsed to one space, and whitespace-only lines produce no output.
// A width below 1 is treated as 1.
func WordWrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	wrapped := []string{}
	for _, line := range lines {
		if line == "" {
			wrapped = append(wrapped, "")
			continue
		}
		wrapped = append(wrapped, wrapLine(line, width)...)
	}
	return wrapped
}

// wrapLine greedily packs the words of a single line.
func wrapLine(line string, width int) []string {
	var out []string
	var cur strings.Builder
	curWidth := 0

	for _, word := range strings.Fields(line) {
		w := runewidth.StringWidth(word)
		switch {
		case cur.Len() == 0:
			cur.WriteString(word)
			curWidth = w
		case curWidth+1+w <= width:
			cur.WriteByte(' ')
			cur.WriteString(word)
			curWidth += 1 + w
		default:
			out = append(out, cur.String())
			cur.Reset()
			cur.WriteString(word)
			curWidth = w
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
