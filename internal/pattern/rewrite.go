package pattern

import (
	"strconv"
	"strings"

	"crucible/internal/candidate"
)

func uitoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// lineIndentAt returns the leading whitespace of the line containing
// the given byte offset.
func lineIndentAt(src []byte, offset uint32) string {
	start := int(offset)
	if start > len(src) {
		start = len(src)
	}
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// ExpandTemplate substitutes ${name} placeholders with capture bindings.
// Unknown placeholders are left intact so a bad template is visible in
// the output rather than silently blanked.
func ExpandTemplate(template string, bindings map[string]string) string {
	out := template
	for name, val := range bindings {
		out = strings.ReplaceAll(out, "${"+name+"}", val)
	}
	return out
}

// ReplaceSpan replaces the byte range of span with the expanded
// template, returning new source text.
func ReplaceSpan(text string, span candidate.Span, template string, bindings map[string]string) string {
	if int(span.StartByte) > len(text) || int(span.EndByte) > len(text) || span.StartByte > span.EndByte {
		return text
	}
	return text[:span.StartByte] + ExpandTemplate(template, bindings) + text[span.EndByte:]
}

// DeleteLines removes lines start..end inclusive (0-based).
func DeleteLines(text string, start, end uint32) string {
	lines := strings.Split(text, "\n")
	if int(start) >= len(lines) {
		return text
	}
	if int(end) >= len(lines) {
		end = uint32(len(lines) - 1)
	}
	out := append([]string(nil), lines[:start]...)
	out = append(out, lines[end+1:]...)
	return strings.Join(out, "\n")
}

// InsertLineAfter inserts a line after the given 0-based line index.
func InsertLineAfter(text string, line uint32, inserted string) string {
	lines := strings.Split(text, "\n")
	if int(line) >= len(lines) {
		return text + "\n" + inserted
	}
	out := append([]string(nil), lines[:line+1]...)
	out = append(out, inserted)
	out = append(out, lines[line+1:]...)
	return strings.Join(out, "\n")
}

// AppendLine appends a line at the end of the text.
func AppendLine(text, inserted string) string {
	if strings.HasSuffix(text, "\n") {
		return text + inserted + "\n"
	}
	return text + "\n" + inserted
}

// PrependLine inserts a line at the top of the text.
func PrependLine(text, inserted string) string {
	return inserted + "\n" + text
}
