package mof

import (
	"fmt"
	"strings"
)

// contextLines is the number of source lines shown above the offending one.
const contextLines = 4

// ParseError reports the first token that could not extend the grammar.
//
// Context always holds six rows: the four lines preceding the offending
// line (empty strings near the start of the file), the offending line and
// an underline row with '^' under every byte of the offending token.
// Span is the [start, end) byte range of the token within its line.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Context []string
	Span    [2]int
	Msg     string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column+1, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column+1, e.Msg)
}

// newParseError builds the error for the token at offset with the given
// length, computing line, column and the context window from src.
func newParseError(file, src string, offset, length int, msg string) *ParseError {
	lines := splitLines(src)
	offset = min(max(offset, 0), len(src))

	lineStart := strings.LastIndexByte(src[:offset], '\n') + 1
	line := strings.Count(src[:offset], "\n") + 1
	column := offset - lineStart

	// at end of input, point just past the last character of the last line
	if line > len(lines) {
		line = max(len(lines), 1)
		column = 0
		if len(lines) > 0 {
			column = len(lines[line-1])
		}
	}
	if length < 1 {
		length = 1
	}

	ctx := make([]string, 0, contextLines+2)
	for i := line - contextLines; i < line; i++ {
		if i >= 1 {
			ctx = append(ctx, lines[i-1])
		} else {
			ctx = append(ctx, "")
		}
	}
	current := ""
	if line <= len(lines) {
		current = lines[line-1]
	}
	ctx = append(ctx, current)
	ctx = append(ctx, strings.Repeat(" ", column)+strings.Repeat("^", length))

	return &ParseError{
		File:    file,
		Line:    line,
		Column:  column,
		Context: ctx,
		Span:    [2]int{column, column + length},
		Msg:     msg,
	}
}

// splitLines splits src into lines without terminators. A trailing newline
// does not start an extra line.
func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
