package types

import (
	"go/token"
	"strings"
)

// Severity ranks an Issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	default:
		return "ERROR"
	}
}

// Issue represents a problem found while compiling MOF sources.
type Issue struct {
	Rule     string
	Category string
	Filename string
	Message  string
	Note     string
	Severity Severity
	Start    token.Position
	End      token.Position
	// Context is the source window of a parse error: four preceding
	// lines, the offending line and a caret row. Empty for other issues.
	Context []string
}

// SourceCode holds the lines of a source file.
type SourceCode struct {
	Lines []string
}

// NewSourceCode splits src into lines.
func NewSourceCode(src string) *SourceCode {
	return &SourceCode{Lines: strings.Split(src, "\n")}
}
