package compile

import (
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"strings"

	"github.com/gnoswap-labs/mofc/formatter"
	"github.com/gnoswap-labs/mofc/internal/compiler"
	"github.com/gnoswap-labs/mofc/internal/mof"
	tt "github.com/gnoswap-labs/mofc/internal/types"
)

const category = "mof"

// Issues flattens a compile error into one issue per underlying error.
// Joined errors from batch mode expand in order.
func Issues(err error) []tt.Issue {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var issues []tt.Issue
		for _, e := range joined.Unwrap() {
			issues = append(issues, Issues(e)...)
		}
		return issues
	}

	var pe *mof.ParseError
	if errors.As(err, &pe) {
		return []tt.Issue{parseIssue(pe)}
	}
	var se *compiler.SemanticError
	if errors.As(err, &se) {
		return []tt.Issue{semanticIssue(se)}
	}

	issue := tt.Issue{
		Rule:     compiler.CodeFailed.String(),
		Category: category,
		Message:  err.Error(),
		Severity: tt.SeverityError,
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		issue.Filename = pathErr.Path
	}
	return []tt.Issue{issue}
}

// isCompileError reports whether err carries diagnostics about MOF source
// rather than a failure to run the compiler at all.
func isCompileError(err error) bool {
	var pe *mof.ParseError
	var se *compiler.SemanticError
	return errors.As(err, &pe) || errors.As(err, &se)
}

func parseIssue(pe *mof.ParseError) tt.Issue {
	rule := formatter.ParseError
	if strings.HasPrefix(pe.Msg, "invalid token") {
		rule = formatter.LexError
	}
	return tt.Issue{
		Rule:     rule,
		Category: category,
		Filename: pe.File,
		Message:  pe.Msg,
		Severity: tt.SeverityError,
		Start:    token.Position{Filename: pe.File, Line: pe.Line, Column: pe.Span[0] + 1},
		End:      token.Position{Filename: pe.File, Line: pe.Line, Column: pe.Span[1]},
		Context:  pe.Context,
	}
}

func semanticIssue(se *compiler.SemanticError) tt.Issue {
	issue := tt.Issue{
		Rule:     se.Code.String(),
		Category: category,
		Filename: se.File,
		Message:  se.Msg,
		Note:     fmt.Sprintf("status code %d", int(se.Code)),
		Severity: tt.SeverityError,
	}
	if se.Line > 0 {
		issue.Start = token.Position{Filename: se.File, Line: se.Line, Column: se.Column + 1}
		issue.End = issue.Start
	}
	return issue
}
