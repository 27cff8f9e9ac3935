package formatter

// ContextIssueFormatter renders parse errors from the context window they
// carry, so no source is needed.
type ContextIssueFormatter struct{}

func (f *ContextIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn -}}
{{contextWindow .Context .StartLine .StartColumn .EndColumn .MaxLineNumWidth .Padding -}}
{{message .Message .Padding -}}
{{note .Note .Padding}}
`
}
