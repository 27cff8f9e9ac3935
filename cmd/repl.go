package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/compile"
	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
)

const replHelp = `Enter MOF declarations; a declaration is compiled once it is complete.
Commands:
  .ns [name]      show or change the target namespace
  .classes        list classes in compile order
  .qualifiers     list qualifier declarations
  .instances      list instance paths
  .show <name>    print a class or qualifier declaration as MOF
  .mof            print the target namespace as MOF
  .load <path>    compile a file or directory
  .save           save the repository to the configured store
  .quit           leave
`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Compile MOF interactively against an in-memory repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(cmd)
		if err != nil {
			return err
		}
		if engine.Config().Store != "" {
			if err := engine.Load(cmd.Context()); err != nil {
				return fmt.Errorf("loading repository: %w", err)
			}
		}
		NewRepl(engine, cmd.OutOrStdout(), ReplHistoryPath()).Run(cmd.Context())
		return nil
	},
}

func ReplHistoryPath() string {
	path, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(path, "mofc/repl.history")
}

// Session evaluates REPL input one line at a time.
type Session struct {
	engine *compile.Engine
	out    io.Writer
	buf    strings.Builder
	n      int
}

func NewSession(engine *compile.Engine, out io.Writer) *Session {
	return &Session{engine: engine, out: out}
}

// Pending reports whether a declaration has been started but not
// completed.
func (s *Session) Pending() bool {
	return s.buf.Len() > 0
}

// Eval consumes one line of input. It returns false once the session
// should end.
func (s *Session) Eval(ctx context.Context, line string) bool {
	if !s.Pending() {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return true
		}
		if strings.HasPrefix(trimmed, ".") {
			return s.command(ctx, strings.Fields(trimmed))
		}
	}

	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
	src := s.buf.String()
	switch inputState(src) {
	case inputIncomplete:
		return true
	case inputEmpty:
		s.buf.Reset()
		return true
	}
	s.buf.Reset()

	s.n++
	name := fmt.Sprintf("<repl:%d>", s.n)
	issues, err := s.engine.RunSource(name, []byte(src))
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return true
	}
	if len(issues) == 0 {
		fmt.Fprintln(s.out, "ok")
		return true
	}
	reportIssues(s.out, issues, map[string][]byte{name: []byte(src)}, false, "")
	return true
}

type input int

const (
	inputIncomplete input = iota
	inputComplete
	inputEmpty // comments only
)

// inputState classifies src: it is complete when braces are balanced and
// the last token ends a declaration or a pragma.
func inputState(src string) input {
	var (
		depth       int
		first, last mof.Token
		seen, bad   bool
	)
	for tok := range mof.Tokenize(src, func(mof.Token) { bad = true }) {
		if !seen {
			first = tok
			seen = true
		}
		switch tok.Kind {
		case mof.TokenLBrace:
			depth++
		case mof.TokenRBrace:
			depth--
		}
		last = tok
	}
	switch {
	case bad:
		// let the compiler report it
		return inputComplete
	case !seen:
		return inputEmpty
	case depth > 0:
		return inputIncomplete
	case first.Kind == mof.TokenHash && last.Kind == mof.TokenRParen:
		return inputComplete
	case last.Kind == mof.TokenSemicolon:
		return inputComplete
	}
	return inputIncomplete
}

func (s *Session) command(ctx context.Context, fields []string) bool {
	ns := s.engine.Repository().Namespace(s.engine.Config().Namespace)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case ".quit", ".exit":
		return false
	case ".help":
		fmt.Fprint(s.out, replHelp)
	case ".ns":
		if arg != "" {
			s.engine.SetNamespace(arg)
		}
		fmt.Fprintln(s.out, s.engine.Config().Namespace)
	case ".classes":
		for _, name := range ns.CompileOrderedClassNames() {
			fmt.Fprintln(s.out, name)
		}
	case ".qualifiers":
		for _, q := range ns.Entities() {
			if d, ok := q.(*cim.QualifierDeclaration); ok {
				fmt.Fprintln(s.out, d.Name)
			}
		}
	case ".instances":
		for _, inst := range ns.EnumerateInstances() {
			fmt.Fprintln(s.out, inst.Path.String())
		}
	case ".show":
		if class, err := ns.GetClass(arg); err == nil {
			fmt.Fprint(s.out, cim.ToMOF(class))
		} else if q, err := ns.GetQualifier(arg); err == nil {
			fmt.Fprint(s.out, cim.ToMOF(q))
		} else {
			fmt.Fprintf(s.out, "%s not found in %s\n", arg, ns.Name())
		}
	case ".mof":
		if err := ns.WriteMOF(s.out); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	case ".load":
		issues, err := compile.ProcessPath(ctx, logger, s.engine, arg, compile.ProcessFile)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			break
		}
		if len(issues) == 0 {
			fmt.Fprintln(s.out, "ok")
			break
		}
		reportIssues(s.out, issues, nil, false, "")
	case ".save":
		if err := s.engine.Save(ctx); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			break
		}
		fmt.Fprintln(s.out, "saved")
	default:
		fmt.Fprintf(s.out, "unknown command %s, try .help\n", fields[0])
	}
	return true
}

type Repl struct {
	*Session
	*liner.State
	Hist string
}

func NewRepl(engine *compile.Engine, out io.Writer, hist string) *Repl {
	lin := liner.NewLiner()
	lin.SetMultiLineMode(true)
	lin.SetCtrlCAborts(true)
	return &Repl{Session: NewSession(engine, out), State: lin, Hist: hist}
}

func (r *Repl) Run(ctx context.Context) {
	r.readHistory()
	defer r.Close()
	for {
		prompt := "mof> "
		if r.Pending() {
			prompt = "...  "
		}
		got, err := r.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.writeHistory()
				fmt.Fprintln(r.Session.out)
				return
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				r.Session.buf.Reset()
				continue
			}
			logger.Error("unexpected error reading prompt", zap.Error(err))
			continue
		}
		if strings.TrimSpace(got) != "" {
			r.AppendHistory(got)
		}
		if !r.Eval(ctx, got) {
			r.writeHistory()
			return
		}
	}
}

func (r *Repl) readHistory() {
	if r.Hist == "" {
		return
	}
	f, err := os.Open(r.Hist)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("error reading repl history file", zap.String("file", r.Hist), zap.Error(err))
		}
		return
	}
	defer f.Close()
	if _, err := r.ReadHistory(f); err != nil {
		logger.Warn("error reading repl history file", zap.String("file", r.Hist), zap.Error(err))
	}
}

func (r *Repl) writeHistory() {
	if r.Hist == "" {
		return
	}
	dir := filepath.Dir(r.Hist)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("error creating dir for repl history", zap.String("dir", dir), zap.Error(err))
		return
	}
	f, err := os.Create(r.Hist)
	if err != nil {
		logger.Warn("error creating file for repl history", zap.String("file", r.Hist), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := r.WriteHistory(f); err != nil {
		logger.Warn("error writing repl history file", zap.String("file", r.Hist), zap.Error(err))
	}
}
