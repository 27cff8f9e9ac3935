// Package compile drives the MOF compiler over files and directories the
// way the command line uses it: configuration, progress reporting,
// diagnostics, persistence and watch mode.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/internal/compiler"
	"github.com/gnoswap-labs/mofc/internal/repository"
	"github.com/gnoswap-labs/mofc/internal/store"
	tt "github.com/gnoswap-labs/mofc/internal/types"
)

// StdinFile names sources read from standard input.
const StdinFile = "<stdin>"

var errNoStore = errors.New("no store configured")

type CompileEngine interface {
	Run(filePath string) ([]tt.Issue, error)
	RunSource(filename string, source []byte) ([]tt.Issue, error)
}

// Engine compiles MOF sources into one repository. Compiles are
// serialized, so an Engine may be shared between goroutines.
type Engine struct {
	mu       sync.Mutex
	config   Config
	logger   *zap.Logger
	compiler *compiler.Compiler
}

var _ CompileEngine = (*Engine)(nil)

// New returns an engine with an empty repository. A nil logger disables
// logging.
func New(config Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Namespace == "" {
		config.Namespace = repository.DefaultNamespace
	}
	e := &Engine{config: config, logger: logger}
	e.compiler = e.newCompiler()
	return e
}

func (e *Engine) newCompiler() *compiler.Compiler {
	opts := compiler.Options{
		SearchPaths: e.config.SearchPaths,
		Batch:       e.config.Batch,
	}
	return compiler.New(repository.New(), opts, e.logger)
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetNamespace changes the namespace later compiles target.
func (e *Engine) SetNamespace(namespace string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Namespace = repository.NormalizeNamespace(namespace)
	if e.config.Namespace == "" {
		e.config.Namespace = repository.DefaultNamespace
	}
}

// Repository returns the repository compiled so far.
func (e *Engine) Repository() *repository.Repository {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compiler.Repository()
}

// Reset discards everything compiled so far.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiler = e.newCompiler()
}

// Run compiles the file at filePath into the configured namespace.
// Problems in the MOF source are returned as issues; the error is
// reserved for failures such as an unreadable search path.
func (e *Engine) Run(filePath string) ([]tt.Issue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.compiler.CompileFile(filePath, e.config.Namespace)
	return e.result(filePath, err)
}

// RunSource compiles source, reporting positions against filename.
func (e *Engine) RunSource(filename string, source []byte) ([]tt.Issue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.compiler.CompileSource(filename, string(source), e.config.Namespace)
	return e.result(filename, err)
}

func (e *Engine) result(filename string, err error) ([]tt.Issue, error) {
	if err != nil && !isCompileError(err) {
		return nil, err
	}
	issues := Issues(err)
	if len(issues) > 0 {
		e.logger.Debug("compile reported issues",
			zap.String("file", filename),
			zap.Int("issues", len(issues)))
	}
	return issues, nil
}

// WriteMOF writes namespace as MOF. An empty namespace writes every
// namespace, each introduced by a namespace pragma so that the output
// compiles back into the same layout.
func (e *Engine) WriteMOF(w io.Writer, namespace string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	repo := e.compiler.Repository()
	if namespace != "" {
		ns, ok := repo.Lookup(namespace)
		if !ok {
			return fmt.Errorf("namespace %s not found", namespace)
		}
		return ns.WriteMOF(w)
	}
	for _, ns := range repo.Namespaces() {
		if _, err := fmt.Fprintf(w, "#pragma namespace (%q)\n\n", ns.Name()); err != nil {
			return err
		}
		if err := ns.WriteMOF(w); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) openStore() (*store.DB, error) {
	path := e.Config().Store
	if path == "" {
		return nil, errNoStore
	}
	db, err := store.Open(path, e.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Save writes every compiled namespace to the configured store.
func (e *Engine) Save(ctx context.Context) error {
	db, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	return db.Save(ctx, e.compiler.Repository())
}

// Load compiles the namespaces held by the configured store into the
// repository.
func (e *Engine) Load(ctx context.Context) error {
	db, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	return db.Load(ctx, e.compiler)
}
