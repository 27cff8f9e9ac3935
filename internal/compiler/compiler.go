// Package compiler resolves parsed MOF declarations into a repository:
// qualifier registration, superclass lookup through search paths,
// inheritance with flavor propagation, alias binding and instance
// validation.
package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
	"github.com/gnoswap-labs/mofc/internal/repository"
	"github.com/gnoswap-labs/mofc/scanner"
)

// StringFile is the file name reported for sources compiled from memory.
const StringFile = "<string>"

// Options configures a Compiler.
type Options struct {
	// SearchPaths are directories searched for "<ClassName>.mof" when a
	// superclass or referenced class is not in the target namespace, and
	// for include files not found next to the including file.
	SearchPaths []string
	// Batch keeps compiling sibling declarations after a semantic error and
	// returns all errors joined. By default the first error aborts.
	Batch bool
	// OnLexError observes every lexical error before the parse fails.
	OnLexError mof.ErrorHandler
}

// Compiler compiles MOF sources into a repository. It is not safe for
// concurrent use.
type Compiler struct {
	repo   *repository.Repository
	opts   Options
	logger *zap.Logger
	index  *scanner.Index
}

// New returns a compiler writing into repo. A nil logger disables logging.
func New(repo *repository.Repository, opts Options, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{repo: repo, opts: opts, logger: logger}
}

// Repository returns the repository the compiler writes into.
func (c *Compiler) Repository() *repository.Repository {
	return c.repo
}

// CompileFile compiles the MOF file at path into namespace.
func (c *Compiler) CompileFile(path, namespace string) error {
	r, err := c.newRun()
	if err != nil {
		return err
	}
	if err := r.compileFile(path, c.repo.Namespace(namespace)); err != nil {
		return err
	}
	return errors.Join(r.errs...)
}

// CompileString compiles MOF source held in memory into namespace.
func (c *Compiler) CompileString(src, namespace string) error {
	return c.CompileSource(StringFile, src, namespace)
}

// CompileSource compiles src, reporting positions against filename.
// Relative include paths resolve against the directory of filename.
func (c *Compiler) CompileSource(filename, src, namespace string) error {
	r, err := c.newRun()
	if err != nil {
		return err
	}
	if err := r.compileUnit(filename, src, c.repo.Namespace(namespace)); err != nil {
		return err
	}
	return errors.Join(r.errs...)
}

func (c *Compiler) newRun() (*run, error) {
	if c.index == nil && len(c.opts.SearchPaths) > 0 {
		idx, err := scanner.BuildIndex(c.opts.SearchPaths...)
		if err != nil {
			return nil, fmt.Errorf("indexing search paths: %w", err)
		}
		c.index = idx
	}
	return &run{
		c:         c,
		pending:   make(map[string]*pendingClass),
		resolving: make(map[string]bool),
		active:    make(map[string]bool),
		done:      make(map[*mof.ClassDecl]bool),
	}, nil
}

// run is the state of one top-level compile call, shared by every unit
// it pulls in through includes and search paths.
type run struct {
	c *Compiler

	// pending holds classes declared in active units and not yet committed.
	pending map[string]*pendingClass
	// resolving holds classes whose superclass chain is being resolved.
	resolving map[string]bool
	// active holds the files currently being compiled.
	active map[string]bool
	done   map[*mof.ClassDecl]bool
	errs   []error
}

// unit is one compile unit: a file or an in-memory string.
type unit struct {
	file    string
	dir     string
	aliases map[string]cim.ObjectPath
}

type pendingClass struct {
	decl *mof.ClassDecl
	unit *unit
	ns   *repository.Namespace
}

func classKey(ns *repository.Namespace, name string) string {
	return strings.ToLower(ns.Name()) + ":" + strings.ToLower(name)
}

func (r *run) compileFile(path string, ns *repository.Namespace) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return r.compileUnit(path, string(src), ns)
}

func (r *run) compileUnit(file, src string, ns *repository.Namespace) error {
	key := file
	if abs, err := filepath.Abs(file); err == nil && file != StringFile {
		key = abs
	}
	if r.active[key] {
		return &SemanticError{Code: CodeFailed, File: file, Line: 1, Msg: "file includes itself"}
	}
	r.active[key] = true
	defer delete(r.active, key)

	opts := []mof.LexerOption{}
	if r.c.opts.OnLexError != nil {
		opts = append(opts, mof.WithErrorHandler(r.c.opts.OnLexError))
	}
	decls, err := mof.Parse(file, src, opts...)
	if err != nil {
		return err
	}

	u := &unit{file: file, aliases: make(map[string]cim.ObjectPath)}
	if file != StringFile {
		u.dir = filepath.Dir(file)
	}

	// Qualifier declarations of the unit are registered before anything
	// else, following namespace pragmas. Classes become pending so that a
	// superclass declared later in the unit is found.
	current := ns
	for _, d := range decls {
		var err error
		switch d := d.(type) {
		case *mof.Pragma:
			if strings.EqualFold(d.Name, "namespace") {
				current = r.c.repo.Namespace(d.Value)
			}
		case *mof.QualifierDecl:
			err = r.registerQualifier(u, current, d)
		case *mof.ClassDecl:
			k := classKey(current, d.Name)
			if _, dup := r.pending[k]; dup {
				err = newError(u.file, d.Position, CodeFailed, "class %s is declared more than once", d.Name)
				break
			}
			r.pending[k] = &pendingClass{decl: d, unit: u, ns: current}
		}
		if err := r.report(err); err != nil {
			r.dropPending(decls, ns)
			return err
		}
	}

	current = ns
	for _, d := range decls {
		var err error
		switch d := d.(type) {
		case *mof.Pragma:
			current, err = r.pragma(u, current, d)
		case *mof.QualifierDecl:
		case *mof.ClassDecl:
			if r.done[d] {
				continue
			}
			pc, ok := r.pending[classKey(current, d.Name)]
			if !ok || pc.decl != d {
				continue
			}
			_, err = r.compileClass(pc)
		case *mof.InstanceDecl:
			err = r.compileInstance(u, current, d)
		default:
			panic(fmt.Sprintf("compiler: unexpected declaration %T", d))
		}
		if err := r.report(err); err != nil {
			r.dropPending(decls, ns)
			return err
		}
	}

	r.c.logger.Info("compiled file",
		zap.String("file", file),
		zap.String("namespace", ns.Name()),
		zap.Int("declarations", len(decls)))
	return nil
}

// dropPending forgets the classes of an aborted unit.
func (r *run) dropPending(decls []mof.Decl, ns *repository.Namespace) {
	current := ns
	for _, d := range decls {
		switch d := d.(type) {
		case *mof.Pragma:
			if strings.EqualFold(d.Name, "namespace") {
				current = r.c.repo.Namespace(d.Value)
			}
		case *mof.ClassDecl:
			k := classKey(current, d.Name)
			if pc, ok := r.pending[k]; ok && pc.decl == d {
				delete(r.pending, k)
			}
		}
	}
}

// report records err in batch mode and returns nil, or returns err.
// Parse errors are always returned.
func (r *run) report(err error) error {
	if err == nil {
		return nil
	}
	var pe *mof.ParseError
	if r.c.opts.Batch && !errors.As(err, &pe) {
		r.errs = append(r.errs, err)
		return nil
	}
	return err
}

func (r *run) pragma(u *unit, ns *repository.Namespace, p *mof.Pragma) (*repository.Namespace, error) {
	switch strings.ToLower(p.Name) {
	case "include":
		path, ok := r.findInclude(u, p.Value)
		if !ok {
			return ns, newError(u.file, p.Position, CodeFailed, "include file %q not found", p.Value)
		}
		r.c.logger.Debug("including file", zap.String("file", path), zap.String("from", u.file))
		return ns, r.compileFile(path, ns)
	case "namespace":
		return r.c.repo.Namespace(p.Value), nil
	default:
		r.c.logger.Warn("ignoring pragma",
			zap.String("pragma", p.Name),
			zap.String("value", p.Value),
			zap.String("file", u.file),
			zap.Int("line", p.Position.Line))
		return ns, nil
	}
}

// findInclude looks for name next to the including file, then in each
// search path.
func (r *run) findInclude(u *unit, name string) (string, bool) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = []string{filepath.Join(u.dir, name)}
		for _, dir := range r.c.opts.SearchPaths {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// registerQualifier commits a qualifier declaration. Redeclaring an
// identical qualifier is a no-op.
func (r *run) registerQualifier(u *unit, ns *repository.Namespace, d *mof.QualifierDecl) error {
	decl := &cim.QualifierDeclaration{
		Name:      d.Name,
		Type:      d.Type,
		IsArray:   d.IsArray,
		ArraySize: d.ArraySize,
		Scope:     d.Scope,
		Flavor:    d.Flavor.Normalize(),
	}
	def, err := convertValue(d.Default, valueSpec{Type: d.Type, IsArray: d.IsArray, ArraySize: d.ArraySize}, nil)
	if err != nil {
		return newError(u.file, d.Position, CodeTypeMismatch, "default of qualifier %s: %v", d.Name, err)
	}
	decl.Default = def

	if existing, err := ns.GetQualifier(d.Name); err == nil {
		if sameQualifierDeclaration(existing, decl) {
			return nil
		}
		return newError(u.file, d.Position, CodeFailed,
			"qualifier %s is already declared in namespace %s with a different signature", d.Name, ns.Name())
	}
	ns.SetQualifier(decl)
	r.c.logger.Debug("registered qualifier", zap.String("qualifier", decl.Name), zap.String("namespace", ns.Name()))
	return nil
}
