// Package compile wires the whole pipeline together: module resolution,
// parsing, semantic analysis, IR construction, optimization and one of
// the two backends, with phase timing recorded through an injected
// *zap.Logger rather than a package-level global.
package compile

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/ir"
	"github.com/tl-lang/tlc/internal/module"
	"github.com/tl-lang/tlc/internal/optimize"
	"github.com/tl-lang/tlc/internal/sema"
)

// Target selects which backend Pipeline.Run emits.
type Target int

const (
	TargetC Target = iota
	TargetAsmX64
)

// Options controls one compilation run. EntryFiles may name more than one
// source file; each is parsed (and its own #include directives expanded)
// independently, then their functions are concatenated into a single
// program before one semantic/IR/codegen pass runs over all of them,
// mirroring compile_multiple_files' parse-then-merge structure.
type Options struct {
	EntryFiles   []string
	SearchPaths  module.SearchPaths
	SuppressWarn bool
	MaxErrors    int
	Target       Target
	SkipOptimize bool
}

// Pipeline runs the compiler front-end and a chosen backend over one or
// more entry files, logging phase timing through Logger (a no-op logger if the
// caller doesn't care, matching how the teacher's vm.Instance takes an
// optional functional option rather than assuming a global logger).
type Pipeline struct {
	Logger *zap.Logger
}

// New creates a Pipeline using logger, or zap.NewNop() if logger is nil.
func New(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Logger: logger}
}

// Result carries every intermediate artifact a caller (the CLI's debug
// dump flags, tests) might want to inspect after a run.
type Result struct {
	Sink    *diag.Sink
	IR      *ir.Program
	Output  string
}

// Run executes the full pipeline. It returns a Result even when the sink
// contains errors, so callers can still print diagnostics; such a Result
// carries only the Sink, with no IR and no Output. The driver decides
// whether diag.Sink.HasErrors() should suppress writing the output file.
func (p *Pipeline) Run(opts Options) (*Result, error) {
	sink := diag.NewSink(opts.SuppressWarn)
	if opts.MaxErrors > 0 {
		sink.SetMaxErrors(opts.MaxErrors)
	}

	start := time.Now()
	resolver := module.NewResolver(dirOf(opts.EntryFiles[0]), opts.SearchPaths, sink)
	prog, err := resolver.ResolveFiles(opts.EntryFiles)
	if err != nil {
		return nil, errors.Wrap(err, "resolving modules")
	}
	p.Logger.Debug("parsed and resolved modules", zap.Duration("elapsed", time.Since(start)))

	if sink.HasErrors() {
		return &Result{Sink: sink}, nil
	}

	start = time.Now()
	analyzer := sema.New(opts.EntryFiles[0], sink)
	analyzer.Check(prog)
	p.Logger.Debug("semantic analysis complete", zap.Duration("elapsed", time.Since(start)))

	if sink.HasErrors() {
		return &Result{Sink: sink}, nil
	}

	start = time.Now()
	irProg := ir.BuildProgram(prog)
	p.Logger.Debug("ir construction complete", zap.Duration("elapsed", time.Since(start)))

	if !opts.SkipOptimize {
		start = time.Now()
		optimize.Program(irProg)
		p.Logger.Debug("optimization complete", zap.Duration("elapsed", time.Since(start)))
	}

	start = time.Now()
	output := p.emit(opts.Target, irProg)
	p.Logger.Debug("code generation complete", zap.Duration("elapsed", time.Since(start)))

	return &Result{Sink: sink, IR: irProg, Output: output}, nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
