// Package diag implements the compiler's diagnostic sink: a single place
// every phase (lexer, parser, semantic analyzer, code generator) reports
// errors and warnings to, keyed by source position, with grouped printing.
//
// Diagnostics accumulate in a flat slice. Once the error count reaches the
// maxErrors budget, Abort reports true and the parser stops parsing. Each diagnostic additionally carries a severity (error vs
// warning), a phase kind, and an optional fix-it suggestion.
package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tl-lang/tlc/internal/diagio"
)

// Kind classifies which phase raised a diagnostic.
type Kind int

const (
	Lexer Kind = iota
	Parser
	Semantic
	Codegen
)

func (k Kind) String() string {
	switch k {
	case Lexer:
		return "lexer"
	case Parser:
		return "parser"
	case Semantic:
		return "semantic"
	case Codegen:
		return "codegen"
	default:
		return "?"
	}
}

// Severity distinguishes fatal diagnostics from advisory ones.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// maxErrors is the default error budget: once this many errors have been
// recorded, Abort reports true and the parser stops parsing.
const maxErrors = 10

// Diagnostic is a single positioned message.
type Diagnostic struct {
	File       string
	Kind       Kind
	Severity   Severity
	Message    string
	Suggestion string
	Line, Col  int
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s: %s", d.File, d.Line, d.Col, d.Severity, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&b, " (%s)", d.Suggestion)
	}
	return b.String()
}

// Sink collects diagnostics for one compilation (possibly spanning several
// files once #include has been resolved). It is shared read/write by every
// compiler phase.
type Sink struct {
	diags       []Diagnostic
	hadError    bool
	suppressWrn bool
	maxErrors   int
}

// NewSink creates an empty diagnostic sink. suppressWarnings corresponds to
// the --no-warnings CLI flag.
func NewSink(suppressWarnings bool) *Sink {
	return &Sink{suppressWrn: suppressWarnings, maxErrors: maxErrors}
}

// SetMaxErrors overrides the panic-mode error budget (defaults to 10,
// configurable via tlc.yaml).
func (s *Sink) SetMaxErrors(n int) {
	if n > 0 {
		s.maxErrors = n
	}
}

// Add appends a diagnostic. Warnings are dropped, and not counted
// anywhere, when the sink was created with suppressWarnings.
func (s *Sink) Add(file string, kind Kind, sev Severity, line, col int, message, suggestion string) {
	if sev == Warning && s.suppressWrn {
		return
	}
	s.diags = append(s.diags, Diagnostic{
		File: file, Kind: kind, Severity: sev,
		Message: message, Suggestion: suggestion, Line: line, Col: col,
	})
	if sev == Error {
		s.hadError = true
	}
}

// Errorf is a convenience wrapper around Add for the common Error-severity,
// no-suggestion case.
func (s *Sink) Errorf(file string, kind Kind, line, col int, format string, args ...interface{}) {
	s.Add(file, kind, Error, line, col, fmt.Sprintf(format, args...), "")
}

// Warnf is the Warning-severity analogue of Errorf.
func (s *Sink) Warnf(file string, kind Kind, line, col int, format string, args ...interface{}) {
	s.Add(file, kind, Warning, line, col, fmt.Sprintf(format, args...), "")
}

// ErrorCount counts Error-severity diagnostics recorded so far; Abort
// compares it with the error budget.
func (s *Sink) ErrorCount() int {
	n := 0
	for _, d := range s.diags {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// Abort reports whether the error budget has been exhausted.
func (s *Sink) Abort() bool {
	return s.ErrorCount() >= s.maxErrors
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	return s.hadError
}

// Diagnostics returns all recorded diagnostics, grouped by file and ordered
// by position within each file, as required for PrintAll's output and for
// tests that want to inspect individual entries.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// PrintAll renders every diagnostic, grouped by file, ordered by position,
// one per line. Writes go through an ErrWriter so a failing terminal or
// redirected-output pipe is only reported once, not once per diagnostic.
func (s *Sink) PrintAll(w io.Writer) error {
	ew := diagio.NewErrWriter(w)
	for _, d := range s.Diagnostics() {
		fmt.Fprintln(ew, d.String())
	}
	return ew.Err
}
