// Package module resolves #include directives into a single merged
// ast.Program, concatenating the included files' declarations the way a C
// translation unit concatenates headers: there is no linker step, only
// AST stitching (functions and FFI blocks are appended in include order).
package module

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/tl-lang/tlc/internal/ast"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/lexer"
	"github.com/tl-lang/tlc/internal/parser"
)

// SearchPaths holds the ordered list of directories consulted for an
// include; angle-bracket includes search the same list except the
// including file's own directory.
type SearchPaths struct {
	// Extra is populated from -I flags, consulted before Include and the
	// system directories.
	Extra []string
	// Include is the default "./include" directory next to the entry file.
	Include string
	// System holds platform header directories, consulted last.
	System []string
}

// DefaultSearchPaths builds the default search order for a compilation
// rooted at entryDir: the entry file's own directory, ./include beneath
// it, then the conventional system include directories.
func DefaultSearchPaths(entryDir string, extra []string) SearchPaths {
	return SearchPaths{
		Extra:   extra,
		Include: filepath.Join(entryDir, "include"),
		System:  []string{"/usr/include", "/usr/local/include"},
	}
}

// Resolver walks #include directives starting from an entry file, parsing
// each newly discovered file and merging its declarations into one
// program.
type Resolver struct {
	sink     *diag.Sink
	paths    SearchPaths
	baseDir  string
	visited  map[string]bool // canonical path -> seen
}

// NewResolver creates a Resolver rooted at baseDir (the entry file's
// directory), consulting paths for quoted and angle-bracket includes.
func NewResolver(baseDir string, paths SearchPaths, sink *diag.Sink) *Resolver {
	return &Resolver{sink: sink, paths: paths, baseDir: baseDir, visited: map[string]bool{}}
}

// ResolveFile parses the entry file and recursively resolves every
// #include it (and its includes) reference, returning one merged program.
func (r *Resolver) ResolveFile(entryPath string) (*ast.Program, error) {
	canon, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving path %q", entryPath)
	}
	prog, err := r.parseOne(canon)
	if err != nil {
		return nil, err
	}
	r.visited[canon] = true
	return r.expand(prog, filepath.Dir(canon))
}

// ResolveFiles resolves every entry in entryPaths independently (each with
// its own #include expansion) and concatenates the results into a single
// merged program, the way compile_multiple_files parses each positional
// input file on its own and appends its functions into one combined
// program before a single semantic/IR/codegen pass runs over all of them.
func (r *Resolver) ResolveFiles(entryPaths []string) (*ast.Program, error) {
	merged := &ast.Program{}
	for _, path := range entryPaths {
		prog, err := r.ResolveFile(path)
		if err != nil {
			return nil, err
		}
		merged.Functions = append(merged.Functions, prog.Functions...)
		merged.FFI = append(merged.FFI, prog.FFI...)
	}
	return merged, nil
}

// DirectIncludes resolves entryPath's own #include targets, without
// recursing into what those targets themselves include, to canonical
// absolute paths. Module-directory compilation mode uses this to discover
// which files to compile as separate modules, the way compile_module_system
// walks only the entry program's own Includes list before handing each one
// to its own module_compile_source call.
func (r *Resolver) DirectIncludes(entryPath string) ([]string, error) {
	canon, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving path %q", entryPath)
	}
	prog, err := r.parseOne(canon)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(canon)
	var out []string
	for _, inc := range prog.Includes {
		resolved, err := r.locate(inc, dir)
		if err != nil {
			r.sink.Errorf(inc.Path, diag.Parser, inc.Line, inc.Col, "cannot find include file %q: %v", inc.Path, err)
			continue
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (r *Resolver) parseOne(path string) (*ast.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	lx := lexer.New(path, string(src), r.sink)
	ps := parser.New(path, lx, r.sink)
	return ps.Parse(), nil
}

// expand walks prog's Includes, resolving each target file (skipping ones
// already visited, per the duplicate-include rule) and appending its
// functions/FFI declarations in order.
func (r *Resolver) expand(prog *ast.Program, fromDir string) (*ast.Program, error) {
	merged := &ast.Program{
		Functions: append([]*ast.Function(nil), prog.Functions...),
		FFI:       append([]*ast.FFIFunction(nil), prog.FFI...),
	}
	for _, inc := range prog.Includes {
		resolved, err := r.locate(inc, fromDir)
		if err != nil {
			r.sink.Errorf(inc.Path, diag.Parser, inc.Line, inc.Col, "cannot find include file %q: %v", inc.Path, err)
			continue
		}
		if r.visited[resolved] {
			continue // duplicate include, silently skipped
		}
		r.visited[resolved] = true

		sub, err := r.parseOne(resolved)
		if err != nil {
			return nil, err
		}
		subMerged, err := r.expand(sub, filepath.Dir(resolved))
		if err != nil {
			return nil, err
		}
		merged.Functions = append(merged.Functions, subMerged.Functions...)
		merged.FFI = append(merged.FFI, subMerged.FFI...)
	}
	return merged, nil
}

// locate searches Extra, then the local directory (for quoted includes),
// then Include, then System, returning the first canonical path that
// exists on disk.
func (r *Resolver) locate(inc *ast.Include, fromDir string) (string, error) {
	var candidates []string
	for _, d := range r.paths.Extra {
		candidates = append(candidates, filepath.Join(d, inc.Path))
	}
	if !inc.System {
		candidates = append(candidates, filepath.Join(fromDir, inc.Path))
	}
	candidates = append(candidates, filepath.Join(r.paths.Include, inc.Path))
	for _, d := range r.paths.System {
		candidates = append(candidates, filepath.Join(d, inc.Path))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			abs, err := filepath.Abs(c)
			if err != nil {
				return "", err
			}
			return abs, nil
		}
	}
	return "", errors.Errorf("not found in any search path (%d candidates tried)", len(candidates))
}
