// Command tlc is the TL compiler driver: it resolves #include directives,
// parses, type-checks, lowers to IR, optimizes, and emits either portable
// C source or x86-64 Win64 NASM assembly.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tl-lang/tlc/internal/compile"
	"github.com/tl-lang/tlc/internal/config"
	"github.com/tl-lang/tlc/internal/diag"
	"github.com/tl-lang/tlc/internal/module"
)

// pathList implements flag.Value, following the teacher's fileList
// pattern for repeatable flags (-I dir -I dir2 ...).
type pathList []string

func (p *pathList) String() string     { return "" }
func (p *pathList) Set(s string) error { *p = append(*p, s); return nil }
func (p *pathList) Get() interface{}   { return *p }

var (
	outFileName  string
	useAsm       bool
	dumpTokens   bool
	dumpAST      bool
	dumpASTJSON  bool
	dumpIR       bool
	noWarnings   bool
	debug        bool
	memory       bool
	moduleMode   bool
	moduleOutDir string
	maxErrorsOpt int
	verbose      bool

	dumpversion bool
	dumpmachine bool
	dumpspecs   bool
)

const tlcVersion = "1.0.0"

func atExit(err error) {
	if err == nil {
		return
	}
	if debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "tlc: %v\n", err)
	}
	os.Exit(1)
}

func main() {
	var err error
	defer func() { atExit(err) }()

	var includePaths pathList
	flag.Var(&includePaths, "I", "add `dir` to the include search path (repeatable)")
	flag.StringVar(&outFileName, "o", "", "write output to `file`")
	flag.BoolVar(&useAsm, "asm", false, "emit x86-64 NASM assembly instead of C source")
	flag.BoolVar(&dumpTokens, "tokens", false, "dump the token stream of the entry file and exit")
	flag.BoolVar(&dumpAST, "ast", false, "dump the parsed AST and exit")
	flag.BoolVar(&dumpASTJSON, "dump-ast-json", false, "dump the parsed AST as JSON and exit")
	flag.BoolVar(&dumpIR, "ir", false, "dump the lowered, optimized IR and exit")
	flag.BoolVar(&noWarnings, "no-warnings", false, "suppress warning diagnostics")
	flag.BoolVar(&debug, "debug", false, "enable verbose phase-timing diagnostics")
	flag.BoolVar(&memory, "memory", false, "print compiler memory statistics upon exit")
	flag.BoolVar(&moduleMode, "modules", false, "compile each #include of the entry file as its own separate module output, instead of a single -o target")
	flag.StringVar(&moduleOutDir, "module-out", "./build/modules", "directory module compilation mode writes its per-module outputs to")
	flag.IntVar(&maxErrorsOpt, "max-errors", 0, "override the panic-mode error budget (0 = use config/default)")
	flag.BoolVar(&verbose, "v", false, "print version information")
	flag.BoolVar(&dumpversion, "dumpversion", false, "print the compiler version and exit")
	flag.BoolVar(&dumpmachine, "dumpmachine", false, "print the target triple and exit")
	flag.BoolVar(&dumpspecs, "dumpspecs", false, "print built-in compiler specs and exit")
	flag.Parse()

	if dumpversion {
		fmt.Println(tlcVersion)
		return
	}
	if dumpmachine {
		fmt.Println("x86_64-pc-windows-tl")
		return
	}
	if dumpspecs {
		fmt.Printf("tlc %s\nbackends: c, asmx64\n", tlcVersion)
		return
	}
	if verbose {
		fmt.Printf("tlc version %s\n", tlcVersion)
	}

	args := flag.Args()
	if len(args) == 0 {
		err = errors.New("no input files")
		return
	}
	entryFiles := args
	entry := entryFiles[0]
	if filepath.Ext(entry) != ".tl" {
		err = errors.Errorf("only files with .tl extension can be compiled: %s", entry)
		return
	}

	var logger *zap.Logger
	if debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return
		}
	} else {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	cfg, cfgErr := config.Load(filepath.Join(filepath.Dir(entry), "tlc.yaml"))
	if cfgErr != nil {
		err = cfgErr
		return
	}

	allIncludes := append([]string(nil), cfg.IncludePaths...)
	allIncludes = append(allIncludes, includePaths...)
	searchPaths := module.DefaultSearchPaths(filepath.Dir(entry), allIncludes)

	suppressWarn := noWarnings || !cfg.WarningsEnabled()
	maxErrors := maxErrorsOpt
	if maxErrors == 0 {
		maxErrors = cfg.MaxErrors
	}

	if dumpTokens {
		err = runDumpTokens(entry)
		return
	}
	if dumpAST || dumpASTJSON {
		err = runDumpAST(entry, searchPaths, suppressWarn, maxErrors, dumpASTJSON)
		return
	}

	target := compile.TargetC
	if useAsm {
		target = compile.TargetAsmX64
	}

	start := time.Now()
	pipeline := compile.New(logger)

	if moduleMode {
		err = runModuleMode(pipeline, entry, moduleOutDir, searchPaths, suppressWarn, maxErrors, target)
		if err == nil && memory {
			reportMemory(start)
		}
		return
	}

	if outFileName == "" && !dumpIR {
		err = errors.New("output file not specified (use -o)")
		return
	}

	result, runErr := pipeline.Run(compile.Options{
		EntryFiles:   entryFiles,
		SearchPaths:  searchPaths,
		SuppressWarn: suppressWarn,
		MaxErrors:    maxErrors,
		Target:       target,
	})
	if runErr != nil {
		err = runErr
		return
	}

	result.Sink.PrintAll(os.Stderr)
	if result.Sink.HasErrors() {
		err = errors.New("compilation failed")
		return
	}

	if dumpIR {
		printIR(result.IR)
		return
	}

	if err = writeFile(outFileName, result.Output); err != nil {
		return
	}

	if memory {
		reportMemory(start)
	}
}

func reportMemory(start time.Time) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(os.Stderr, "heap: %d KiB, elapsed: %v\n", m.HeapAlloc/1024, time.Since(start))
}

// runModuleMode implements --modules: the entry file's own #include targets
// are each compiled on their own into moduleOutDir, then the entry file
// itself (still fully resolved through the normal AST-concatenating
// resolver, since no separate object/link stage exists here any more than
// it does in module_manager_link's own "for now, just compile the first
// module" stub) is compiled into moduleOutDir as well. No -o target is
// needed; every output lands under moduleOutDir instead.
func runModuleMode(pipeline *compile.Pipeline, entry, outDir string, searchPaths module.SearchPaths, suppressWarn bool, maxErrors int, target compile.Target) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating module output directory %q", outDir)
	}

	ext := ".c"
	if target == compile.TargetAsmX64 {
		ext = ".asm"
	}

	discoverSink := diag.NewSink(suppressWarn)
	resolver := module.NewResolver(filepath.Dir(entry), searchPaths, discoverSink)
	includes, err := resolver.DirectIncludes(entry)
	if err != nil {
		return err
	}
	if discoverSink.HasErrors() {
		discoverSink.PrintAll(os.Stderr)
		return errors.New("resolving modules failed")
	}

	for _, inc := range includes {
		result, err := pipeline.Run(compile.Options{
			EntryFiles:   []string{inc},
			SearchPaths:  searchPaths,
			SuppressWarn: suppressWarn,
			MaxErrors:    maxErrors,
			Target:       target,
		})
		if err != nil {
			return err
		}
		result.Sink.PrintAll(os.Stderr)
		if result.Sink.HasErrors() {
			return errors.Errorf("compiling module %q failed", inc)
		}
		out := filepath.Join(outDir, trimExt(filepath.Base(inc))+ext)
		if err := writeFile(out, result.Output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "compiled module %q -> %q\n", inc, out)
	}

	result, err := pipeline.Run(compile.Options{
		EntryFiles:   []string{entry},
		SearchPaths:  searchPaths,
		SuppressWarn: suppressWarn,
		MaxErrors:    maxErrors,
		Target:       target,
	})
	if err != nil {
		return err
	}
	result.Sink.PrintAll(os.Stderr)
	if result.Sink.HasErrors() {
		return errors.New("compilation failed")
	}
	out := filepath.Join(outDir, trimExt(filepath.Base(entry))+ext)
	if err := writeFile(out, result.Output); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "compiled %q -> %q\n", entry, out)
	return nil
}

func writeFile(name, output string) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating output file %q", name)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(output); err != nil {
		return errors.Wrap(err, "writing output")
	}
	return w.Flush()
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}
