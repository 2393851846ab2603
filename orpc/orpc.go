// The orpc command resolves the call sites of a module.
//
// Dependency modules are loaded from source,
// checked, and persisted as metadata next to their sources.
// The module itself is then loaded against the dependencies' metadata,
// and each of its call sites is resolved and printed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/logrusorgru/aurora/v4"

	"github.com/eaburns/orp/decl"
	"github.com/eaburns/orp/meta"
	"github.com/eaburns/orp/mod"
	"github.com/eaburns/orp/resolve"
)

const metaExt = ".orpmeta"

var (
	modPath  = flag.String("path", "main", "the current module's path")
	modRoot  = flag.String("root", ".", "root directory for referenced modules")
	force    = flag.Bool("force", false, "force writing metadata even if up-to-date")
	verbose  = flag.Bool("v", false, "enable verbose output")
	trace    = flag.Bool("trace", false, "enable resolution tracing")
	parallel = flag.Int("j", 0, "maximum call sites resolved concurrently (0 is GOMAXPROCS)")
	color    = flag.Bool("color", true, "colorize output")
)

var au *aurora.Aurora

func main() {
	flag.Usage = usage
	flag.Parse()
	if len(flag.Args()) != 1 {
		usage()
		os.Exit(1)
	}
	au = aurora.New(aurora.WithColors(*color))
	if *parallel < 0 {
		die("bad -j", fmt.Errorf("%d is negative", *parallel))
	}
	r := resolve.New(resolve.Config{Parallel: *parallel, Trace: *trace})

	srcPath := flag.Args()[0]
	root, err := mod.Load(srcPath, *modPath)
	if err != nil {
		die("failed to load module", err)
	}
	if err := root.LoadDeps(*modRoot); err != nil {
		die("failed to load dependencies", err)
	}
	loaded := make(map[*mod.Mod]*decl.Mod)
	for _, m := range mod.TopologicalDeps(root) {
		if m == root {
			break
		}
		loaded[m] = compile(r, m, refs(m, loaded))
	}
	os.Exit(run(r, root, refs(root, loaded)))
}

func refs(m *mod.Mod, loaded map[*mod.Mod]*decl.Mod) []*decl.Mod {
	var rs []*decl.Mod
	for _, d := range m.Deps {
		rs = append(rs, loaded[d])
	}
	return rs
}

// compile returns the dependency module m as read from its metadata,
// writing the metadata first if it is out of date.
func compile(r *resolve.Resolver, m *mod.Mod, refs []*decl.Mod) *decl.Mod {
	metaFile := metaFile(m)
	if *force || !lastModTime(m.SrcFiles).Before(modTime(metaFile)) {
		vprintf("checking %s\n", m.ModPath)
		dm := load(m, refs)
		if errs := r.Diagnostics(dm); len(errs) > 0 {
			printErrors(errs)
			os.Exit(1)
		}
		writeMeta(r, dm, metaFile)
	} else {
		vprintf("ok %s\n", m.ModPath)
	}
	return readMeta(metaFile, refs)
}

func metaFile(m *mod.Mod) string {
	return filepath.Join(m.SrcDir, m.ModName+metaExt)
}

func load(m *mod.Mod, refs []*decl.Mod) *decl.Mod {
	dm, errs := m.Decls(refs...)
	if len(errs) > 0 {
		printErrors(errs)
		os.Exit(1)
	}
	return dm
}

func writeMeta(r *resolve.Resolver, dm *decl.Mod, metaFile string) {
	vprintf("writing %s\n", metaFile)
	f, err := os.Create(metaFile)
	if err != nil {
		die("failed to create metadata file", err)
	}
	w := bufio.NewWriter(f)
	if err := meta.Write(w, dm, r.ReadPriority); err != nil {
		die("failed to write metadata", err)
	}
	if err := w.Flush(); err != nil {
		die("failed to flush metadata buffer", err)
	}
	if err := f.Close(); err != nil {
		die("failed to close metadata file", err)
	}
}

func readMeta(metaFile string, refs []*decl.Mod) *decl.Mod {
	f, err := os.Open(metaFile)
	if err != nil {
		die("failed to open metadata file", err)
	}
	defer f.Close()
	dm, err := meta.Read(bufio.NewReader(f), refs...)
	if err != nil {
		die("failed to read "+metaFile, err)
	}
	return dm
}

// run resolves the root module's call sites and prints the results.
// It returns the exit status.
func run(r *resolve.Resolver, root *mod.Mod, refs []*decl.Mod) int {
	vprintf("resolving %s\n", root.ModPath)
	dm := load(root, refs)
	results, err := r.ResolveAll(context.Background(), dm.Calls)
	if err != nil {
		die("failed to resolve", err)
	}
	status := 0
	for _, res := range results {
		if res.Err != nil {
			status = 1
			fmt.Println(au.Colorize(res.Err.Error(), aurora.RedFg|aurora.BrightFg|aurora.BoldFm))
			continue
		}
		target := res.Best.Member
		if res.Best.Target != nil {
			target = res.Best.Target
		}
		fmt.Printf("%s: %s → %s (priority %d)\n",
			res.Call.Loc, name(res.Call),
			au.Colorize(target.String(), aurora.YellowFg|aurora.BrightFg),
			res.Best.Priority)
	}
	if errs := r.Diagnostics(dm); len(errs) > 0 {
		printErrors(errs)
		status = 1
	}
	return status
}

func name(c *decl.Call) string {
	if c.ID != "" {
		return c.ID
	}
	return c.String()
}

func printErrors(errs []error) {
	for _, err := range errs {
		fmt.Fprintln(flag.CommandLine.Output(), au.Colorize(err.Error(), aurora.RedFg|aurora.BrightFg))
	}
}

func lastModTime(files []string) time.Time {
	var t time.Time
	for _, file := range files {
		if mt := modTime(file); mt.After(t) {
			t = mt
		}
	}
	return t
}

func modTime(file string) time.Time {
	finfo, err := os.Stat(file)
	switch {
	case os.IsNotExist(err):
		return time.Time{}
	case err != nil:
		die("failed to get mod time", err)
	}
	return finfo.ModTime()
}

func vprintf(f string, vs ...interface{}) {
	if *verbose {
		fmt.Printf(f, vs...)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
	fmt.Fprintf(out, "%s [flags] <module dir or file>\n", os.Args[0])
	flag.PrintDefaults()
}

func die(s string, err error) {
	if s == "" {
		fmt.Fprintln(flag.CommandLine.Output(), err)
	} else {
		fmt.Fprintf(flag.CommandLine.Output(), "%s: %s\n", s, err)
	}
	os.Exit(1)
}
