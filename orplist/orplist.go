// The orplist command lists all modules in the given directory
// in topological order, dependencies first.
// With -files, each module's source files are listed beneath it.
// With -decls, each module is loaded and its declarations are counted:
// types, members, call sites, and members with a nonzero priority.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eaburns/orp/decl"
	"github.com/eaburns/orp/mod"
	"github.com/eaburns/orp/resolve"
)

var (
	files = flag.Bool("files", false, "list each module's source files")
	decls = flag.Bool("decls", false, "count each module's declarations")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if len(flag.Args()) != 1 {
		usage()
		os.Exit(1)
	}
	var mods []*mod.Mod
	seen := make(map[string]*mod.Mod)
	listed := make(map[string]bool)
	root, err := realPath(flag.Args()[0])
	if err != nil {
		die(err)
	}
	for _, dir := range orpDirs(root) {
		path, err := filepath.Rel(root, dir)
		if err != nil {
			die(err)
		}
		listed[path] = true
		if seen[path] != nil {
			continue
		}

		m, err := mod.Load(dir, path)
		if err != nil {
			die(err)
		}
		seen[path] = m
		mods = append(mods, m)
		if err := m.LoadDeps(root); err != nil {
			die(err)
		}
		seeDeps(m, seen)
	}
	// Pre-sort to make tie-breaking alphabetical.
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].SrcPath < mods[j].SrcPath
	})
	r := resolve.New(resolve.Config{})
	loaded := make(map[*mod.Mod]*decl.Mod)
	printed := make(map[*mod.Mod]bool)
	for _, m := range mods {
		for _, d := range mod.TopologicalDeps(m) {
			if *decls && loaded[d] == nil {
				loaded[d] = load(d, loaded)
			}
			if printed[d] || !listed[d.ModPath] {
				continue
			}
			printed[d] = true
			if *decls {
				fmt.Printf("%s\t%s\n", d.ModPath, counts(r, loaded[d]))
			} else {
				fmt.Println(d.ModPath)
			}
			if *files {
				for _, f := range d.SrcFiles {
					fmt.Println("\t" + f)
				}
			}
		}
	}
}

func load(m *mod.Mod, loaded map[*mod.Mod]*decl.Mod) *decl.Mod {
	var refs []*decl.Mod
	for _, d := range m.Deps {
		refs = append(refs, loaded[d])
	}
	dm, errs := m.Decls(refs...)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(flag.CommandLine.Output(), err)
		}
		os.Exit(1)
	}
	return dm
}

func counts(r *resolve.Resolver, m *decl.Mod) string {
	members := m.Members()
	var prioritized int
	for _, mem := range members {
		if mem.Kind != decl.Getter && mem.Kind != decl.Setter && r.ReadPriority(mem) != 0 {
			prioritized++
		}
	}
	return fmt.Sprintf("%d types, %d members, %d calls, %d prioritized",
		len(m.Types), len(members), len(m.Calls), prioritized)
}

func seeDeps(root *mod.Mod, seen map[string]*mod.Mod) {
	for i, d := range root.Deps {
		s, ok := seen[d.ModPath]
		if ok {
			if s != d {
				root.Deps[i] = s
			}
			continue
		}
		seen[d.ModPath] = d
		seeDeps(d, seen)
	}
}

func orpDirs(root string) []string {
	f, err := os.Open(root)
	if err != nil {
		die(err)
	}
	defer f.Close()

	finfo, err := f.Stat()
	if err != nil {
		die(err)
	}
	if !finfo.IsDir() {
		return nil
	}

	finfos, err := f.Readdir(-1)
	if err != nil {
		die(err)
	}
	var dirs []string
	hasSrc := false
	for _, finfo := range finfos {
		path := filepath.Join(root, finfo.Name())
		if !finfo.IsDir() && strings.HasSuffix(path, mod.SrcExt) {
			hasSrc = true
		}
		dirs = append(dirs, orpDirs(path)...)
	}
	if hasSrc {
		dirs = append(dirs, root)
	}
	return dirs
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
	fmt.Fprintf(out, "%s [flags] <directory>\n", os.Args[0])
	flag.PrintDefaults()
}

func die(err error) {
	fmt.Fprintln(flag.CommandLine.Output(), err)
	os.Exit(1)
}

func realPath(dir string) (string, error) {
	switch dir {
	case string([]rune{filepath.Separator}):
		return dir, nil
	case ".":
		return os.Getwd()
	default:
		base := filepath.Base(dir)
		dir, err := realPath(filepath.Dir(dir))
		if err != nil {
			return "", err
		}
		switch base {
		case ".":
			return dir, nil
		case "..":
			return filepath.Dir(dir), nil
		default:
			return filepath.Join(dir, base), nil
		}
	}
}
