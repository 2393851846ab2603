// © 2020 the Pea Authors under the MIT license. See AUTHORS for the list of authors.

package mod

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEmptyModule(t *testing.T) {
	root, err := newFS(nil)
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(root, "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.SrcFiles) > 0 {
		t.Errorf("len(m.SrcFiles)=%d, want 0", len(m.SrcFiles))
	}
}

func TestSourceFileModule(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo.orp.yaml", body: ""},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(filepath.Join(root, "foo.orp.yaml"), "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []string{
		filepath.Join(root, "foo.orp.yaml"),
	}
	if !reflect.DeepEqual(m.SrcFiles, want) {
		t.Errorf("m.SrcFiles=%v, want %v", m.SrcFiles, want)
	}
	if m.SrcDir != root {
		t.Errorf("m.SrcDir=%v, want %v", m.SrcDir, root)
	}
}

func TestSourceFileNotFound(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo.orp.yaml", body: ""},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	_, err = Load(filepath.Join(root, "nothing.orp.yaml"), "foo")
	if err == nil {
		t.Fatalf("Load() succeeded, wanted an error")
	}
}

func TestSourceDirModule(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo.orp.yaml", body: ""},
		{path: "bar.orp.yaml", body: ""},
		{path: "baz.orp.yaml", body: ""},
		{path: "zzz.yaml", body: ""},
		{path: "qux.go", body: ""},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(root, "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "bar.orp.yaml"),
		filepath.Join(root, "baz.orp.yaml"),
		filepath.Join(root, "foo.orp.yaml"),
	}
	if !reflect.DeepEqual(m.SrcFiles, want) {
		t.Errorf("m.SrcFiles=%v, want %v", m.SrcFiles, want)
	}
}

func TestSourceDirIgnoreNonSourceFiles(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo.orp.yaml", body: ""},
		{path: ".gitignore", body: ""},
		{path: "blah", body: ""},
		{path: "something.orp.yaml_something", body: ""},
		{path: "orp", body: ""},
		{path: "sub.orp.yaml/x.orp.yaml", body: ""},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(root, "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "foo.orp.yaml"),
	}
	if !reflect.DeepEqual(m.SrcFiles, want) {
		t.Errorf("m.SrcFiles=%v, want %v", m.SrcFiles, want)
	}
}

func TestFiles(t *testing.T) {
	root, err := newFS([]file{
		{path: "a.orp.yaml", body: "module: foo\n"},
		{path: "b.orp.yaml", body: "types: []\n"},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(root, "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	files, err := m.Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 || string(files[0].Src) != "module: foo\n" || string(files[1].Src) != "types: []\n" {
		t.Errorf("got files %v", files)
	}
}

func TestMalformedReferences(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo/foo.orp.yaml", body: "references: [bar]\n"},
		{path: "bar/bar.orp.yaml", body: "references: bar\n"},
		{path: "baz/baz.orp.yaml", body: ``},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(filepath.Join(root, "foo"), "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := m.LoadDeps(root); err == nil {
		t.Fatalf("LoadDeps succeeded, wanted an error")
	}
}

func TestMissingDep(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo/foo.orp.yaml", body: "references: [bar]\n"},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	m, err := Load(filepath.Join(root, "foo"), "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := m.LoadDeps(root); err == nil {
		t.Fatalf("LoadDeps succeeded, wanted an error")
	}
}

func TestLoadDeps(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo/foo.orp.yaml", body: "references: [bar]\n"},
		{path: "bar/bar.orp.yaml", body: "references: [baz]\n"},
		{path: "baz/baz.orp.yaml", body: ``},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	fooDir := filepath.Join(root, "foo")

	foo, err := Load(fooDir, "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := foo.LoadDeps(root); err != nil {
		t.Fatalf("LoadDeps failed: %v", err)
	}
	if len(foo.Deps) != 1 {
		t.Fatalf("len(foo.Deps)=%d, want 1", len(foo.Deps))
	}

	bar := foo.Deps[0]
	if bar.ModPath != "bar" {
		t.Errorf("bar.ModPath=%v, want bar", bar.ModPath)
	}
	if len(bar.Deps) != 1 {
		t.Fatalf("len(bar.Deps)=%d, want 1", len(bar.Deps))
	}

	baz := bar.Deps[0]
	if baz.ModPath != "baz" {
		t.Errorf("bar.ModPath=%v, want baz", baz.ModPath)
	}
	if len(baz.Deps) != 0 {
		t.Errorf("len(baz.Deps)=%d, want 0", len(baz.Deps))
	}
}

func TestDecls(t *testing.T) {
	root, err := newFS([]file{
		{path: "app/app.orp.yaml", body: "references: [lib]\ntypes:\n  - name: A\n    base: L\n"},
		{path: "lib/lib.orp.yaml", body: "types:\n  - name: L\n"},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	app, err := Load(filepath.Join(root, "app"), "app")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := app.LoadDeps(root); err != nil {
		t.Fatalf("LoadDeps failed: %v", err)
	}
	lib, errs := app.Deps[0].Decls()
	if len(errs) > 0 {
		t.Fatalf("lib.Decls failed: %v", errs)
	}
	if lib.Name != "lib" {
		t.Errorf("lib.Name=%s, want lib", lib.Name)
	}
	a, errs := app.Decls(lib)
	if len(errs) > 0 {
		t.Fatalf("app.Decls failed: %v", errs)
	}
	if typ := a.Type("A"); typ == nil || typ.Base != lib.Type("L") {
		t.Errorf("A's base is not lib's L")
	}
	if _, errs := app.Decls(); len(errs) == 0 {
		t.Errorf("app.Decls without lib succeeded, wanted an error")
	}
}

func TestTopologicalDeps(t *testing.T) {
	root, err := newFS([]file{
		{path: "foo/foo.orp.yaml", body: "references: [bar, baz]\n"},
		{path: "bar/bar.orp.yaml", body: "references: [baz]\n"},
		{path: "baz/baz.orp.yaml", body: ``},
	})
	if err != nil {
		t.Fatalf("newFS failed: %v", err)
	}
	defer rmDirRecur(root)

	fooDir := filepath.Join(root, "foo")

	foo, err := Load(fooDir, "foo")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := foo.LoadDeps(root); err != nil {
		t.Fatalf("LoadDeps failed: %v", err)
	}

	sorted := TopologicalDeps(foo)
	if len(sorted) != 3 {
		t.Fatalf("len(sorted)=%d, want 3", len(sorted))
	}
	if sorted[0].ModPath != "baz" {
		t.Errorf("sorted[0].ModPath=%v, want baz", sorted[0].ModPath)
	}
	if sorted[1].ModPath != "bar" {
		t.Errorf("sorted[1].ModPath=%v, want bar", sorted[1].ModPath)
	}
	if sorted[2].ModPath != "foo" {
		t.Errorf("sorted[2].ModPath=%v, want foo", sorted[2].ModPath)
	}
}

type file struct {
	path string
	body string
}

// newFS creates the files in a root temporary directory.
// It returns the root directory or an error.
func newFS(files []file) (root string, err error) {
	if root, err = os.MkdirTemp("", "orp_mod_test"); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			rmDirRecur(root)
		}
	}()
	for _, file := range files {
		if err := os.MkdirAll(filepath.Join(root, filepath.Dir(file.path)), os.ModePerm); err != nil {
			return "", err
		}
		f, err := os.Create(filepath.Join(root, file.path))
		if err != nil {
			return "", err
		}
		if _, err := io.WriteString(f, file.body); err != nil {
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
	}
	return root, nil
}

func rmDirRecur(root string) error {
	return os.RemoveAll(root)
}
