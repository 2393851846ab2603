package main

import (
	"fmt"
	"io"
	"os"

	"github.com/eaburns/pretty"

	"github.com/eaburns/orp/decl"
)

type typeView struct {
	Name    string
	Base    string
	Ifaces  []string
	Members []memberView
}

type memberView struct {
	Decl      string
	Attrs     []decl.Attr
	Accessors []string
}

func main() {
	pretty.Indent = "    "

	var files []decl.File
	if len(os.Args) == 1 {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			die(err)
		}
		files = append(files, decl.File{Path: "<stdin>", Src: src})
	} else {
		for _, path := range os.Args[1:] {
			src, err := os.ReadFile(path)
			if err != nil {
				die(err)
			}
			files = append(files, decl.File{Path: path, Src: src})
		}
	}

	m, errs := decl.Load("main", files)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Println(err)
		}
		os.Exit(1)
	}
	for _, t := range m.Types {
		fmt.Println(t.Loc)
		pretty.Print(view(t))
		fmt.Println("")
	}
	for _, c := range m.Calls {
		fmt.Printf("%s: %s\n", c.Loc, c)
	}
	fmt.Println("")
}

func view(t *decl.Type) typeView {
	v := typeView{Name: t.FullName()}
	if t.Base != nil {
		v.Base = t.Base.String()
	}
	for _, it := range t.Ifaces {
		v.Ifaces = append(v.Ifaces, it.String())
	}
	for _, m := range t.Members {
		mv := memberView{Decl: m.String(), Attrs: m.Attrs}
		for _, a := range m.Accessors {
			mv.Accessors = append(mv.Accessors, a.String())
		}
		v.Members = append(v.Members, mv)
	}
	return v
}

func die(err error) {
	fmt.Println(err)
	os.Exit(1)
}
