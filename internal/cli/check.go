package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"slate/pkg/compiler"
)

// HandleCheck compiles every template under a path and reports
// diagnostics. Exits non-zero when anything fails.
func HandleCheck(args []string) {
	root := templateDir()
	if len(args) > 0 {
		root = args[0]
	}

	c, err := compiler.New("", "")
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	var checked, failed int
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTemplate(path) {
			return nil
		}
		checked++
		if _, cerr := c.CompileFile(path); cerr != nil {
			failed++
			fmt.Printf("❌ %s: %v\n", path, cerr)
		}
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		if err := filepath.WalkDir(root, walk); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	} else {
		checked++
		if _, cerr := c.CompileFile(root); cerr != nil {
			failed++
			fmt.Printf("❌ %s: %v\n", root, cerr)
		}
	}

	if failed > 0 {
		fmt.Printf("❌ %d of %d templates failed\n", failed, checked)
		os.Exit(1)
	}
	fmt.Printf("✅ %d templates OK\n", checked)
}

func isTemplate(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xml":
		return true
	}
	return false
}
