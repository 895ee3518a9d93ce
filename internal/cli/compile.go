package cli

import (
	"flag"
	"fmt"
	"os"

	"slate/pkg/compiler"
)

// HandleCompile compiles one template and prints the artifact (or
// writes it with -o). The compile cache is warmed as a side effect.
func HandleCompile(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	out := fs.String("o", "", "write the artifact to a file instead of stdout")
	noCache := fs.Bool("no-cache", false, "bypass the compile cache")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: slate compile [-o out] [-no-cache] <template>")
		os.Exit(1)
	}

	cd := cacheDir()
	if *noCache {
		cd = ""
	}
	c, err := compiler.New(templateDir(), cd)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	artifact, err := c.CompileFile(fs.Arg(0))
	if err != nil {
		fmt.Printf("❌ Compile Error: %v\n", err)
		os.Exit(1)
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(artifact), 0644); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Compiled %s -> %s\n", fs.Arg(0), *out)
		return
	}
	fmt.Print(artifact)
}
