package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"slate/internal/cli"
	"slate/pkg/logger"
)

func main() {
	godotenv.Load()
	logger.Setup(os.Getenv("APP_ENV"))

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "compile":
		cli.HandleCompile(os.Args[2:])
	case "check":
		cli.HandleCheck(os.Args[2:])
	case "serve":
		cli.HandleServe(os.Args[2:])
	case "version":
		cli.HandleVersion()
	default:
		fmt.Printf("unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Slate - compiling template engine")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  slate compile [-o out] <template>   compile a template")
	fmt.Println("  slate check [path]                  compile everything, report errors")
	fmt.Println("  slate serve [-addr :8080]           run the preview server")
	fmt.Println("  slate version")
}
