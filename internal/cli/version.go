package cli

import "fmt"

const Version = "0.1.0"

func HandleVersion() {
	fmt.Printf("Slate Template Engine v%s\n", Version)
}
