// The main package for the imgsearch executable.
package main

import (
	"github.com/JakeFAU/imgsearch/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
