// The main package for the harvester executable.
package main

import (
	"github.com/rriarchive/harvester/cmd"
)

// main is the entry point of the application. It defers all execution to
// the Cobra CLI.
func main() {
	cmd.Execute()
}
