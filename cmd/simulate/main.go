// Command simulate is the CLI entry point for running model specifications
// against the simulacra engine.
package main

import (
	"os"

	"simulacra/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
