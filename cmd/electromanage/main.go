// Command electromanage manages an electronics parts inventory.
package main

import (
	"os"

	"github.com/roach88/electromanage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
