// gh-harvest searches GitHub for repositories matching a query and
// batch-clones a selected subset of the results.
package main

import (
	"fmt"
	"os"

	"github.com/harvest-sh/gh-harvest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
