// Command mxmc computes optimal sample allocations for multi-fidelity Monte
// Carlo studies described in a YAML problem file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
