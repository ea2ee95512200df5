// Command logmap demonstrates scoped timers, progress iteration and
// parallel mapping from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/baxromumarov/logmap/procpool"
)

func main() {
	// Worker processes started by "demo --processes" stop here.
	procpool.MaybeServe()

	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "logmap:", err)
		os.Exit(1)
	}
}
