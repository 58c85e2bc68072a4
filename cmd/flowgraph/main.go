// Package main provides the flowgraph command line: validate, migrate and run workflows.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	err := newApp(os.Stdout).Run(context.Background(), os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
