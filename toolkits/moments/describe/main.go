// Package main provides the descriptor step of the moments comparator
// toolkit. It stands in for a skeleton extractor: it reads a silhouette
// bitmap and writes its Hu moment invariants.
//
// Usage: describe [-p level] input.bmp output.skl
package main

import (
	"fmt"
	"os"

	"github.com/ayusman/palmgate/internal/compare"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run accepts and ignores the pruning level, which has no meaning for moments.
func run(args []string) error {
	if len(args) >= 2 && args[0] == "-p" {
		args = args[2:]
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: describe [-p level] input.bmp output.skl")
	}

	mask, err := compare.LoadReference(args[0])
	if err != nil {
		return err
	}
	d, err := compare.Describe(mask)
	if err != nil {
		return fmt.Errorf("describe %s: %w", args[0], err)
	}
	return compare.WriteDescriptor(args[1], d)
}
