// Package main provides the matching step of the moments comparator
// toolkit. It takes the skeleton comparator's argument list, compares the
// two descriptor files and writes the dissimilarity to the result file in
// the working directory.
//
// Usage: match approx approx depth first.skl second.skl penalty
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ayusman/palmgate/internal/compare"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("usage: match approx approx depth first.skl second.skl penalty")
	}

	// The penalty is added per invariant that only one shape carries.
	penalty, err := strconv.ParseFloat(args[5], 64)
	if err != nil {
		return fmt.Errorf("invalid penalty %q: %w", args[5], err)
	}

	a, err := compare.ReadDescriptor(args[3])
	if err != nil {
		return err
	}
	b, err := compare.ReadDescriptor(args[4])
	if err != nil {
		return err
	}

	score := compare.Distance(a, b) + penalty*float64(unmatched(a, b))
	out := strconv.FormatFloat(score, 'f', 6, 64) + "\n"
	return os.WriteFile(compare.DefaultResultFile, []byte(out), 0644)
}

// unmatched counts invariants significant in exactly one descriptor.
func unmatched(a, b compare.Descriptor) int {
	n := 0
	for i := range a {
		if significant(a[i]) != significant(b[i]) {
			n++
		}
	}
	return n
}

func significant(v float64) bool {
	return v > 1e-5 || v < -1e-5
}
