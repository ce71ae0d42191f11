package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ayusman/palmgate/internal/compare"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	square := compare.Descriptor{0.17, 0, 0, 0, 0, 0, 0}
	skewed := compare.Descriptor{0.2, 0.01, 0.002, 0, 0, 0, 0}
	compare.WriteDescriptor("a.skl", square)
	compare.WriteDescriptor("b.skl", skewed)

	tests := []struct {
		name    string
		args    []string
		want    float64
		wantErr bool
	}{
		{"self", []string{"0.05", "0.05", "4", "a.skl", "a.skl", "0.2"}, 0, false},
		{"different", []string{"0.05", "0.05", "4", "a.skl", "b.skl", "0.2"}, compare.Distance(square, skewed) + 0.4, false},
		{"missing file", []string{"0.05", "0.05", "4", "a.skl", "c.skl", "0.2"}, 0, true},
		{"bad penalty", []string{"0.05", "0.05", "4", "a.skl", "b.skl", "x"}, 0, true},
		{"short", []string{"a.skl", "b.skl"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(compare.DefaultResultFile)
			err := run(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			data, err := os.ReadFile(filepath.Join(dir, compare.DefaultResultFile))
			if err != nil {
				t.Fatal(err)
			}
			got, _ := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
			if d := got - tt.want; d > 1e-6 || d < -1e-6 {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}
