package main

import (
	"context"
	"fmt"
	"image"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var photoCmd = &cobra.Command{
	Use:   "photo FILE...",
	Short: "Extract and compare hand silhouettes from still photos",
	Long: `Runs one photo-mode cycle per file. Skin colour is sampled from the
--rect region, which must lie on the subject's skin in every photo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPhoto,
}

func init() {
	photoCmd.Flags().String("rect", "", "Skin sample region as x,y,width,height (required)")
	photoCmd.MarkFlagRequired("rect")
	rootCmd.AddCommand(photoCmd)
}

func runPhoto(cmd *cobra.Command, args []string) error {
	rectFlag, _ := cmd.Flags().GetString("rect")
	rect, err := parseRect(rectFlag)
	if err != nil {
		return err
	}

	a, _, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("Processing photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	type outcome struct {
		path  string
		lines []string
		err   error
	}
	var outcomes []outcome
	failed := 0

	for _, path := range args {
		if ctx.Err() != nil {
			break
		}
		results, err := a.ProcessPhoto(ctx, path, rect)
		o := outcome{path: path, err: err}
		if err != nil {
			failed++
		}
		for _, r := range results {
			line := fmt.Sprintf("candidate %v", r.Bounds)
			if r.Compared {
				verdict := "rejected"
				if r.Accepted {
					verdict = "accepted"
				}
				line += fmt.Sprintf(" score %.3f %s", r.Score, verdict)
			}
			o.lines = append(o.lines, line)
		}
		outcomes = append(outcomes, o)
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	for _, o := range outcomes {
		fmt.Println(o.path)
		switch {
		case o.err != nil:
			fmt.Printf("  error: %v\n", o.err)
		case len(o.lines) == 0:
			fmt.Println("  no candidates")
		}
		for _, l := range o.lines {
			fmt.Printf("  %s\n", l)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d photos failed", failed, len(args))
	}
	return ctx.Err()
}

// parseRect parses "x,y,width,height".
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("invalid rect %q: want x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid rect %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid rect %q: empty region", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
