package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/palmgate/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one capture session in the foreground until interrupted",
	RunE:  runSession,
}

func init() {
	runCmd.Flags().Bool("quiet", false, "Do not print match results")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	a, _, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		a.OnMatch(func(score float64, accepted bool) {
			verdict := "rejected"
			if accepted {
				verdict = "accepted"
			}
			fmt.Printf("match %.3f %s\n", score, verdict)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := a.Run(ctx)
	printLastSession(a)
	return runErr
}

// printLastSession summarizes the most recent recorded session.
func printLastSession(a *app.App) {
	st := a.Store()
	if st == nil {
		return
	}
	sessions, err := st.Sessions().List(1)
	if err != nil || len(sessions) == 0 {
		return
	}
	s := sessions[0]
	stats, err := st.Attempts().Stats(s.ID)
	if err != nil {
		return
	}

	fmt.Printf("\nSession %s: %d attempts, %d accepted", s.ID, stats.Total, stats.Accepted)
	if stats.Total > 0 {
		fmt.Printf(", best score %.3f", stats.Best)
	}
	fmt.Println()
	if s.Error != "" {
		fmt.Printf("Ended with error: %s\n", s.Error)
	}
}
