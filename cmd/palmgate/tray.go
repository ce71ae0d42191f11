package main

import (
	"context"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/palmgate/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run from the system tray with the web interface in the background",
	RunE:  runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
}

func runTray(cmd *cobra.Command, args []string) error {
	a, cfg, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	srv := newServer(a, cfg)
	go func() {
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Printf("Server failed: %v", err)
		}
	}()

	t := tray.New()
	t.SetPhotoMode(a.Scheduler().PhotoMode())

	t.OnToggle(func(running bool) error {
		if !running {
			a.Stop()
			return nil
		}
		if err := a.Start(); err != nil {
			return err
		}
		go func() {
			a.Wait()
			t.SetRunning(false)
		}()
		return nil
	})
	t.OnPhotoMode(a.Scheduler().SetPhotoMode)
	t.OnSettings(func() {
		openBrowser(settingsURL(cfg.Server.Addr))
	})
	t.OnQuit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	a.OnMatch(func(score float64, accepted bool) {
		t.SetLastScore(tray.FormatScore(score, accepted))
	})

	t.Run()
	return nil
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	if err := c.Start(); err != nil {
		log.Printf("Failed to open %s: %v", url, err)
	}
}
