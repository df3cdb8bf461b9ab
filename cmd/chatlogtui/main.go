package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/chatlog/internal/client"
	"github.com/matheus3301/chatlog/internal/config"
	"github.com/matheus3301/chatlog/internal/daemon"
	"github.com/matheus3301/chatlog/internal/instance"
	"github.com/matheus3301/chatlog/internal/store"
	"github.com/matheus3301/chatlog/internal/tui"
	"github.com/matheus3301/chatlog/internal/tui/model"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	startFlag := flag.Bool("start", true, "start chatlogd if it is not running")
	flag.Parse()

	cfg, err := config.LoadOrDefault(instance.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	name := instance.Resolve(*instanceFlag, cfg.DefaultInstance)
	if err := instance.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	socketPath := instance.SocketPath(name)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	// Probe daemon health; auto-start if needed.
	if !probeDaemon(c) && *startFlag {
		fmt.Fprintf(os.Stderr, "daemon not running for instance %q, starting...\n", name)
		if err := startDaemon(name); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(c, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready\n")
			os.Exit(1)
		}
	}

	db, err := store.OpenReadOnly(instance.DBPath(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open archive: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	vm := model.NewViewModel(db, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return c.Status(ctx, daemon.ServiceName)
	})

	app := tui.NewApp(vm, name)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeDaemon reports whether the daemon answers SERVING on its health service.
func probeDaemon(c *client.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, err := c.Status(ctx, daemon.ServiceName)
	return err == nil && st == "SERVING"
}

func startDaemon(name string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	chatlogd := filepath.Join(filepath.Dir(executable), "chatlogd")

	if _, err := os.Stat(chatlogd); err != nil {
		chatlogd = "chatlogd"
	}

	cmd := exec.Command(chatlogd, "--instance", name)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func waitForDaemon(c *client.Client, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(c) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
