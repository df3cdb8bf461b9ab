package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/chatlog/internal/broker"
	"github.com/matheus3301/chatlog/internal/broker/amqp"
	"github.com/matheus3301/chatlog/internal/broker/mqtt"
	"github.com/matheus3301/chatlog/internal/client"
	"github.com/matheus3301/chatlog/internal/config"
	"github.com/matheus3301/chatlog/internal/daemon"
	"github.com/matheus3301/chatlog/internal/instance"
	"github.com/matheus3301/chatlog/internal/lock"
	"github.com/matheus3301/chatlog/internal/store"
	"go.uber.org/zap"
)

type statusOutput struct {
	Instance string `json:"instance"`
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	Status   string `json:"status"`
	Messages int64  `json:"messages"`
}

type messageOutput struct {
	ID         int64  `json:"id"`
	EventID    string `json:"event_id"`
	Topic      string `json:"topic"`
	Payload    string `json:"payload"`
	ReceivedAt int64  `json:"received_at"`
}

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	cfg, err := config.LoadOrDefault(instance.ConfigPath())
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fatal(err)
	}

	name := instance.Resolve(*instanceFlag, cfg.DefaultInstance)
	if err := instance.ValidateName(name); err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, name, *jsonFlag)
	case "history":
		cmdHistory(name, args[1:], *jsonFlag)
	case "publish":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatlogctl publish <payload>")
			os.Exit(1)
		}
		cmdPublish(ctx, cfg, strings.Join(args[1:], " "))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatlogctl [--instance <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status             Show daemon status")
	fmt.Fprintln(os.Stderr, "  history [-n N]     Print the last N archived messages")
	fmt.Fprintln(os.Stderr, "  publish <payload>  Publish a message to the configured topic")
}

func cmdStatus(ctx context.Context, name string, jsonOut bool) {
	out := statusOutput{Instance: name, Status: "STOPPED"}

	if pid, err := lock.HolderPID(instance.Dir(name)); err == nil && pid > 0 {
		out.PID = pid
	}

	if _, err := os.Stat(instance.SocketPath(name)); err == nil {
		c, err := client.New(instance.SocketPath(name))
		if err != nil {
			fatal(err)
		}
		defer func() { _ = c.Close() }()
		if st, err := c.Status(ctx, daemon.ServiceName); err == nil {
			out.Running = true
			out.Status = st
		}
	}

	if db, err := store.OpenReadOnly(instance.DBPath(name)); err == nil {
		if n, err := db.CountMessages(); err == nil {
			out.Messages = n
		}
		_ = db.Close()
	}

	if jsonOut {
		outputJSON(out)
		return
	}
	fmt.Printf("Instance: %s\n", out.Instance)
	fmt.Printf("Status:   %s\n", out.Status)
	if out.PID > 0 {
		fmt.Printf("PID:      %d\n", out.PID)
	}
	fmt.Printf("Archived: %d\n", out.Messages)
}

func cmdHistory(name string, args []string, jsonOut bool) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 20, "number of messages")
	_ = fs.Parse(args)

	db, err := store.OpenReadOnly(instance.DBPath(name))
	if err != nil {
		fatal(fmt.Errorf("open archive: %w", err))
	}
	defer func() { _ = db.Close() }()

	msgs, err := db.ListRecent(*n)
	if err != nil {
		fatal(err)
	}

	if jsonOut {
		out := make([]messageOutput, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageOutput{
				ID:         m.ID,
				EventID:    m.EventID,
				Topic:      m.Topic,
				Payload:    string(m.Payload),
				ReceivedAt: m.ReceivedAt,
			})
		}
		outputJSON(out)
		return
	}
	if len(msgs) == 0 {
		fmt.Println("No messages archived.")
		return
	}
	for _, m := range msgs {
		ts := time.UnixMilli(m.ReceivedAt).Format("2006-01-02 15:04:05")
		fmt.Printf("%s  %-20s %s\n", ts, m.Topic, strconv.Quote(string(m.Payload)))
	}
}

func cmdPublish(ctx context.Context, cfg *config.Config, payload string) {
	opts := broker.Options{
		URI:      cfg.BrokerURI,
		ClientID: "chatlogctl-" + strconv.Itoa(os.Getpid()),
		Exchange: cfg.Exchange,
		QoS:      byte(cfg.QoS),
	}

	var c interface {
		broker.Client
		broker.Publisher
	}
	switch cfg.Transport {
	case config.TransportMQTT:
		c = mqtt.New(opts, zap.NewNop())
	case config.TransportAMQP:
		c = amqp.New(opts, zap.NewNop())
	default:
		fatal(errors.New("publish needs the mqtt or amqp transport"))
	}

	if err := c.Connect(ctx); err != nil {
		fatal(fmt.Errorf("connect: %w", err))
	}
	defer func() { _ = c.Close() }()

	if err := c.Publish(ctx, cfg.Topic, []byte(payload)); err != nil {
		fatal(fmt.Errorf("publish: %w", err))
	}
	fmt.Printf("Published %d bytes to %s\n", len(payload), cfg.Topic)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
