package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/chatlog/internal/config"
	"github.com/matheus3301/chatlog/internal/daemon"
	"github.com/matheus3301/chatlog/internal/instance"
	"go.uber.org/fx"
)

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	configFlag := flag.String("config", "", "config file (default $CHATLOG_HOME/config.toml)")
	envFileFlag := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	transport := flag.String("transport", "", "broker transport: mqtt, amqp or memory")
	brokerURI := flag.String("broker", "", "broker URI")
	topic := flag.String("topic", "", "topic filter to subscribe to")
	logPath := flag.String("log-path", "", "directory of the message log")
	logFile := flag.String("log-file", "", "file name of the message log")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	flag.Parse()

	if err := config.LoadDotenv(*envFileFlag); err != nil {
		fatal(err)
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = instance.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fatal(err)
	}

	// Only flags given on the command line win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport = *transport
		case "broker":
			cfg.BrokerURI = *brokerURI
		case "topic":
			cfg.Topic = *topic
		case "log-path":
			cfg.LogPath = *logPath
		case "log-file":
			cfg.LogFile = *logFile
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	name := instance.Resolve(*instanceFlag, cfg.DefaultInstance)
	if err := instance.ValidateName(name); err != nil {
		fatal(err)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Instance: name, Config: *cfg}),
	)

	app.Run()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
