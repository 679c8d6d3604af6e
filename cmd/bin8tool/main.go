// Binary8 entrance list tool: inspects captured entrance responses and
// builds new ones from config.
//
// Usage:
//
//	bin8tool decode resp.bin [more.bin ...]     # print parts and server lists as YAML
//	bin8tool build -out entrance_resp.bin       # encode the configured list
//	bin8tool checksum payload.bin               # print Sum32 of a raw payload
//	bin8tool cipher -key 0x3C in.bin out.bin    # apply the keystream to a raw file
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/udisondev/mhfentrance/internal/config"
)

const ConfigPath = "config/entrance.yaml"

type command struct {
	name string
	desc string
	run  func(ctx context.Context, args []string) error
}

var commands = map[string]command{}

func registerCommand(name, desc string, fn func(ctx context.Context, args []string) error) {
	commands[name] = command{name: name, desc: desc, run: fn}
}

func init() {
	registerCommand("decode", "Decode Binary8 wire dumps and print them as YAML", runDecode)
	registerCommand("build", "Build the configured entrance list and write its wire bytes", runBuild)
	registerCommand("checksum", "Print the Sum32 checksum of a raw payload file", runChecksum)
	registerCommand("cipher", "Apply the Binary8 keystream to a raw file", runCipher)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, args[1:])
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Usage: bin8tool <command> [flags] [args]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].desc)
	}
}

// loadConfig resolves the config path (flag, then MHFENTRANCE_CONFIG, then
// ConfigPath) and installs the slog handler for its log level.
func loadConfig(path string) (config.Entrance, error) {
	if path == "" {
		path = ConfigPath
		if p := os.Getenv("MHFENTRANCE_CONFIG"); p != "" {
			path = p
		}
	}
	cfg, err := config.LoadEntrance(path)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	slog.Debug("config loaded", "path", path, "tag", cfg.Tag, "entries", len(cfg.Entries))
	return cfg, nil
}
