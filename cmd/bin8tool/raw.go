package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/udisondev/mhfentrance/internal/crypto"
)

func runChecksum(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("checksum: expected exactly one file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	sum, err := crypto.Sum32(data)
	if err != nil {
		return fmt.Errorf("checksum %s: %w", args[0], err)
	}
	fmt.Printf("0x%08X  %s\n", sum, args[0])
	return nil
}

func runCipher(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("cipher", flag.ContinueOnError)
	keyFlag := fs.String("key", "0", "key byte (decimal or 0x-prefixed hex)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("cipher: expected input and output files")
	}
	key, err := parseKey(*keyFlag)
	if err != nil {
		return err
	}

	in, out := fs.Arg(0), fs.Arg(1)
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}
	crypto.Bin8InPlace(data, key)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	slog.Info("keystream applied", "in", in, "out", out, "key", key, "bytes", len(data))
	return nil
}

func parseKey(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return byte(v), nil
}
