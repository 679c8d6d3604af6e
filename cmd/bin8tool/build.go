package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/udisondev/mhfentrance/internal/config"
	"github.com/udisondev/mhfentrance/internal/db"
	"github.com/udisondev/mhfentrance/internal/entrance"
)

var _ entrance.PopulationSource = (*db.ServerRepository)(nil)

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file")
	out := fs.String("out", "", "output file (overrides config output)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *out != "" {
		cfg.Output = *out
	}

	wire, err := buildWire(ctx, cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Output, wire, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Output, err)
	}
	slog.Info("entrance list written",
		"path", cfg.Output,
		"tag", cfg.Tag,
		"servers", len(cfg.Entries),
		"bytes", len(wire))
	return nil
}

// buildWire builds the configured list and packs it with cfg.Key.
// Player counts are read from PostgreSQL when the database is enabled.
func buildWire(ctx context.Context, cfg config.Entrance) ([]byte, error) {
	var opts []entrance.BuilderOption
	if cfg.Database.Enabled {
		dsn := cfg.Database.DSN()
		if err := db.RunMigrations(ctx, dsn); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		database, err := db.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

		opts = append(opts, entrance.WithPopulation(db.NewServerRepository(database.Pool())))
	}

	list, err := entrance.NewBuilder(cfg, opts...).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building entrance list: %w", err)
	}
	wire, err := list.Pack(cfg.Key)
	if err != nil {
		return nil, err
	}
	return wire, nil
}
