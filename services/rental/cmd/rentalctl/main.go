package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"rentbook/internal/util"
	"rentbook/pkg/auth"
	"rentbook/pkg/rental"
	"rentbook/services/rental/internal/app"
	"rentbook/services/rental/internal/config"
)

const usage = `usage: rentalctl [-config path] <command>

commands:
  init             create every sheet with its header row
  seed             init, then write the sample data set
  hash-password P  print a bcrypt hash for an operator password
`

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config.yaml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), os.Stdout, *configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "rentalctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, configPath string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("command required")
	}
	cmd := strings.ToLower(args[0])
	if cmd == "hash-password" {
		if len(args) != 2 {
			return fmt.Errorf("hash-password takes exactly one argument")
		}
		if err := auth.ValidatePassword(args[1]); err != nil {
			return err
		}
		hash, err := auth.HashPassword(args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, hash)
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	util.InitLogger(cfg.LogLevel)
	grid, closeGrid, err := app.OpenGrid(app.Config{
		StoreBackend:  cfg.StoreBackend,
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return err
	}
	defer closeGrid()
	repos := rental.New(grid)

	switch cmd {
	case "init":
		if err := repos.Ensure(ctx); err != nil {
			return err
		}
		slog.Info("sheets ready", "store", cfg.StoreBackend)
	case "seed":
		res, err := repos.Seed(ctx)
		if err != nil {
			return err
		}
		slog.Info("sample data written",
			"store", cfg.StoreBackend,
			"cities", len(res.CityIDs),
			"building_id", res.BuildingID,
			"rooms", len(res.RoomIDs),
			"tenant_id", res.TenantID,
			"payment_id", res.PaymentID,
		)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
