// Package main provides the schema migration CLI.
// Usage: migrate up
//
//	migrate down
//	migrate steps -1
//	migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"stockflow/internal/config"
	"stockflow/internal/infrastructure/storage/postgres/migrations"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	m, err := migrations.New(cfg.Database.DSN)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = m.Close() }()

	ctx := context.Background()

	switch os.Args[1] {
	case "up":
		err = m.Up(ctx)
	case "down":
		err = m.Down(ctx)
	case "steps":
		err = runSteps(ctx, m)
	case "version":
		err = printVersion(m)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Stockflow Migration CLI

Usage:
  migrate <command> [options]

Commands:
  up        Apply all pending migrations
  down      Roll back every migration
  steps N   Apply N migrations (negative N rolls back)
  version   Print the applied version
  help      Show this help

Environment Variables:
  STOCKFLOW_DATABASE_DSN   Connection string (postgres://...)`)
}

func runSteps(ctx context.Context, m *migrations.Migrator) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("steps needs a count")
	}
	n, err := strconv.Atoi(os.Args[2])
	if err != nil || n == 0 {
		return fmt.Errorf("invalid step count %q", os.Args[2])
	}
	return m.Steps(ctx, n)
}

func printVersion(m *migrations.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Printf("version: %d\n", version)
	if dirty {
		fmt.Println("dirty: true (last migration failed, fix and force manually)")
	}
	return nil
}
