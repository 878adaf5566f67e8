// Package main is the entrypoint for the intents-bridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/intentwire/intents-bridge/internal/config"
	"github.com/intentwire/intents-bridge/internal/server"
	"github.com/intentwire/intents-bridge/pkg/manifest"
	"github.com/intentwire/intents-bridge/pkg/store"
)

const usage = `Usage: intents-bridge [command]
       intents-bridge serve             Start the bridge (COMMS, HTTP, dispatch).
       intents-bridge migrate up        Run journal database migrations.
       intents-bridge migrate down      Roll back one migration (migrations are forward-only; prints guidance).
       intents-bridge migrate status    Show migration status.
       intents-bridge ensure-db [name]  Create database if missing (default name: intents_bridge_test). Uses DATABASE_URL host/user.
       intents-bridge clear             Truncate the donation journal and binding snapshots; schema is preserved.
       intents-bridge manifest [file]   Resolve and print the compiled-intent manifest.

Commands:
  serve            (default) Start the intents bridge.
  migrate up       Run journal migrations only.
  migrate down     Forward-only migrations; prints guidance.
  migrate status   Show current migration status.
  ensure-db [name] Create database (e.g. intents_bridge_test) on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate journal data; schema preserved.
  manifest [file]  Print the manifest the bridge would load (file overrides INTENTS_MANIFEST_FILE).

Environment: DATABASE_URL (journal; empty disables it), MIGRATION_PATH, BRIDGE_HTTP_ADDR (default 0.0.0.0:8080), INTENTS_MANIFEST_FILE, HOST_OS, HOST_OS_VERSION. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("intents-bridge migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("intents-bridge migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("intents-bridge migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("intents-bridge migrate down: %v", err)
			}
		default:
			log.Fatalf("intents-bridge migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("intents-bridge clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "intents_bridge_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("intents-bridge ensure-db: %v", err)
		}
		return
	case "manifest":
		manifestFile := ""
		if len(args) > 1 {
			manifestFile = args[1]
		}
		if err := runManifest(manifestFile); err != nil {
			log.Fatalf("intents-bridge manifest: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("intents-bridge: %v", err)
	}
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := store.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := store.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return store.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runMigrateDown() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return store.MigrationDown(ctx, pool, cfg.MigrationPath)
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := store.ClearJournal(ctx, pool); err != nil {
		return fmt.Errorf("clear journal: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Replace path with target database name; query (e.g. sslmode) is kept on u.RawQuery.
	u.Path = "/" + dbName
	targetURL := u.String()
	ctx := context.Background()
	if err := store.EnsureDatabase(ctx, targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

func runManifest(manifestFileOverride string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	manifestPath := manifestFileOverride
	if manifestPath == "" {
		manifestPath = cfg.ManifestFile
	}
	manifestCfg, err := manifest.LoadManifestConfig(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	data, err := json.MarshalIndent(manifestCfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
