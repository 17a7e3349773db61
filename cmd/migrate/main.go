// Command migrate runs database migrations via goose.
//
// Usage:
//
//	go run ./cmd/migrate up                  # Apply all pending migrations
//	go run ./cmd/migrate down                # Roll back the last migration
//	go run ./cmd/migrate status              # Show migration status
//	go run ./cmd/migrate version             # Show current schema version
//	go run ./cmd/migrate redo                # Roll back and re-apply last migration
//	go run ./cmd/migrate --seed tenants.yaml # Migrate up, then load a tenant seed file
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/pflag"

	"github.com/mbd888/careerhub/internal/tenant"
	"github.com/mbd888/careerhub/migrations"
)

func main() {
	dbURL := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	seed := pflag.String("seed", "", "YAML tenant seed file to load after migrating")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command> [args]")
		fmt.Fprintln(os.Stderr, "Commands: up, down, status, version, redo, up-to <version>, down-to <version>")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	command := "up"
	var args []string
	if pflag.NArg() > 0 {
		command = pflag.Arg(0)
		args = pflag.Args()[1:]
	} else if *seed == "" {
		pflag.Usage()
		os.Exit(1)
	}

	if *dbURL == "" {
		log.Fatal("DATABASE_URL or --database-url is required")
	}

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migrations.Run(ctx, db, command, args...); err != nil {
		log.Fatalf("Migration %s failed: %v", command, err)
	}

	if *seed != "" {
		n, err := tenant.LoadSeedFile(ctx, tenant.NewPostgresStore(db), *seed)
		if err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
		log.Printf("Loaded %d tenants from %s", n, *seed)
	}
}
