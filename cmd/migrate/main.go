// Command migrate applies the embedded schema migrations. Deployments
// that keep MIGRATE_ON_BOOT off run this out of band instead.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fleetpilot/fleet-api/internal/platform/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := postgres.New(dsn)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	defer db.Close()

	if err := postgres.Ping(ctx, db); err != nil {
		log.Fatalf("database ping: %v", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}
