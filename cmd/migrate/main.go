package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

// Applies the SQL files under migrations/ to the database DB_URL points at.
// Run with -down to roll everything back instead.
func main() {
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	down := flag.Bool("down", false, "roll all migrations back instead of applying them")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on the environment")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	absDir, err := filepath.Abs(*dir)
	if err != nil {
		log.Fatalf("resolve migrations dir: %v", err)
	}
	if info, err := os.Stat(absDir); err != nil || !info.IsDir() {
		log.Fatalf("migrations directory not found at %s", absDir)
	}

	m, err := migrate.New("file://"+absDir, dbURL)
	if err != nil {
		log.Fatalf("open migrator: %v", err)
	}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migrate: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Fatalf("read schema version: %v", err)
	}
	if dirty {
		log.Fatalf("schema left dirty at version %d", version)
	}
	log.Printf("schema at version %d", version)
}
