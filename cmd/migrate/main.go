package main

import (
	"errors"
	"flag"
	"log"

	"forum_client/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	source := flag.String("source", "file://migrations", "migration source url")
	down := flag.Bool("down", false, "roll back all migrations")
	force := flag.Int("force", -1, "force version before migrating, used to clear a dirty state")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.New(*source, cfg.Database.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if *force >= 0 {
		log.Printf("Forcing version %d...", *force)
		if err := m.Force(*force); err != nil {
			log.Fatal("Failed to force version:", err)
		}
	}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Fatalf("Database is dirty at version %d, rerun with -force %d", dirty.Version, dirty.Version-1)
		}
		log.Fatal(err)
	}

	log.Println("Migration successful")
}
