package main

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"worktracker/internal/config"
	"worktracker/internal/handlers"
	"worktracker/internal/models"
	"worktracker/internal/seed"
	"worktracker/internal/token"
)

func main() {
	config.Load()
	cfg := config.LoadServer()

	os.MkdirAll(cfg.UploadDir, os.ModePerm)

	db, err := gorm.Open(sqlite.Open(cfg.DBName), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if _, err := os.Stat(cfg.SeedFile); err == nil {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
		if err := seed.Apply(db, f); err != nil {
			log.Fatalf("Failed to apply seed file: %v", err)
		}
		log.Printf("[seed] applied %s (%d employees, %d projects)", cfg.SeedFile, len(f.Employees), len(f.Projects))
	}

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.AccessTokenDuration, cfg.RefreshTokenDuration)
	r := handlers.NewRouter(handlers.NewTrackerHandler(db, cfg.UploadDir, issuer))

	fmt.Printf("Server running on port %s\n", cfg.Port)
	if err := r.Run(cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
