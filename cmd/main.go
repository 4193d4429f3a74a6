package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Formula-SAE/bugreport/internal/api"
	"github.com/Formula-SAE/bugreport/internal/auth"
	"github.com/Formula-SAE/bugreport/internal/config"
	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/Formula-SAE/bugreport/internal/media"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.DBURL))
	}

	return gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "libsql",
		DSN:        cfg.DBURL,
	}))
}

func createSuperuser(ctx context.Context, database *db.DB, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return errors.New("--username, --email and --password are required")
	}

	hashed, err := auth.HashPassword(auth.BcryptHasher{}, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &db.User{
		Username: username,
		Email:    email,
		Password: hashed,
		IsStaff:  true,
	}
	if err := database.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	log.Printf("Superuser %s created with id %d", user.Username, user.ID)
	return nil
}

func main() {
	log.Println("=== Starting Bug Report API ===")

	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	address := pflag.String("address", "", "listen address, overrides ADDRESS")
	superuser := pflag.Bool("create-superuser", false, "create a staff user and exit")
	username := pflag.String("username", "", "superuser name")
	email := pflag.String("email", "", "superuser email")
	password := pflag.String("password", "", "superuser password")
	pflag.Parse()

	log.Println("Loading configuration...")
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *address != "" {
		cfg.Address = *address
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Configuration loaded, driver=%s address=%s", cfg.DBDriver, cfg.Address)

	log.Println("Initializing database connection...")
	gormDB, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to create database connection: %v", err)
	}
	log.Println("Database connection established successfully")

	log.Println("Running database migrations...")
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("Database migrations completed successfully")

	DB := db.NewDB(gormDB)

	if *superuser {
		if err := createSuperuser(context.Background(), DB, *username, *email, *password); err != nil {
			log.Fatalf("Failed to create superuser: %v", err)
		}
		return
	}

	store, err := media.NewDiskStore(cfg.MediaDir)
	if err != nil {
		log.Fatalf("Failed to prepare media directory: %v", err)
	}
	log.Printf("Media stored under %s", cfg.MediaDir)

	tokens := auth.NewJWTService([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL, DB)
	server := api.NewAPI(cfg.Address, mux.NewRouter(), DB, auth.BcryptHasher{}, tokens, store)

	go func() {
		log.Printf("Listening on %s", cfg.Address)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Println("API is running. Press Ctrl+C to stop.")
	<-stop

	log.Println("Received shutdown signal, stopping server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("=== Bug Report API stopped ===")
}
