package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/serenity-wellness/serenity-server/cmd/api"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/db"
	"github.com/serenity-wellness/serenity-server/service/mailer"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
    // Check for command-line arguments
    if len(os.Args) > 1 {
        switch os.Args[1] {
        case "migrate":
            runMigrations()
            return
        case "clear-db":
            runDatabaseClear()
            return
        case "seed-admin":
            runAdminSeed()
            return
        default:
            log.Fatalf("Unknown command: %s", os.Args[1])
        }
    }

    // Start the server
    startServer()
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	return cfg
}

func runMigrations() {
	cfg := loadConfig()

	DB, err := db.NewPSQLStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	// Perform migrations
	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := map[interface{}]string{
		&models.Service{}:       "Service",
		&models.AvailableSlot{}: "AvailableSlot",
		&models.Consultation{}:  "Consultation",
		&models.DiscountCode{}:  "DiscountCode",
		&models.AdminUser{}:     "AdminUser",
		&models.OutboxEmail{}:   "OutboxEmail",
	}

	log.Println("Starting database migrations...")
	for model, name := range migrations {
		log.Printf("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		log.Printf("%s migration successful", name)
	}

	log.Println("All migrations completed successfully")
	return nil
}


// runAdminSeed creates the first admin account from ADMIN_USERNAME,
// ADMIN_PASSWORD and ADMIN_EMAIL.
func runAdminSeed() {
	cfg := loadConfig()

	DB, err := db.NewPSQLStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
	}()

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	email := os.Getenv("ADMIN_EMAIL")
	if username == "" || password == "" || email == "" {
		log.Fatal("ADMIN_USERNAME, ADMIN_PASSWORD and ADMIN_EMAIL are required")
	}

	var existing models.AdminUser
	if err := DB.Where("username = ?", username).First(&existing).Error; err == nil {
		log.Printf("Admin user %s already exists", username)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error hashing password: %v", err)
	}

	admin := models.AdminUser{
		Username:     username,
		PasswordHash: string(passwordHash),
		Email:        email,
		Role:         "admin",
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Fatalf("Error creating admin user: %v", err)
	}
	log.Printf("Admin user %s created", username)
}


func startServer() {
	cfg := loadConfig()

	// Initialize database connection
	DB, err := db.NewPSQLStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Start the outbox mail worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mailWorker := mailer.NewWorker(DB, mailer.NewSMTPSender(cfg))
	mailWorker.Start(ctx)
	log.Println("Mail worker started")

	// Start the API server
	server := api.NewApiServer(":"+cfg.Port, DB, cfg)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", cfg.Port)

	<-quit
	log.Println("Shutting down server...")
}


func clearDatabase(DB *gorm.DB, tables []interface{}) error {
    if len(tables) == 0 {
        // Default: Drop all tables
        tables = []interface{}{
            &models.OutboxEmail{},
            &models.Consultation{},
            &models.AvailableSlot{},
            &models.DiscountCode{},
            &models.Service{},
            &models.AdminUser{},
        }
    }

    log.Println("Dropping tables...")

    for _, table := range tables {
        if err := DB.Migrator().DropTable(table); err != nil {
            log.Printf("Warning dropping table %T: %v", table, err)
        } else {
            log.Printf("Table %T dropped", table)
        }
    }

    return nil
}

func runDatabaseClear() {
    cfg := loadConfig()

    DB, err := db.NewPSQLStorage(cfg.DatabaseURL)
    if err != nil {
        log.Fatalf("Database initialization error: %v", err)
    }
    defer func() {
        sqlDB, _ := DB.DB()
        sqlDB.Close()
        log.Println("Database connection closed")
    }()

    log.Println("Preparing to clear database...")

    // Optional: Add a confirmation prompt
    var confirmation string
    fmt.Print("Are you sure you want to clear the database? (yes/no): ")
    fmt.Scanln(&confirmation)

    if confirmation != "yes" {
        log.Println("Database clearing cancelled.")
        return
    }

    // Ask for specific tables to clear
    var tableNames string
    fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
    fmt.Scanln(&tableNames)

    var tables []interface{}
    if tableNames != "" {
        for _, table := range splitTableNames(tableNames) {
            switch strings.TrimSpace(table) {
            case "Service":
                tables = append(tables, &models.Service{})
            case "AvailableSlot":
                tables = append(tables, &models.AvailableSlot{})
            case "Consultation":
                tables = append(tables, &models.Consultation{})
            case "DiscountCode":
                tables = append(tables, &models.DiscountCode{})
            case "AdminUser":
                tables = append(tables, &models.AdminUser{})
            case "OutboxEmail":
                tables = append(tables, &models.OutboxEmail{})
            default:
                log.Printf("Unknown table: %s", table)
            }
        }
    }

    // Clear the specified tables (or all tables if none specified)
    if err := clearDatabase(DB, tables); err != nil {
        log.Fatalf("Error clearing database: %v", err)
    }

    log.Println("Database cleared successfully")
}

func splitTableNames(tableNames string) []string {
    return strings.Split(tableNames, ",")
}
