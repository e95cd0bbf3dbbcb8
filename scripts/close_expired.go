package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// One-off maintenance: close auctions and group deals whose deadlines
// passed without any money at stake, so the browse endpoints stop
// listing them. Settlement paths with escrowed funds are left for the
// API to handle.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	now := time.Now().Unix()

	// Bidless auctions past their end time
	result, err := db.Exec(`
		UPDATE auctions
		SET is_active = false,
		    is_finalized = true,
		    cancel_reason = 'no bids'
		WHERE is_active = true
		  AND bid_count = 0
		  AND end_time < $1
	`, now)
	if err != nil {
		log.Printf("⚠️  Warning closing bidless auctions: %v", err)
	} else {
		rows, _ := result.RowsAffected()
		fmt.Printf("Closed %d bidless auctions\n", rows)
	}

	// Empty group deals past their deadline
	result, err = db.Exec(`
		UPDATE group_deals
		SET is_active = false
		WHERE is_active = true
		  AND current_participants = 0
		  AND deadline < $1
	`, now)
	if err != nil {
		log.Printf("⚠️  Warning closing empty group deals: %v", err)
	} else {
		rows, _ := result.RowsAffected()
		fmt.Printf("Closed %d empty group deals\n", rows)
	}

	// Verify cleanup
	var count int
	db.QueryRow("SELECT COUNT(*) FROM auctions WHERE is_active = true AND end_time < $1", now).Scan(&count)
	fmt.Printf("Active auctions past deadline remaining (with bids, need settlement): %d\n", count)

	fmt.Println("✅ Cleanup complete!")
}
