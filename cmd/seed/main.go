package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	dsn := cfg.PostgresDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@example.com"
	password := "password123"
	name := "Demo User"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (lower(email)) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, email, hash, name).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, email, password)

	tasks := []struct {
		title       string
		description string
		status      string
	}{
		{"Buy milk", "2% milk from the corner store", "pending"},
		{"Write report", "Quarterly numbers for the team meeting", "in-progress"},
		{"Renew passport", "Book an appointment and gather documents", "completed"},
	}
	for _, t := range tasks {
		if _, err := db.Exec(`
			INSERT INTO tasks (title, description, status, user_id)
			VALUES ($1, $2, $3, $4)
		`, t.title, t.description, t.status, id); err != nil {
			log.Fatalf("failed to seed task %q: %v", t.title, err)
		}
	}
	fmt.Printf("seeded %d tasks for user %s\n", len(tasks), id)
}
