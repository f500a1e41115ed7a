package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var dsn, migrationsPath, migrationsTable string

	flag.StringVar(&dsn, "dsn", "", "postgres connection string (falls back to COMBISALES_PG_DSN)")
	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to a directory containing migration files")
	flag.StringVar(&migrationsTable, "migrations-table", "schema_migrations", "name of the migrations table")
	flag.Parse()

	if dsn == "" {
		dsn = os.Getenv("COMBISALES_PG_DSN")
	}
	if dsn == "" {
		log.Fatal("dsn is required (flag -dsn or COMBISALES_PG_DSN)")
	}
	if migrationsPath == "" {
		log.Fatal("migrations-path is required")
	}

	m, err := migrate.New(
		"file://"+migrationsPath,
		fmt.Sprintf("%s&x-migrations-table=%s", withQuerySep(dsn), migrationsTable),
	)
	if err != nil {
		log.Fatalf("init migrator: %v", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no pending migrations")
			return
		}
		log.Fatalf("apply migrations: %v", err)
	}
	fmt.Println("migrations completed successfully")
}

func withQuerySep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?sslmode=disable"
}
