package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	_ "github.com/jackc/pgx/v5/stdlib"

	"combisales/internal/auth"
)

// Seeds demo users and linked Zoho accounts for local development.
func main() {
	var dsn, password string
	var count int

	flag.StringVar(&dsn, "dsn", "", "postgres connection string (falls back to COMBISALES_PG_DSN)")
	flag.StringVar(&password, "password", "changeme123", "password assigned to every seeded user")
	flag.IntVar(&count, "count", 10, "number of demo users to create")
	flag.Parse()

	if dsn == "" {
		dsn = os.Getenv("COMBISALES_PG_DSN")
	}
	if dsn == "" {
		log.Fatal("dsn is required (flag -dsn or COMBISALES_PG_DSN)")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	store := auth.NewPGStore(db)
	roles := []string{auth.RoleSeller, auth.RoleDealer, auth.RoleInspector}

	admin := &auth.User{
		Email:        "admin@combisales.local",
		Name:         "Admin",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		Active:       true,
	}
	if err := store.Users(ctx).Create(ctx, admin); err != nil {
		log.Printf("admin already seeded? %v", err)
	} else {
		fmt.Printf("created %s (%s)\n", admin.Email, admin.Role)
	}

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		u := &auth.User{
			Email:        strings.ToLower(gofakeit.Username()) + "@combisales.local",
			Name:         name,
			Image:        gofakeit.ImageURL(128, 128),
			PasswordHash: hash,
			Role:         roles[i%len(roles)],
			Active:       true,
		}
		if err := store.Users(ctx).Create(ctx, u); err != nil {
			log.Printf("skip %s: %v", u.Email, err)
			continue
		}

		// Every other user carries a Zoho-linked account about to expire,
		// so the batch refresh has something to chew on.
		if i%2 == 0 {
			acc := &auth.LinkedAccount{
				UserID:            u.ID,
				Provider:          auth.ProviderZoho,
				ProviderAccountID: gofakeit.UUID(),
				AccessToken:       gofakeit.LetterN(32),
				RefreshToken:      gofakeit.LetterN(32),
				ExpiresAt:         time.Now().Unix() + int64(gofakeit.Number(60, 900)),
				RefreshedAt:       time.Now().UTC(),
			}
			if err := store.Accounts(ctx).Upsert(ctx, acc); err != nil {
				log.Printf("link account for %s: %v", u.Email, err)
				continue
			}
		}
		fmt.Printf("created %s (%s)\n", u.Email, u.Role)
	}
}
