// cmd/tools/seed-waitlist/main.go
//
// Development helper for local databases: creates the schema, loads demo
// signups, and prints the aggregate counts.
//
//	seed-waitlist schema
//	seed-waitlist seed -count 20 -source seed-tool
//	seed-waitlist stats
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"eldercare-waitlist/internal/common/config"
	"eldercare-waitlist/internal/common/database"
	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/models"
	"eldercare-waitlist/internal/waitlist/referral"
	"eldercare-waitlist/internal/waitlist/repository"
)

func main() {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	count := seedCmd.Int("count", 10, "Number of demo signups to create")
	source := seedCmd.String("source", "seed-tool", "Source label recorded on the seeded entries")
	withReferrals := seedCmd.Bool("referrals", true, "Chain each seeded entry as a referral of the previous one")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.Ping(ctx); err != nil {
		fmt.Printf("Error pinging postgres: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "schema":
		if err := pg.EnsureSchema(ctx); err != nil {
			fmt.Printf("Error creating schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema is in place.")

	case "seed":
		seedCmd.Parse(os.Args[2:])
		if err := pg.EnsureSchema(ctx); err != nil {
			fmt.Printf("Error creating schema: %v\n", err)
			os.Exit(1)
		}
		if err := seed(ctx, pg, cfg, *count, *source, *withReferrals); err != nil {
			fmt.Printf("Error seeding: %v\n", err)
			os.Exit(1)
		}

	case "stats":
		repo := repository.New(pg.DB, 5*time.Second)
		stats, err := repo.Stats(ctx)
		if err != nil {
			fmt.Printf("Error reading stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Total signups: %d\n", stats.Total)
		fmt.Printf("Last 7 days:   %d\n", stats.LastWeek)

	default:
		help()
		os.Exit(1)
	}
}

func seed(ctx context.Context, pg *database.PostgresClient, cfg *config.Config, count int, source string, withReferrals bool) error {
	log := logger.NewNoOpLogger()
	timeout := time.Duration(cfg.Database.Postgres.QueryTimeout) * time.Millisecond
	repo := repository.New(pg.DB, timeout)
	linker := referral.New(pg.DB, repo, timeout, log)

	locations := []string{"Chennai", "Mumbai", "Delhi", "Bengaluru", "Hyderabad"}

	var previous string
	created := 0
	for i := 1; i <= count; i++ {
		email := fmt.Sprintf("demo-%03d@example.com", i)
		name := fmt.Sprintf("Demo User %d", i)
		location := locations[i%len(locations)]

		entry, err := repo.Upsert(ctx, email, &models.UpsertFields{
			Source:         &source,
			Name:           &name,
			Location:       &location,
			ParentLocation: &location,
		})
		if err != nil {
			return fmt.Errorf("seeding %s: %w", email, err)
		}
		created++

		if withReferrals && previous != "" {
			if _, err := linker.Link(ctx, previous, entry.Email); err != nil {
				return fmt.Errorf("linking %s -> %s: %w", previous, entry.Email, err)
			}
		}
		previous = entry.Email
	}

	fmt.Printf("Seeded %d entries", created)
	if withReferrals && created > 1 {
		fmt.Printf(" with %d referrals", created-1)
	}
	fmt.Println(".")
	return nil
}

func help() {
	fmt.Println("Usage: seed-waitlist <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  schema   Create the waitlist tables and indexes if missing")
	fmt.Println("  seed     Insert demo signups (see 'seed -h' for flags)")
	fmt.Println("  stats    Print total and last-7-days signup counts")
}
