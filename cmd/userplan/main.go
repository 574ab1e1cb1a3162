package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
)

// userplan credits entitlement counters after an out-of-band plan purchase.
// Payment processing happens elsewhere; this tool only applies the result.
func main() {
	var (
		idFlag     string
		kindFlag   string
		amountFlag int
	)

	flag.StringVar(&idFlag, "id", "", "user ID to credit")
	flag.StringVar(&kindFlag, "kind", "", "counter to credit (requests or donations)")
	flag.IntVar(&amountFlag, "amount", 1, "units to add")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}

	var kind domain.EntitlementKind
	switch strings.TrimSpace(strings.ToLower(kindFlag)) {
	case "requests":
		kind = domain.EntitlementRequests
	case "donations":
		kind = domain.EntitlementDonations
	default:
		exitWithError(fmt.Errorf("unsupported kind %q (want requests or donations)", kindFlag))
	}

	if amountFlag <= 0 {
		exitWithError(errors.New("-amount must be positive"))
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)
	if err := users.CreditEntitlement(ctx, userID, kind, amountFlag); err != nil {
		exitWithError(fmt.Errorf("failed to credit %s: %w", kind, err))
	}

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("credited, but failed to read back user: %w", err))
	}
	fmt.Printf("User %s credited %d %s\n", user.ID, amountFlag, kind)
	fmt.Printf("requests_left=%d donations_left=%d\n", user.RequestsLeft, user.DonationsLeft)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
