// Vesting Invariant Checker
// Verifies that reserved == sum(total_committed - forfeited - claimed)
// across every schedule in a given database, i.e. the manager's
// conservation invariant: reserved tokens always equal the sum of
// what every still-claimable schedule could still pay out.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/beans-labs/vesting-manager/internal/logger"
	"github.com/beans-labs/vesting-manager/pkg/storage"
	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

const Version = "1.0.0"

func main() {
	dbPath := flag.String("db", "./vesting.db", "Database path to validate")
	verbose := flag.Bool("verbose", false, "Show per-schedule breakdown")
	flag.Parse()

	fmt.Printf("═══════════════════════════════════════════\n")
	fmt.Printf("  Vesting Invariant Checker v%s\n", Version)
	fmt.Printf("  Verifying: reserved == Σ(committed - forfeited - claimed)\n")
	fmt.Printf("═══════════════════════════════════════════\n\n")

	log := logger.NewLogger("info")

	db, err := storage.Open(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer db.Close()

	fmt.Printf("📊 Analyzing database: %s\n\n", *dbPath)

	recipients, err := db.Recipients()
	if err != nil {
		log.WithError(err).Fatal("failed to list recipients")
	}

	expected := big.NewInt(0)
	scheduleCount := 0

	for _, recipient := range recipients {
		ids, err := db.RecipientScheduleIDs(recipient)
		if err != nil {
			log.WithError(err).Fatal("failed to list schedules for recipient")
		}
		for _, id := range ids {
			v, ok, err := db.GetSchedule(id)
			if err != nil || !ok {
				log.WithError(err).Fatal("failed to load schedule")
			}
			scheduleCount++

			final := vesting.Vested(v, v.EndTimestamp)
			var outstanding *big.Int
			if v.Active() {
				outstanding = new(big.Int).Sub(final, v.ClaimedAmount)
			} else {
				vestedAtRevocation := vesting.Vested(v, v.DeactivationTimestamp)
				outstanding = new(big.Int).Sub(vestedAtRevocation, v.ClaimedAmount)
			}
			expected.Add(expected, outstanding)

			if *verbose {
				fmt.Printf("  schedule #%d recipient=%s committed=%s claimed=%s outstanding=%s active=%v\n",
					id, recipient, v.TotalCommitted(), v.ClaimedAmount, outstanding, v.Active())
			}
		}
	}

	fmt.Printf("✓ Processed %d schedules across %d recipients\n\n", scheduleCount, len(recipients))

	reserved, err := db.Reserved()
	if err != nil {
		log.WithError(err).Fatal("failed to read reserved balance")
	}

	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("🔬 VALIDATION RESULT")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Printf("Expected (derived from schedules): %s\n", expected.String())
	fmt.Printf("Actual (reserved column):          %s\n\n", reserved.String())

	if expected.Cmp(reserved) == 0 {
		fmt.Println("✅ PERFECT MATCH — conservation invariant holds")
		return
	}

	diff := new(big.Int).Sub(reserved, expected)
	fmt.Printf("⚠️  MISMATCH DETECTED — difference: %s\n", diff.String())
	os.Exit(1)
}
