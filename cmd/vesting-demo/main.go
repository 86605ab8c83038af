// Vesting Manager Demo - walks through the manager's seed scenarios
// against an in-memory ledger and store.
//
// This demo:
// 1. Initializes a manager with a single admin
// 2. Creates a plain linear schedule and claims at its midpoint
// 3. Creates an initial-unlock + linear schedule
// 4. Creates a cliff + linear schedule
// 5. Revokes a schedule mid-vest and shows the forfeit as admin-withdrawable
// 6. Creates a batch of schedules in one call
//
// Run: go run ./cmd/vesting-demo
package main

import (
	"context"
	"math/big"

	"github.com/beans-labs/vesting-manager/internal/logger"
	"github.com/beans-labs/vesting-manager/pkg/storage"
	"github.com/beans-labs/vesting-manager/pkg/token"
	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

type demoClock struct{ t uint64 }

func (c *demoClock) Now() uint64 { return c.t }

func main() {
	log := logger.NewLogger("info")

	log.Info("═══════════════════════════════════════════════════════")
	log.Info("  Vesting Manager Demo")
	log.Info("═══════════════════════════════════════════════════════")
	log.Info("")

	db, err := storage.Open(":memory:")
	if err != nil {
		log.WithError(err).Fatal("failed to open in-memory storage")
	}
	defer db.Close()

	ledger := token.NewMemoryLedger()
	clock := &demoClock{}
	mgr := vesting.New(db, ledger, clock, vesting.NopEventBus{}, log)

	ctx := context.Background()
	const factory vesting.Address = "factory"
	const alice vesting.Address = "alice"
	const bob vesting.Address = "bob"

	if err := mgr.Init(ctx, factory, "demo-token"); err != nil {
		log.WithError(err).Fatal("failed to initialize manager")
	}
	ledger.Mint(factory, big.NewInt(1_000_000))
	log.Info("✅ manager initialized, factory funded with 1,000,000 demo-token")
	log.Info("")

	log.Info("📈 DEMO 1: Plain Linear Vesting")
	log.Info("─────────────────────────────────────────────────────")
	clock.t = 1000
	linearID, err := mgr.CreateVesting(ctx, factory, vesting.CreateParams{
		Recipient:           alice,
		StartTimestamp:      1000,
		EndTimestamp:        2000,
		InitialUnlock:       big.NewInt(0),
		CliffAmount:         big.NewInt(0),
		ReleaseIntervalSecs: 100,
		LinearVestAmount:    big.NewInt(1000),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create linear schedule")
	}
	clock.t = 1500
	vested, _ := mgr.CalculateVestedAmount(linearID, clock.t)
	log.WithFields(logger.Fields{"id": linearID, "at": clock.t, "vested": vested.String()}).Info("midpoint check")
	claimed, err := mgr.Claim(ctx, alice, linearID)
	if err != nil {
		log.WithError(err).Fatal("claim failed")
	}
	log.WithFields(logger.Fields{"claimed": claimed.String()}).Info("alice claimed")
	log.Info("")

	log.Info("🔓 DEMO 2: Initial Unlock + Linear")
	log.Info("─────────────────────────────────────────────────────")
	unlockID, err := mgr.CreateVesting(ctx, factory, vesting.CreateParams{
		Recipient:           bob,
		StartTimestamp:      1000,
		EndTimestamp:        2000,
		InitialUnlock:       big.NewInt(200),
		CliffAmount:         big.NewInt(0),
		ReleaseIntervalSecs: 100,
		LinearVestAmount:    big.NewInt(800),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create unlock schedule")
	}
	vested, _ = mgr.CalculateVestedAmount(unlockID, 1000)
	log.WithFields(logger.Fields{"id": unlockID, "vested_at_start": vested.String()}).Info("initial unlock visible immediately")
	log.Info("")

	log.Info("⛰️  DEMO 3: Cliff + Linear")
	log.Info("─────────────────────────────────────────────────────")
	cliffID, err := mgr.CreateVesting(ctx, factory, vesting.CreateParams{
		Recipient:             alice,
		StartTimestamp:        1000,
		EndTimestamp:          2000,
		InitialUnlock:         big.NewInt(0),
		CliffReleaseTimestamp: 1500,
		CliffAmount:           big.NewInt(300),
		ReleaseIntervalSecs:   100,
		LinearVestAmount:      big.NewInt(700),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create cliff schedule")
	}
	vested, _ = mgr.CalculateVestedAmount(cliffID, 1499)
	log.WithFields(logger.Fields{"vested_before_cliff": vested.String()}).Info("nothing vests before the cliff")
	vested, _ = mgr.CalculateVestedAmount(cliffID, 1500)
	log.WithFields(logger.Fields{"vested_at_cliff": vested.String()}).Info("cliff amount unlocks at once")
	log.Info("")

	log.Info("✂️  DEMO 4: Revocation Mid-Vest")
	log.Info("─────────────────────────────────────────────────────")
	revokeID, err := mgr.CreateVesting(ctx, factory, vesting.CreateParams{
		Recipient:           bob,
		StartTimestamp:      1000,
		EndTimestamp:        2000,
		InitialUnlock:       big.NewInt(0),
		CliffAmount:         big.NewInt(0),
		ReleaseIntervalSecs: 100,
		LinearVestAmount:    big.NewInt(1000),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create schedule to revoke")
	}
	clock.t = 1500
	forfeited, err := mgr.RevokeVesting(ctx, factory, revokeID)
	if err != nil {
		log.WithError(err).Fatal("revoke failed")
	}
	log.WithFields(logger.Fields{"forfeited": forfeited.String()}).Info("admin revoked at the midpoint")
	withdrawable, _ := mgr.AmountToWithdrawByAdmin(ctx)
	log.WithFields(logger.Fields{"withdrawable": withdrawable.String()}).Info("forfeit now withdrawable by admin")
	log.Info("")

	log.Info("📦 DEMO 5: Batch Create")
	log.Info("─────────────────────────────────────────────────────")
	ids, err := mgr.CreateVestingBatch(ctx, factory, vesting.BatchParams{
		Recipients:             []vesting.Address{alice, bob},
		StartTimestamps:        []uint64{2000, 2000},
		EndTimestamps:          []uint64{3000, 3000},
		Timelocks:              []uint64{0, 0},
		InitialUnlocks:         []*big.Int{big.NewInt(0), big.NewInt(0)},
		CliffReleaseTimestamps: []uint64{0, 0},
		CliffAmounts:           []*big.Int{big.NewInt(0), big.NewInt(0)},
		ReleaseIntervalsSecs:   []uint64{100, 100},
		LinearVestAmounts:      []*big.Int{big.NewInt(500), big.NewInt(500)},
	})
	if err != nil {
		log.WithError(err).Fatal("batch create failed")
	}
	log.WithFields(logger.Fields{"ids": ids}).Info("batch created")
	log.Info("")

	reserved, _ := mgr.GetTokensReservedForVesting()
	log.WithFields(logger.Fields{"reserved": reserved.String()}).Info("final reserved balance")

	log.Info("")
	log.Info("═══════════════════════════════════════════════════════")
	log.Info("  DEMO COMPLETE")
	log.Info("═══════════════════════════════════════════════════════")
}
