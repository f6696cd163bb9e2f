package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/tankledger"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// newTestStore connects to the server named by TANKLEDGER_MONGO_URI
// (a replica set, since appends run in a session transaction) and
// works in a throwaway database. Without the variable the test skips.
func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	uri := os.Getenv("TANKLEDGER_MONGO_URI")
	if uri == "" {
		t.Skip("TANKLEDGER_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	dbName := fmt.Sprintf("tankledger_test_%d", time.Now().UnixNano())
	s := New(client, dbName)
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close()
	})

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return s, ctx
}

func seedTank(t *testing.T, s *Store, ctx context.Context, volume int64) *tank.Tank {
	t.Helper()

	tk := &tank.Tank{
		Entity:        types.NewEntity(),
		ID:            id.NewTankID(),
		TenantID:      "tenant_alpha",
		Name:          "Test Tank",
		FuelType:      tank.FuelDiesel,
		Unit:          types.UnitLitre,
		Capacity:      types.LitresFromInt(1000),
		CurrentVolume: types.LitresFromInt(volume),
		LowThreshold:  types.LitresFromInt(100),
		Status:        tank.StatusActive,
	}
	if err := s.CreateTank(ctx, tk); err != nil {
		t.Fatalf("CreateTank failed: %v", err)
	}
	return tk
}

func seedTxn(tk *tank.Tank, litres, before, after int64) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          id.NewTransactionID(),
		TankID:      tk.ID,
		TenantID:    tk.TenantID,
		Type:        transaction.TypePurchase,
		Direction:   transaction.DirectionIn,
		Quantity:    types.LitresFromInt(litres),
		LevelBefore: types.LitresFromInt(before),
		LevelAfter:  types.LitresFromInt(after),
		OccurredAt:  time.Now().UTC(),
		RecordedAt:  time.Now().UTC(),
	}
}

func TestAppendTransactionAdvancesTank(t *testing.T) {
	s, ctx := newTestStore(t)
	tk := seedTank(t, s, ctx, 200)

	if err := s.AppendTransaction(ctx, seedTxn(tk, 300, 200, 500), 0); err != nil {
		t.Fatalf("AppendTransaction failed: %v", err)
	}

	got, err := s.GetTank(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetTank failed: %v", err)
	}
	if !got.CurrentVolume.Equal(types.LitresFromInt(500)) {
		t.Errorf("CurrentVolume: got %s, want 500 L", got.CurrentVolume)
	}
	if got.Version != 1 {
		t.Errorf("Version: got %d, want 1", got.Version)
	}

	chain, err := s.ListChain(ctx, tk.ID)
	if err != nil {
		t.Fatalf("ListChain failed: %v", err)
	}
	if len(chain) != 1 {
		t.Errorf("chain length: got %d, want 1", len(chain))
	}
}

func TestAppendTransactionVersionConflict(t *testing.T) {
	s, ctx := newTestStore(t)
	tk := seedTank(t, s, ctx, 200)

	err := s.AppendTransaction(ctx, seedTxn(tk, 300, 200, 500), 7)
	if !errors.Is(err, tankledger.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, err := s.GetTank(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetTank failed: %v", err)
	}
	if got.Version != 0 || !got.CurrentVolume.Equal(types.LitresFromInt(200)) {
		t.Errorf("stale append left side effects: version %d, volume %s", got.Version, got.CurrentVolume)
	}
}

func TestAppendTransactionAtomicity(t *testing.T) {
	s, ctx := newTestStore(t)
	tk := seedTank(t, s, ctx, 200)

	// Occupy seq 1 so the ledger insert fails its unique index after
	// the tank update has already run. The session transaction must
	// roll the tank back; a version advance with no ledger entry would
	// be an unrepairable chain gap.
	squatter := toTxnModel(seedTxn(tk, 1, 200, 201), 1)
	if _, err := s.db.Collection(colTransactions).InsertOne(ctx, squatter); err != nil {
		t.Fatalf("insert squatter: %v", err)
	}

	err := s.AppendTransaction(ctx, seedTxn(tk, 300, 200, 500), 0)
	if !errors.Is(err, tankledger.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, err := s.GetTank(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetTank failed: %v", err)
	}
	if got.Version != 0 {
		t.Errorf("version advanced without a ledger entry: got %d, want 0", got.Version)
	}
	if !got.CurrentVolume.Equal(types.LitresFromInt(200)) {
		t.Errorf("volume moved without a ledger entry: got %s, want 200 L", got.CurrentVolume)
	}

	chain, err := s.ListChain(ctx, tk.ID)
	if err != nil {
		t.Fatalf("ListChain failed: %v", err)
	}
	if len(chain) != 1 {
		t.Errorf("chain length: got %d, want only the pre-existing entry", len(chain))
	}
}
