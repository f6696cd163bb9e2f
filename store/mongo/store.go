// Package mongo implements the store over MongoDB using the official
// v2 driver. Optimistic concurrency is enforced with a conditional
// update on the tank's version field; the version update and the
// ledger insert commit together inside a session transaction, so the
// backend requires a replica set (a single-node replica set is enough).
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/tankledger"
	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/forecast"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/store"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// Collection name constants.
const (
	colTanks          = "tankledger_tanks"
	colTransactions   = "tankledger_transactions"
	colCounterparties = "tankledger_counterparties"
	colForecastCache  = "tankledger_forecast_cache"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	db *mongo.Database
}

// New creates a MongoDB store over the named database.
func New(client *mongo.Client, dbName string) *Store {
	return &Store{db: client.Database(dbName)}
}

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colTanks: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "tank_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tank_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "tank_id", Value: 1}, {Key: "type", Value: 1}, {Key: "occurred_at", Value: -1}}},
		},
		colCounterparties: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "kind", Value: 1}}},
		},
		colForecastCache: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}

	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("tankledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

// ==================== Tank Store ====================

func (s *Store) CreateTank(ctx context.Context, t *tank.Tank) error {
	_, err := s.db.Collection(colTanks).InsertOne(ctx, toTankModel(t))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tankledger.ErrTankExists
		}
		return fmt.Errorf("tankledger/mongo: create tank: %w", err)
	}
	return nil
}

func (s *Store) GetTank(ctx context.Context, tankID id.TankID) (*tank.Tank, error) {
	var m tankModel
	err := s.db.Collection(colTanks).
		FindOne(ctx, bson.M{"_id": tankID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tankledger.ErrTankNotFound
		}
		return nil, fmt.Errorf("tankledger/mongo: get tank: %w", err)
	}
	return fromTankModel(&m)
}

func (s *Store) ListTanks(ctx context.Context, tenantID string, opts tank.ListOpts) ([]*tank.Tank, error) {
	filter := bson.M{"tenant_id": tenantID}
	if opts.FuelType != "" {
		filter["fuel_type"] = string(opts.FuelType)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colTanks).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("tankledger/mongo: list tanks: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck // read-only cursor

	result := make([]*tank.Tank, 0)
	for cur.Next(ctx) {
		var m tankModel
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		t, err := fromTankModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, cur.Err()
}

func (s *Store) DeactivateTank(ctx context.Context, tankID id.TankID) error {
	res, err := s.db.Collection(colTanks).UpdateOne(ctx,
		bson.M{"_id": tankID.String()},
		bson.M{"$set": bson.M{
			"status":     string(tank.StatusInactive),
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("tankledger/mongo: deactivate tank: %w", err)
	}
	if res.MatchedCount == 0 {
		return tankledger.ErrTankNotFound
	}
	return nil
}

// ==================== Ledger Store ====================

func (s *Store) AppendTransaction(ctx context.Context, txn *transaction.Transaction, expectedVersion int64) error {
	// The tank update and the ledger insert must commit atomically;
	// a version advance without its ledger entry would leave a chain
	// gap that replay can never repair.
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("tankledger/mongo: append transaction: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, s.appendTxn(ctx, txn, expectedVersion)
	})
	return err
}

func (s *Store) appendTxn(ctx context.Context, txn *transaction.Transaction, expectedVersion int64) error {
	// The conditional update is the linearization point. If another
	// writer advanced the version first, MatchedCount is zero and the
	// caller retries with a fresh read.
	res, err := s.db.Collection(colTanks).UpdateOne(ctx,
		bson.M{"_id": txn.TankID.String(), "version": expectedVersion},
		bson.M{"$set": bson.M{
			"current_volume":      txn.LevelAfter.Amount.String(),
			"last_transaction_at": txn.RecordedAt,
			"updated_at":          txn.RecordedAt,
		}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return fmt.Errorf("tankledger/mongo: append transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.db.Collection(colTanks).
			CountDocuments(ctx, bson.M{"_id": txn.TankID.String()})
		if err != nil {
			return fmt.Errorf("tankledger/mongo: append transaction: %w", err)
		}
		if n == 0 {
			return tankledger.ErrTankNotFound
		}
		return tankledger.ErrVersionConflict
	}

	// seq is the version the tank held after this transaction, which
	// gives a dense per-tank chain ordering.
	_, err = s.db.Collection(colTransactions).
		InsertOne(ctx, toTxnModel(txn, expectedVersion+1))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tankledger.ErrVersionConflict
		}
		return fmt.Errorf("tankledger/mongo: append transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	var m txnModel
	err := s.db.Collection(colTransactions).
		FindOne(ctx, bson.M{"_id": txnID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tankledger.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("tankledger/mongo: get transaction: %w", err)
	}
	return fromTxnModel(&m)
}

func (s *Store) ListTransactions(ctx context.Context, tankID id.TankID, f transaction.Filter) ([]*transaction.Transaction, error) {
	filter := bson.M{"tank_id": tankID.String()}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if !f.Counterparty.IsNil() {
		filter["counterparty_id"] = f.Counterparty.String()
	}
	occurred := bson.M{}
	if !f.From.IsZero() {
		occurred["$gte"] = f.From
	}
	if !f.To.IsZero() {
		occurred["$lt"] = f.To
	}
	if len(occurred) > 0 {
		filter["occurred_at"] = occurred
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "recorded_at", Value: -1}})
	if f.Limit > 0 {
		findOpts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		findOpts.SetSkip(int64(f.Offset))
	}

	return s.queryTxns(ctx, filter, findOpts)
}

func (s *Store) ListChain(ctx context.Context, tankID id.TankID) ([]*transaction.Transaction, error) {
	return s.queryTxns(ctx,
		bson.M{"tank_id": tankID.String()},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
}

func (s *Store) SumDispensed(ctx context.Context, tankID id.TankID, from, to time.Time) (types.Quantity, error) {
	t, err := s.GetTank(ctx, tankID)
	if err != nil {
		return types.Quantity{}, err
	}

	// Quantities are decimal strings, so the sum runs in Go.
	txns, err := s.queryTxns(ctx, bson.M{
		"tank_id":     tankID.String(),
		"type":        string(transaction.TypeDispense),
		"occurred_at": bson.M{"$gte": from, "$lt": to},
	}, options.Find())
	if err != nil {
		return types.Quantity{}, err
	}

	total := types.ZeroQuantity(t.Unit)
	for _, txn := range txns {
		total = total.Add(txn.Quantity)
	}
	return total, nil
}

func (s *Store) queryTxns(ctx context.Context, filter bson.M, findOpts *options.FindOptionsBuilder) ([]*transaction.Transaction, error) {
	cur, err := s.db.Collection(colTransactions).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("tankledger/mongo: list transactions: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck // read-only cursor

	result := make([]*transaction.Transaction, 0)
	for cur.Next(ctx) {
		var m txnModel
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		txn, err := fromTxnModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	return result, cur.Err()
}

// ==================== Counterparty Store ====================

func (s *Store) RegisterCounterparty(ctx context.Context, c *counterparty.Counterparty) error {
	_, err := s.db.Collection(colCounterparties).ReplaceOne(ctx,
		bson.M{"_id": c.ID.String()},
		toCounterpartyModel(c),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("tankledger/mongo: register counterparty: %w", err)
	}
	return nil
}

func (s *Store) GetCounterparty(ctx context.Context, cpID id.CounterpartyID) (*counterparty.Counterparty, error) {
	var m counterpartyModel
	err := s.db.Collection(colCounterparties).
		FindOne(ctx, bson.M{"_id": cpID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tankledger.ErrCounterpartyNotFound
		}
		return nil, fmt.Errorf("tankledger/mongo: get counterparty: %w", err)
	}
	return fromCounterpartyModel(&m)
}

// ==================== Forecast cache ====================

func (s *Store) GetCachedForecast(ctx context.Context, tankID id.TankID) (*forecast.Forecast, error) {
	var m forecastCacheModel
	err := s.db.Collection(colForecastCache).
		FindOne(ctx, bson.M{"_id": tankID.String(), "expires_at": bson.M{"$gt": time.Now().UTC()}}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tankledger.ErrCacheMiss
		}
		return nil, fmt.Errorf("tankledger/mongo: get cached forecast: %w", err)
	}

	var f forecast.Forecast
	if err := json.Unmarshal(m.Payload, &f); err != nil {
		return nil, tankledger.ErrCacheMiss
	}
	return &f, nil
}

func (s *Store) SetCachedForecast(ctx context.Context, tankID id.TankID, f *forecast.Forecast, ttl time.Duration) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(colForecastCache).ReplaceOne(ctx,
		bson.M{"_id": tankID.String()},
		&forecastCacheModel{
			TankID:    tankID.String(),
			Payload:   payload,
			ExpiresAt: time.Now().UTC().Add(ttl),
		},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) InvalidateForecast(ctx context.Context, tankID id.TankID) error {
	_, err := s.db.Collection(colForecastCache).
		DeleteOne(ctx, bson.M{"_id": tankID.String()})
	return err
}
