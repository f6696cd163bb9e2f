package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// Decimal quantities are persisted as strings so precision survives the
// round trip. Money stays in minor units as int64.

// ==================== Tank models ====================

type tankModel struct {
	ID                string     `bson:"_id"`
	TenantID          string     `bson:"tenant_id"`
	Name              string     `bson:"name"`
	Location          string     `bson:"location"`
	FuelType          string     `bson:"fuel_type"`
	Unit              string     `bson:"unit"`
	Capacity          string     `bson:"capacity"`
	CurrentVolume     string     `bson:"current_volume"`
	LowThreshold      string     `bson:"low_threshold"`
	Status            string     `bson:"status"`
	Version           int64      `bson:"version"`
	LastTransactionAt *time.Time `bson:"last_transaction_at,omitempty"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

func toTankModel(t *tank.Tank) *tankModel {
	return &tankModel{
		ID:                t.ID.String(),
		TenantID:          t.TenantID,
		Name:              t.Name,
		Location:          t.Location,
		FuelType:          string(t.FuelType),
		Unit:              string(t.Unit),
		Capacity:          t.Capacity.Amount.String(),
		CurrentVolume:     t.CurrentVolume.Amount.String(),
		LowThreshold:      t.LowThreshold.Amount.String(),
		Status:            string(t.Status),
		Version:           t.Version,
		LastTransactionAt: t.LastTransactionAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func fromTankModel(m *tankModel) (*tank.Tank, error) {
	tankID, err := id.ParseTankID(m.ID)
	if err != nil {
		return nil, err
	}
	u := types.Unit(m.Unit)
	capacity, err := parseQuantity(m.Capacity, u)
	if err != nil {
		return nil, err
	}
	current, err := parseQuantity(m.CurrentVolume, u)
	if err != nil {
		return nil, err
	}
	low, err := parseQuantity(m.LowThreshold, u)
	if err != nil {
		return nil, err
	}

	return &tank.Tank{
		Entity:            types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:                tankID,
		TenantID:          m.TenantID,
		Name:              m.Name,
		Location:          m.Location,
		FuelType:          tank.FuelType(m.FuelType),
		Unit:              u,
		Capacity:          capacity,
		CurrentVolume:     current,
		LowThreshold:      low,
		Status:            tank.Status(m.Status),
		Version:           m.Version,
		LastTransactionAt: m.LastTransactionAt,
	}, nil
}

// ==================== Transaction models ====================

type txnModel struct {
	ID                string    `bson:"_id"`
	TankID            string    `bson:"tank_id"`
	TenantID          string    `bson:"tenant_id"`
	Seq               int64     `bson:"seq"`
	Type              string    `bson:"type"`
	Direction         string    `bson:"direction"`
	Unit              string    `bson:"unit"`
	Quantity          string    `bson:"quantity"`
	LevelBefore       string    `bson:"level_before"`
	LevelAfter        string    `bson:"level_after"`
	UnitCostAmount    *int64    `bson:"unit_cost_amount,omitempty"`
	UnitCostCurrency  string    `bson:"unit_cost_currency,omitempty"`
	TotalCostAmount   *int64    `bson:"total_cost_amount,omitempty"`
	TotalCostCurrency string    `bson:"total_cost_currency,omitempty"`
	CounterpartyID    string    `bson:"counterparty_id,omitempty"`
	Remarks           string    `bson:"remarks,omitempty"`
	OccurredAt        time.Time `bson:"occurred_at"`
	RecordedAt        time.Time `bson:"recorded_at"`
}

func toTxnModel(txn *transaction.Transaction, seq int64) *txnModel {
	m := &txnModel{
		ID:          txn.ID.String(),
		TankID:      txn.TankID.String(),
		TenantID:    txn.TenantID,
		Seq:         seq,
		Type:        string(txn.Type),
		Direction:   string(txn.Direction),
		Unit:        string(txn.Quantity.Unit),
		Quantity:    txn.Quantity.Amount.String(),
		LevelBefore: txn.LevelBefore.Amount.String(),
		LevelAfter:  txn.LevelAfter.Amount.String(),
		Remarks:     txn.Remarks,
		OccurredAt:  txn.OccurredAt,
		RecordedAt:  txn.RecordedAt,
	}
	if txn.UnitCost != nil {
		amount := txn.UnitCost.Amount
		m.UnitCostAmount = &amount
		m.UnitCostCurrency = txn.UnitCost.Currency
	}
	if txn.TotalCost != nil {
		amount := txn.TotalCost.Amount
		m.TotalCostAmount = &amount
		m.TotalCostCurrency = txn.TotalCost.Currency
	}
	if !txn.CounterpartyID.IsNil() {
		m.CounterpartyID = txn.CounterpartyID.String()
	}
	return m
}

func fromTxnModel(m *txnModel) (*transaction.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	tankID, err := id.ParseTankID(m.TankID)
	if err != nil {
		return nil, err
	}
	u := types.Unit(m.Unit)
	qty, err := parseQuantity(m.Quantity, u)
	if err != nil {
		return nil, err
	}
	before, err := parseQuantity(m.LevelBefore, u)
	if err != nil {
		return nil, err
	}
	after, err := parseQuantity(m.LevelAfter, u)
	if err != nil {
		return nil, err
	}

	txn := &transaction.Transaction{
		ID:          txnID,
		TankID:      tankID,
		TenantID:    m.TenantID,
		Type:        transaction.Type(m.Type),
		Direction:   transaction.Direction(m.Direction),
		Quantity:    qty,
		LevelBefore: before,
		LevelAfter:  after,
		Remarks:     m.Remarks,
		OccurredAt:  m.OccurredAt,
		RecordedAt:  m.RecordedAt,
	}
	if m.UnitCostAmount != nil {
		txn.UnitCost = &types.Money{Amount: *m.UnitCostAmount, Currency: m.UnitCostCurrency}
	}
	if m.TotalCostAmount != nil {
		txn.TotalCost = &types.Money{Amount: *m.TotalCostAmount, Currency: m.TotalCostCurrency}
	}
	if m.CounterpartyID != "" {
		cpID, err := id.Parse(m.CounterpartyID)
		if err != nil {
			return nil, err
		}
		txn.CounterpartyID = cpID
	}
	return txn, nil
}

// ==================== Counterparty models ====================

type counterpartyModel struct {
	ID        string    `bson:"_id"`
	TenantID  string    `bson:"tenant_id"`
	Kind      string    `bson:"kind"`
	Label     string    `bson:"label"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toCounterpartyModel(c *counterparty.Counterparty) *counterpartyModel {
	return &counterpartyModel{
		ID:        c.ID.String(),
		TenantID:  c.TenantID,
		Kind:      string(c.Kind),
		Label:     c.Label,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromCounterpartyModel(m *counterpartyModel) (*counterparty.Counterparty, error) {
	cpID, err := id.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &counterparty.Counterparty{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:       cpID,
		TenantID: m.TenantID,
		Kind:     counterparty.Kind(m.Kind),
		Label:    m.Label,
	}, nil
}

// ==================== Forecast cache models ====================

type forecastCacheModel struct {
	TankID    string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func parseQuantity(s string, u types.Unit) (types.Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.Quantity{}, err
	}
	return types.Quantity{Amount: d, Unit: u}, nil
}
