package postgres

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tankledger/counterparty"
	"github.com/xraph/tankledger/id"
	"github.com/xraph/tankledger/tank"
	"github.com/xraph/tankledger/transaction"
	"github.com/xraph/tankledger/types"
)

// Row structs mirror the table columns; conversion to domain types happens
// in the from* helpers so scanning stays mechanical.

type tankRow struct {
	ID                string
	TenantID          string
	Name              string
	Location          string
	FuelType          string
	Unit              string
	Capacity          decimal.Decimal
	CurrentVolume     decimal.Decimal
	LowThreshold      decimal.Decimal
	Status            string
	Version           int64
	LastTransactionAt sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func fromTankRow(r *tankRow) (*tank.Tank, error) {
	tankID, err := id.ParseTankID(r.ID)
	if err != nil {
		return nil, err
	}

	unit := types.Unit(r.Unit)
	t := &tank.Tank{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:            tankID,
		TenantID:      r.TenantID,
		Name:          r.Name,
		Location:      r.Location,
		FuelType:      tank.FuelType(r.FuelType),
		Unit:          unit,
		Capacity:      types.Quantity{Amount: r.Capacity, Unit: unit},
		CurrentVolume: types.Quantity{Amount: r.CurrentVolume, Unit: unit},
		LowThreshold:  types.Quantity{Amount: r.LowThreshold, Unit: unit},
		Status:        tank.Status(r.Status),
		Version:       r.Version,
	}
	if r.LastTransactionAt.Valid {
		ts := r.LastTransactionAt.Time
		t.LastTransactionAt = &ts
	}
	return t, nil
}

type txnRow struct {
	ID                string
	TankID            string
	TenantID          string
	Type              string
	Direction         string
	Unit              string
	Quantity          decimal.Decimal
	LevelBefore       decimal.Decimal
	LevelAfter        decimal.Decimal
	UnitCostAmount    sql.NullInt64
	UnitCostCurrency  sql.NullString
	TotalCostAmount   sql.NullInt64
	TotalCostCurrency sql.NullString
	CounterpartyID    sql.NullString
	Remarks           string
	OccurredAt        time.Time
	RecordedAt        time.Time
}

func fromTxnRow(r *txnRow) (*transaction.Transaction, error) {
	txnID, err := id.ParseTransactionID(r.ID)
	if err != nil {
		return nil, err
	}
	tankID, err := id.ParseTankID(r.TankID)
	if err != nil {
		return nil, err
	}

	unit := types.Unit(r.Unit)
	txn := &transaction.Transaction{
		ID:          txnID,
		TankID:      tankID,
		TenantID:    r.TenantID,
		Type:        transaction.Type(r.Type),
		Direction:   transaction.Direction(r.Direction),
		Quantity:    types.Quantity{Amount: r.Quantity, Unit: unit},
		LevelBefore: types.Quantity{Amount: r.LevelBefore, Unit: unit},
		LevelAfter:  types.Quantity{Amount: r.LevelAfter, Unit: unit},
		Remarks:     r.Remarks,
		OccurredAt:  r.OccurredAt,
		RecordedAt:  r.RecordedAt,
	}
	if r.UnitCostAmount.Valid && r.UnitCostCurrency.Valid {
		txn.UnitCost = &types.Money{Amount: r.UnitCostAmount.Int64, Currency: r.UnitCostCurrency.String}
	}
	if r.TotalCostAmount.Valid && r.TotalCostCurrency.Valid {
		txn.TotalCost = &types.Money{Amount: r.TotalCostAmount.Int64, Currency: r.TotalCostCurrency.String}
	}
	if r.CounterpartyID.Valid && r.CounterpartyID.String != "" {
		cpID, err := id.Parse(r.CounterpartyID.String)
		if err != nil {
			return nil, err
		}
		txn.CounterpartyID = cpID
	}
	return txn, nil
}

func nullMoneyAmount(m *types.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Amount, Valid: true}
}

func nullMoneyCurrency(m *types.Money) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: m.Currency, Valid: true}
}

type counterpartyRow struct {
	ID        string
	TenantID  string
	Kind      string
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func fromCounterpartyRow(r *counterpartyRow) (*counterparty.Counterparty, error) {
	cpID, err := id.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &counterparty.Counterparty{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:       cpID,
		TenantID: r.TenantID,
		Kind:     counterparty.Kind(r.Kind),
		Label:    r.Label,
	}, nil
}
