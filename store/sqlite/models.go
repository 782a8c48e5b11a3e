package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/propshare/id"
	"github.com/xraph/propshare/property"
	"github.com/xraph/propshare/rent"
	"github.com/xraph/propshare/trade"
	"github.com/xraph/propshare/types"
)

// ==================== Property models ====================

type propertyModel struct {
	grove.BaseModel `grove:"table:propshare_properties"`

	ID                    int64             `grove:"id,pk"`
	Owner                 string            `grove:"owner"`
	TotalShares           int64             `grove:"total_shares"`
	AvailableShares       int64             `grove:"available_shares"`
	RentRateCents         int64             `grove:"rent_rate_cents"`
	RentRateCurrency      string            `grove:"rent_rate_currency"`
	PropertyValueCents    int64             `grove:"property_value_cents"`
	PropertyValueCurrency string            `grove:"property_value_currency"`
	PoolBalanceCents      int64             `grove:"pool_balance_cents"`
	PoolBalanceCurrency   string            `grove:"pool_balance_currency"`
	Metadata              map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt             time.Time         `grove:"created_at"`
	UpdatedAt             time.Time         `grove:"updated_at"`
}

func toPropertyModel(p *property.Property) *propertyModel {
	return &propertyModel{
		ID:                    p.ID,
		Owner:                 p.Owner,
		TotalShares:           p.TotalShares,
		AvailableShares:       p.AvailableShares,
		RentRateCents:         p.RentalPayment.Amount,
		RentRateCurrency:      p.RentalPayment.Currency,
		PropertyValueCents:    p.PropertyValue.Amount,
		PropertyValueCurrency: p.PropertyValue.Currency,
		PoolBalanceCents:      p.PoolBalance.Amount,
		PoolBalanceCurrency:   p.PoolBalance.Currency,
		Metadata:              p.Metadata,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func fromPropertyModel(m *propertyModel) *property.Property {
	return &property.Property{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              m.ID,
		Owner:           m.Owner,
		TotalShares:     m.TotalShares,
		AvailableShares: m.AvailableShares,
		RentalPayment:   types.Money{Amount: m.RentRateCents, Currency: m.RentRateCurrency},
		PropertyValue:   types.Money{Amount: m.PropertyValueCents, Currency: m.PropertyValueCurrency},
		PoolBalance:     types.Money{Amount: m.PoolBalanceCents, Currency: m.PoolBalanceCurrency},
		Metadata:        m.Metadata,
	}
}

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:propshare_balances"`

	PropertyID int64  `grove:"property_id,pk"`
	Holder     string `grove:"holder"`
	Shares     int64  `grove:"shares"`
}

// ==================== Trade models ====================

type tradeModel struct {
	grove.BaseModel `grove:"table:propshare_trades"`

	ID                string    `grove:"id,pk"`
	PropertyID        int64     `grove:"property_id"`
	Holder            string    `grove:"holder"`
	Kind              string    `grove:"kind"`
	Shares            int64     `grove:"shares"`
	UnitPriceCents    int64     `grove:"unit_price_cents"`
	UnitPriceCurrency string    `grove:"unit_price_currency"`
	AmountCents       int64     `grove:"amount_cents"`
	AmountCurrency    string    `grove:"amount_currency"`
	CreatedAt         time.Time `grove:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"`
}

func toTradeModel(t *trade.Trade) *tradeModel {
	return &tradeModel{
		ID:                t.ID.String(),
		PropertyID:        t.PropertyID,
		Holder:            t.Holder,
		Kind:              string(t.Kind),
		Shares:            t.Shares,
		UnitPriceCents:    t.UnitPrice.Amount,
		UnitPriceCurrency: t.UnitPrice.Currency,
		AmountCents:       t.Amount.Amount,
		AmountCurrency:    t.Amount.Currency,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func fromTradeModel(m *tradeModel) (*trade.Trade, error) {
	tradeID, err := id.ParseTradeID(m.ID)
	if err != nil {
		return nil, err
	}

	return &trade.Trade{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         tradeID,
		PropertyID: m.PropertyID,
		Holder:     m.Holder,
		Kind:       trade.Kind(m.Kind),
		Shares:     m.Shares,
		UnitPrice:  types.Money{Amount: m.UnitPriceCents, Currency: m.UnitPriceCurrency},
		Amount:     types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
	}, nil
}

// ==================== Rent receipt models ====================

type rentReceiptModel struct {
	grove.BaseModel `grove:"table:propshare_rent_receipts"`

	ID             string    `grove:"id,pk"`
	PropertyID     int64     `grove:"property_id"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toRentReceiptModel(r *rent.Receipt) *rentReceiptModel {
	return &rentReceiptModel{
		ID:             r.ID.String(),
		PropertyID:     r.PropertyID,
		AmountCents:    r.Amount.Amount,
		AmountCurrency: r.Amount.Currency,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromRentReceiptModel(m *rentReceiptModel) (*rent.Receipt, error) {
	receiptID, err := id.ParseRentReceiptID(m.ID)
	if err != nil {
		return nil, err
	}

	return &rent.Receipt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         receiptID,
		PropertyID: m.PropertyID,
		Amount:     types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
	}, nil
}

// ==================== Distribution models ====================

type distributionModel struct {
	grove.BaseModel `grove:"table:propshare_distributions"`

	ID                  string          `grove:"id,pk"`
	PropertyID          int64           `grove:"property_id"`
	PoolBalanceCents    int64           `grove:"pool_balance_cents"`
	PoolBalanceCurrency string          `grove:"pool_balance_currency"`
	PerShareCents       int64           `grove:"per_share_cents"`
	PerShareCurrency    string          `grove:"per_share_currency"`
	TotalPaidCents      int64           `grove:"total_paid_cents"`
	TotalPaidCurrency   string          `grove:"total_paid_currency"`
	Payouts             json.RawMessage `grove:"payouts,type:jsonb"`
	CreatedAt           time.Time       `grove:"created_at"`
	UpdatedAt           time.Time       `grove:"updated_at"`
}

func toDistributionModel(d *rent.Distribution) *distributionModel {
	payouts, _ := json.Marshal(d.Payouts) //nolint:errcheck // best-effort

	return &distributionModel{
		ID:                  d.ID.String(),
		PropertyID:          d.PropertyID,
		PoolBalanceCents:    d.PoolBalance.Amount,
		PoolBalanceCurrency: d.PoolBalance.Currency,
		PerShareCents:       d.PerShare.Amount,
		PerShareCurrency:    d.PerShare.Currency,
		TotalPaidCents:      d.TotalPaid.Amount,
		TotalPaidCurrency:   d.TotalPaid.Currency,
		Payouts:             payouts,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func fromDistributionModel(m *distributionModel) (*rent.Distribution, error) {
	distID, err := id.ParseDistributionID(m.ID)
	if err != nil {
		return nil, err
	}

	var payouts []rent.Payout
	if len(m.Payouts) > 0 {
		_ = json.Unmarshal(m.Payouts, &payouts) //nolint:errcheck // best-effort
	}

	return &rent.Distribution{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          distID,
		PropertyID:  m.PropertyID,
		PoolBalance: types.Money{Amount: m.PoolBalanceCents, Currency: m.PoolBalanceCurrency},
		PerShare:    types.Money{Amount: m.PerShareCents, Currency: m.PerShareCurrency},
		TotalPaid:   types.Money{Amount: m.TotalPaidCents, Currency: m.TotalPaidCurrency},
		Payouts:     payouts,
	}, nil
}

// ==================== Lifecycle models ====================

// lifecycleRowID is the primary key of the singleton lifecycle row.
const lifecycleRowID = 1

type lifecycleModel struct {
	grove.BaseModel `grove:"table:propshare_lifecycle"`

	ID               int64      `grove:"id,pk"`
	Obsolete         bool       `grove:"obsolete"`
	ObsoleteAt       *time.Time `grove:"obsolete_at"`
	LastRentUpdateAt *time.Time `grove:"last_rent_update_at"`
	LastRentCents    int64      `grove:"last_rent_cents"`
	LastRentCurrency string     `grove:"last_rent_currency"`
}
