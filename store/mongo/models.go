package mongo

import (
	"fmt"
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

	ID                    int64             `grove:"id,pk"                   bson:"_id"`
	Owner                 string            `grove:"owner"                   bson:"owner"`
	TotalShares           int64             `grove:"total_shares"            bson:"total_shares"`
	AvailableShares       int64             `grove:"available_shares"        bson:"available_shares"`
	RentRateCents         int64             `grove:"rent_rate_cents"         bson:"rent_rate_cents"`
	RentRateCurrency      string            `grove:"rent_rate_currency"      bson:"rent_rate_currency"`
	PropertyValueCents    int64             `grove:"property_value_cents"    bson:"property_value_cents"`
	PropertyValueCurrency string            `grove:"property_value_currency" bson:"property_value_currency"`
	PoolBalanceCents      int64             `grove:"pool_balance_cents"      bson:"pool_balance_cents"`
	PoolBalanceCurrency   string            `grove:"pool_balance_currency"   bson:"pool_balance_currency"`
	Metadata              map[string]string `grove:"metadata"                bson:"metadata,omitempty"`
	CreatedAt             time.Time         `grove:"created_at"              bson:"created_at"`
	UpdatedAt             time.Time         `grove:"updated_at"              bson:"updated_at"`
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

	ID         string `grove:"id,pk"       bson:"_id"`
	PropertyID int64  `grove:"property_id" bson:"property_id"`
	Holder     string `grove:"holder"      bson:"holder"`
	Shares     int64  `grove:"shares"      bson:"shares"`
}

// balanceKey builds the composite document id for a balance row.
func balanceKey(propertyID int64, holder string) string {
	return fmt.Sprintf("%d:%s", propertyID, holder)
}

// ==================== Trade models ====================

type tradeModel struct {
	grove.BaseModel `grove:"table:propshare_trades"`

	ID                string    `grove:"id,pk"               bson:"_id"`
	PropertyID        int64     `grove:"property_id"         bson:"property_id"`
	Holder            string    `grove:"holder"              bson:"holder"`
	Kind              string    `grove:"kind"                bson:"kind"`
	Shares            int64     `grove:"shares"              bson:"shares"`
	UnitPriceCents    int64     `grove:"unit_price_cents"    bson:"unit_price_cents"`
	UnitPriceCurrency string    `grove:"unit_price_currency" bson:"unit_price_currency"`
	AmountCents       int64     `grove:"amount_cents"        bson:"amount_cents"`
	AmountCurrency    string    `grove:"amount_currency"     bson:"amount_currency"`
	CreatedAt         time.Time `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"          bson:"updated_at"`
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

	ID             string    `grove:"id,pk"           bson:"_id"`
	PropertyID     int64     `grove:"property_id"     bson:"property_id"`
	AmountCents    int64     `grove:"amount_cents"    bson:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency" bson:"amount_currency"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
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

	ID                  string        `grove:"id,pk"                 bson:"_id"`
	PropertyID          int64         `grove:"property_id"           bson:"property_id"`
	PoolBalanceCents    int64         `grove:"pool_balance_cents"    bson:"pool_balance_cents"`
	PoolBalanceCurrency string        `grove:"pool_balance_currency" bson:"pool_balance_currency"`
	PerShareCents       int64         `grove:"per_share_cents"       bson:"per_share_cents"`
	PerShareCurrency    string        `grove:"per_share_currency"    bson:"per_share_currency"`
	TotalPaidCents      int64         `grove:"total_paid_cents"      bson:"total_paid_cents"`
	TotalPaidCurrency   string        `grove:"total_paid_currency"   bson:"total_paid_currency"`
	Payouts             []payoutModel `grove:"payouts"               bson:"payouts"`
	CreatedAt           time.Time     `grove:"created_at"            bson:"created_at"`
	UpdatedAt           time.Time     `grove:"updated_at"            bson:"updated_at"`
}

type payoutModel struct {
	ID             string `bson:"id"`
	DistributionID string `bson:"distribution_id"`
	Holder         string `bson:"holder"`
	Shares         int64  `bson:"shares"`
	AmountCents    int64  `bson:"amount_cents"`
	AmountCurrency string `bson:"amount_currency"`
}

func toDistributionModel(d *rent.Distribution) *distributionModel {
	payouts := make([]payoutModel, len(d.Payouts))
	for i, p := range d.Payouts {
		payouts[i] = payoutModel{
			ID:             p.ID.String(),
			DistributionID: p.DistributionID.String(),
			Holder:         p.Holder,
			Shares:         p.Shares,
			AmountCents:    p.Amount.Amount,
			AmountCurrency: p.Amount.Currency,
		}
	}

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

	payouts := make([]rent.Payout, len(m.Payouts))
	for i, pm := range m.Payouts {
		payoutID, err := id.ParsePayoutID(pm.ID)
		if err != nil {
			return nil, err
		}
		payouts[i] = rent.Payout{
			ID:             payoutID,
			DistributionID: distID,
			Holder:         pm.Holder,
			Shares:         pm.Shares,
			Amount:         types.Money{Amount: pm.AmountCents, Currency: pm.AmountCurrency},
		}
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

// lifecycleDocID is the _id of the singleton lifecycle document.
const lifecycleDocID = "singleton"

type lifecycleModel struct {
	grove.BaseModel `grove:"table:propshare_lifecycle"`

	ID               string     `grove:"id,pk"               bson:"_id"`
	Obsolete         bool       `grove:"obsolete"            bson:"obsolete"`
	ObsoleteAt       *time.Time `grove:"obsolete_at"         bson:"obsolete_at,omitempty"`
	LastRentUpdateAt *time.Time `grove:"last_rent_update_at" bson:"last_rent_update_at,omitempty"`
	LastRentCents    int64      `grove:"last_rent_cents"     bson:"last_rent_cents"`
	LastRentCurrency string     `grove:"last_rent_currency"  bson:"last_rent_currency"`
}
