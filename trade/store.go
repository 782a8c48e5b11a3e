package trade

import (
	"context"

	"github.com/xraph/propshare/id"
)

type Store interface {
	Record(ctx context.Context, t *Trade) error
	Delete(ctx context.Context, tradeID id.TradeID) error
	List(ctx context.Context, propertyID int64, opts ListOpts) ([]*Trade, error)
}
