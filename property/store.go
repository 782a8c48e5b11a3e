package property

import (
	"context"

	"github.com/xraph/propshare/types"
)

type Store interface {
	Create(ctx context.Context, p *Property) (int64, error)
	Get(ctx context.Context, propertyID int64) (*Property, error)
	List(ctx context.Context, opts ListOpts) ([]*Property, error)
	UpdateRentalPayment(ctx context.Context, propertyID int64, rate types.Money) error
	Balance(ctx context.Context, propertyID int64, holder string) (int64, error)
	Holders(ctx context.Context, propertyID int64) ([]Holding, error)
}
