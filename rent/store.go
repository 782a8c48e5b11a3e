package rent

import (
	"context"

	"github.com/xraph/propshare/id"
)

type Store interface {
	RecordReceipt(ctx context.Context, r *Receipt) error
	ListReceipts(ctx context.Context, propertyID int64, opts ListOpts) ([]*Receipt, error)
	RecordDistribution(ctx context.Context, d *Distribution) error
	DeleteDistribution(ctx context.Context, distID id.DistributionID) error
	ListDistributions(ctx context.Context, propertyID int64, opts ListOpts) ([]*Distribution, error)
}
