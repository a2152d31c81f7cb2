package policies

import (
	"context"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/shared/daterange"
)

// BlockDatesRequest asks a platform to close a date range on its listing.
type BlockDatesRequest struct {
	Platform           channels.Platform
	ExternalPropertyID string
	BookingID          string
	Range              daterange.Range
}

// PlatformGateway is the opaque, fallible remote call to an external channel.
type PlatformGateway interface {
	BlockDates(ctx context.Context, req BlockDatesRequest) error
}
