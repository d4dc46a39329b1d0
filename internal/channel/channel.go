// Package channel hosts the transports that feed customer turns into the
// engine and deliver assistant messages back out.
package channel

import (
	"context"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// Channel is a message transport. Start blocks until ctx is cancelled or
// the transport fails; it publishes inbound turns to the bus and registers
// an outbound handler under its Name.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus domain.MessageBus) error
}
