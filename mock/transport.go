// Package mock provides test doubles for chat interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/chat"
)

// Interface compliance checks.
var (
	_ chat.Transport = (*Transport)(nil)
	_ chat.Channel   = (*Channel)(nil)
)

// Transport is a test double for chat.Transport.
// Set OpenFn before calling Open.
type Transport struct {
	OpenFn func(ctx context.Context, req chat.Request) (chat.Channel, error)
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context, req chat.Request) (chat.Channel, error) {
	return t.OpenFn(ctx, req)
}
