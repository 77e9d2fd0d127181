// Package telephony mirrors portal state into the telephony platform's
// key/value store (Asterisk AstDB, or a Redis hash that dialplan helpers read).
package telephony

import (
	"context"
	"errors"
)

// Notifier receives key/value writes grouped by family.
type Notifier interface {
	Put(ctx context.Context, family, key, value string) error
}

// Nop discards every write. Used when no telephony backend is configured.
type Nop struct{}

func (Nop) Put(context.Context, string, string, string) error { return nil }

// Multi fans a write out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Put(ctx context.Context, family, key, value string) error {
	var errs []error
	for _, n := range m {
		if err := n.Put(ctx, family, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
