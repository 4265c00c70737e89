// Package policy decides whether two users may communicate. The default is
// deny on uncertainty: if either user cannot be resolved, they are treated
// as blocked.
package policy

import (
	"context"
	"errors"

	"github.com/chatwave/dispatch-service/internal/domain"

	"golang.org/x/sync/errgroup"
)

type UserSource interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type Policy struct {
	users UserSource
}

func NewPolicy(users UserSource) *Policy {
	return &Policy{users: users}
}

// IsBlocked reports whether either user has blocked the other. Both block
// sets are fetched fresh per call so staleness stays within one round trip.
// A missing user reads as blocked; a store failure also reads as blocked
// and surfaces the error so the caller can report it as transient.
func (p *Policy) IsBlocked(ctx context.Context, userA, userB string) (bool, error) {
	var a, b *domain.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = p.users.GetUser(gctx, userA)
		return err
	})
	g.Go(func() (err error) {
		b, err = p.users.GetUser(gctx, userB)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return true, nil
		}
		return true, err
	}

	return a.HasBlocked(userB) || b.HasBlocked(userA), nil
}
