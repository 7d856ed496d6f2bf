package events

import (
	"context"
	"errors"
	"time"
)

const (
	UserRegistered = "user_registered"
	UserLoggedIn   = "user_logged_in"
	TokenRefreshed = "token_refreshed"
	UserLoggedOut  = "user_logged_out"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
