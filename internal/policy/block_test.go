package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/chatwave/dispatch-service/internal/domain"
)

type fakeUsers struct {
	users map[string]*domain.User
	err   error
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func TestIsBlocked(t *testing.T) {
	users := &fakeUsers{users: map[string]*domain.User{
		"u1": {ID: "u1", Blocked: []string{"u3"}},
		"u2": {ID: "u2"},
		"u3": {ID: "u3"},
		"u4": {ID: "u4", Blocked: []string{"u1"}},
	}}
	p := NewPolicy(users)

	tests := []struct {
		name    string
		a, b    string
		blocked bool
	}{
		{"no relation", "u1", "u2", false},
		{"a blocked b", "u1", "u3", true},
		{"b blocked a", "u3", "u1", true},
		{"blocked by other side", "u1", "u4", true},
		{"reverse of blocked by other side", "u4", "u1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.IsBlocked(context.Background(), tt.a, tt.b)
			if err != nil {
				t.Fatalf("IsBlocked(%s,%s): %v", tt.a, tt.b, err)
			}
			if got != tt.blocked {
				t.Fatalf("IsBlocked(%s,%s) = %v, want %v", tt.a, tt.b, got, tt.blocked)
			}
		})
	}
}

func TestIsBlocked_MissingUserDenies(t *testing.T) {
	users := &fakeUsers{users: map[string]*domain.User{
		"u1": {ID: "u1"},
	}}
	p := NewPolicy(users)

	blocked, err := p.IsBlocked(context.Background(), "u1", "ghost")
	if err != nil {
		t.Fatalf("missing user should not surface an error, got %v", err)
	}
	if !blocked {
		t.Fatalf("missing user must read as blocked")
	}
}

func TestIsBlocked_StoreErrorDeniesAndSurfaces(t *testing.T) {
	storeErr := errors.New("store down")
	p := NewPolicy(&fakeUsers{err: storeErr})

	blocked, err := p.IsBlocked(context.Background(), "u1", "u2")
	if !blocked {
		t.Fatalf("store failure must read as blocked")
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}
