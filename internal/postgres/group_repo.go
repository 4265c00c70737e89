package postgres

import (
	"context"

	"github.com/chatwave/dispatch-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	db *pgxpool.Pool
}

func NewGroupRepository(db *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: db}
}

// GetGroup returns a group or channel row. Channels live in the same table
// with is_channel set; membership and admin lists are the durable truth the
// dispatcher checks at send time.
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	var g domain.Group
	query := `SELECT id, name, members, admins, is_channel, created_at FROM groups WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&g.ID, &g.Name, &g.Members, &g.Admins, &g.Channel, &g.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}
