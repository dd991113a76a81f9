package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo answers IsAdmin from the users table.
type UserRepo struct{ DB *pgxpool.Pool }

func (r *UserRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var admin bool
	err := r.DB.QueryRow(ctx, `SELECT is_admin FROM users WHERE id=$1`, userID).Scan(&admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return admin, err
}
