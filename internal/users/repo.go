package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type UpsertUser struct {
	ExternalUID string
	Email       string
	DisplayName string
}

// EnsureUser upserts the identity row for an external uid and returns the
// internal user id.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (string, error) {
	if u.ExternalUID == "" {
		return "", fmt.Errorf("external uid required")
	}

	const q = `
insert into users (external_uid, email, display_name, updated_at)
values ($1, nullif($2,''), nullif($3,''), now())
on conflict (external_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRow(ctx, q, u.ExternalUID, u.Email, u.DisplayName).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// OwnsCampaign reports whether the user owns the campaign. A missing campaign
// reads as not owned.
func (r *Repo) OwnsCampaign(ctx context.Context, userID, campaignID string) (bool, error) {
	const q = `select user_id::text from campaigns where id = $1;`
	var owner string
	err := r.db.QueryRow(ctx, q, campaignID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}
