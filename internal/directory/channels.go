// internal/directory/channels.go

// Package directory is the persistent catalog of channels: the source of
// truth for membership and role gates.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v1kassh/escrawl-connect/internal/access"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

var (
	ErrNotFound      = errors.New("channel not found")
	ErrDuplicateName = errors.New("channel name already exists")
)

const channelColumns = `id, name, type, description, creator_id, members, allowed_roles, posting_roles, created_at`

type Directory struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func New(db *pgxpool.Pool, log *logger.Logger) *Directory {
	return &Directory{db: db, logger: log}
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var (
		c            models.Channel
		typ          string
		allowedRoles []string
		postingRoles []string
	)
	err := row.Scan(&c.ID, &c.Name, &typ, &c.Description, &c.CreatorID,
		&c.Members, &allowedRoles, &postingRoles, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Type = models.ChannelType(typ)
	c.AllowedRoles = rolesFromStrings(allowedRoles)
	c.PostingRoles = rolesFromStrings(postingRoles)
	return &c, nil
}

func (d *Directory) GetByName(ctx context.Context, name string) (*models.Channel, error) {
	row := d.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE name = $1`, name)
	return scanChannel(row)
}

func (d *Directory) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	row := d.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	return scanChannel(row)
}

// ListVisible returns the channels actor may list, ordered by name.
// Visibility is access.VisibleTo applied to the full catalog: super
// admins see everything, everybody else their memberships plus the
// globally exempt channels.
func (d *Directory) ListVisible(ctx context.Context, actor models.User) ([]*models.Channel, error) {
	rows, err := d.db.Query(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return access.VisibleTo(actor, channels), nil
}

func (d *Directory) Create(ctx context.Context, c *models.Channel) (*models.Channel, error) {
	row := d.db.QueryRow(ctx, `
		INSERT INTO channels (name, type, description, creator_id, members, allowed_roles, posting_roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+channelColumns,
		c.Name, string(c.Type), c.Description, c.CreatorID, dedupe(c.Members),
		rolesToStrings(c.AllowedRoles), rolesToStrings(c.PostingRoles))

	created, err := scanChannel(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return created, nil
}

// Update replaces the mutable fields of a channel and returns the stored
// result. Rename re-keying of live rooms is the caller's job and must
// happen together with this write.
func (d *Directory) Update(ctx context.Context, id string, c *models.Channel) (*models.Channel, error) {
	row := d.db.QueryRow(ctx, `
		UPDATE channels
		SET name = $2, description = $3, members = $4, allowed_roles = $5, posting_roles = $6
		WHERE id = $1
		RETURNING `+channelColumns,
		id, c.Name, c.Description, dedupe(c.Members),
		rolesToStrings(c.AllowedRoles), rolesToStrings(c.PostingRoles))

	updated, err := scanChannel(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return updated, nil
}

func (d *Directory) Delete(ctx context.Context, id string) error {
	tag, err := d.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll wipes the catalog. Messages are not cascaded; they stay
// orphaned under their room id.
func (d *Directory) DeleteAll(ctx context.Context) error {
	_, err := d.db.Exec(ctx, `DELETE FROM channels`)
	return err
}

func rolesToStrings(roles []models.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func rolesFromStrings(ss []string) []models.Role {
	out := make([]models.Role, len(ss))
	for i, s := range ss {
		out[i] = models.Role(s)
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
