package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dislink/connect-api/internal/models"
)

type ConnectionRepository interface {
	// CreateConnectionPair inserts both directions of a connection unless they
	// already exist. It reports whether any row was created.
	CreateConnectionPair(ctx context.Context, ownerID, contactID string, invitationID *string) (bool, error)
	ListConnections(ctx context.Context, ownerID string) ([]models.Connection, error)
}

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) CreateConnectionPair(ctx context.Context, ownerID, contactID string, invitationID *string) (bool, error) {
	const query = `
		INSERT INTO dislink.connections (owner_id, contact_id, invitation_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, contact_id) DO NOTHING
	`

	var invitation interface{}
	if invitationID != nil && *invitationID != "" {
		invitation = *invitationID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var created int64
	for _, pair := range [][2]string{{ownerID, contactID}, {contactID, ownerID}} {
		result, err := tx.ExecContext(ctx, query, pair[0], pair[1], invitation)
		if err != nil {
			return false, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return false, err
		}
		created += n
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created > 0, nil
}

func (r *connectionRepository) ListConnections(ctx context.Context, ownerID string) ([]models.Connection, error) {
	const query = `
		SELECT owner_id, contact_id, invitation_id, created_at
		FROM dislink.connections
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []models.Connection
	for rows.Next() {
		var (
			conn         models.Connection
			invitationID sql.NullString
		)
		if err := rows.Scan(&conn.OwnerID, &conn.ContactID, &invitationID, &conn.CreatedAt); err != nil {
			return nil, err
		}
		if invitationID.Valid {
			v := invitationID.String
			conn.InvitationID = &v
		}
		connections = append(connections, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return connections, nil
}
