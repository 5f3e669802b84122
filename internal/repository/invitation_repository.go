package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/utils"
)

// InvitationRepository persists invitation requests. Conditional transitions
// return sql.ErrNoRows when the row is missing or no longer in a state that
// allows the transition.
type InvitationRepository interface {
	UpsertInvitation(ctx context.Context, inv models.InvitationRequest) (models.InvitationRequest, error)
	GetInvitationByID(ctx context.Context, invitationID string) (models.InvitationRequest, error)
	ListOpenInvitationsByEmail(ctx context.Context, email string) ([]models.InvitationRequest, error)
	ListInvitationsByOwner(ctx context.Context, ownerID string) ([]models.InvitationRequest, error)
	MarkInvitationSent(ctx context.Context, invitationID string) (models.InvitationRequest, error)
	AcceptInvitation(ctx context.Context, invitationID, userID string) (models.InvitationRequest, error)
	ExpireInvitation(ctx context.Context, invitationID string) (models.InvitationRequest, error)
	RejectInvitation(ctx context.Context, invitationID, ownerID string) (models.InvitationRequest, error)
	ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error)
}

type invitationRepository struct {
	db     *sql.DB
	sealer *utils.Sealer
}

func NewInvitationRepository(db *sql.DB, sealer *utils.Sealer) InvitationRepository {
	return &invitationRepository{db: db, sealer: sealer}
}

const invitationColumns = `id, code_id, owner_id, email, message, location_sealed, status, expires_at, sent_at, accepted_at, accepted_by, created_at, updated_at`

func (r *invitationRepository) UpsertInvitation(ctx context.Context, inv models.InvitationRequest) (models.InvitationRequest, error) {
	// Accepted and rejected rows are terminal; a resubmission only refreshes
	// the message on those.
	const query = `
		INSERT INTO dislink.invitation_requests AS ir (code_id, owner_id, email, message, location_sealed, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		ON CONFLICT (code_id, email) DO UPDATE SET
			message = EXCLUDED.message,
			location_sealed = EXCLUDED.location_sealed,
			status = CASE WHEN ir.status IN ('accepted', 'rejected') THEN ir.status ELSE 'pending' END,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		RETURNING ` + invitationColumns

	sealed, err := r.sealLocation(inv.Location)
	if err != nil {
		return models.InvitationRequest{}, err
	}

	row := r.db.QueryRowContext(ctx, query,
		inv.CodeID,
		inv.OwnerID,
		inv.Email,
		inv.Message,
		sealed,
		inv.ExpiresAt,
	)
	return r.scanInvitation(row)
}

func (r *invitationRepository) GetInvitationByID(ctx context.Context, invitationID string) (models.InvitationRequest, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM dislink.invitation_requests
		WHERE id = $1
	`
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
}

func (r *invitationRepository) ListOpenInvitationsByEmail(ctx context.Context, email string) ([]models.InvitationRequest, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM dislink.invitation_requests
		WHERE email = $1 AND status IN ('pending', 'sent')
		ORDER BY created_at ASC
	`
	return r.queryInvitations(ctx, query, email)
}

func (r *invitationRepository) ListInvitationsByOwner(ctx context.Context, ownerID string) ([]models.InvitationRequest, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM dislink.invitation_requests
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT 100
	`
	return r.queryInvitations(ctx, query, ownerID)
}

func (r *invitationRepository) MarkInvitationSent(ctx context.Context, invitationID string) (models.InvitationRequest, error) {
	const query = `
		UPDATE dislink.invitation_requests
		SET status = 'sent', sent_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + invitationColumns
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
}

func (r *invitationRepository) AcceptInvitation(ctx context.Context, invitationID, userID string) (models.InvitationRequest, error) {
	const query = `
		UPDATE dislink.invitation_requests
		SET status = 'accepted', accepted_at = now(), accepted_by = $2, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'sent')
		RETURNING ` + invitationColumns
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, invitationID, userID))
}

func (r *invitationRepository) ExpireInvitation(ctx context.Context, invitationID string) (models.InvitationRequest, error) {
	const query = `
		UPDATE dislink.invitation_requests
		SET status = 'expired', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'sent')
		RETURNING ` + invitationColumns
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
}

func (r *invitationRepository) RejectInvitation(ctx context.Context, invitationID, ownerID string) (models.InvitationRequest, error) {
	const query = `
		UPDATE dislink.invitation_requests
		SET status = 'rejected', updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND status IN ('pending', 'sent')
		RETURNING ` + invitationColumns
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, invitationID, ownerID))
}

func (r *invitationRepository) ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE dislink.invitation_requests
		SET status = 'expired', updated_at = now()
		WHERE status IN ('pending', 'sent') AND expires_at <= $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *invitationRepository) queryInvitations(ctx context.Context, query string, args ...interface{}) ([]models.InvitationRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.InvitationRequest
	for rows.Next() {
		inv, err := r.scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *invitationRepository) sealLocation(loc *models.GeoPoint) (interface{}, error) {
	if loc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("marshal invitation location: %w", err)
	}
	sealed, err := r.sealer.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("seal invitation location: %w", err)
	}
	return sealed, nil
}

func (r *invitationRepository) scanInvitation(scanner interface {
	Scan(dest ...interface{}) error
}) (models.InvitationRequest, error) {
	var (
		inv        models.InvitationRequest
		sealed     []byte
		status     string
		sentAt     sql.NullTime
		acceptedAt sql.NullTime
		acceptedBy sql.NullString
	)
	if err := scanner.Scan(
		&inv.ID,
		&inv.CodeID,
		&inv.OwnerID,
		&inv.Email,
		&inv.Message,
		&sealed,
		&status,
		&inv.ExpiresAt,
		&sentAt,
		&acceptedAt,
		&acceptedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return models.InvitationRequest{}, err
	}

	inv.Status = models.InvitationStatus(status)
	if len(sealed) > 0 {
		raw, err := r.sealer.Open(sealed)
		if err != nil {
			return models.InvitationRequest{}, fmt.Errorf("open invitation location: %w", err)
		}
		var loc models.GeoPoint
		if err := json.Unmarshal(raw, &loc); err != nil {
			return models.InvitationRequest{}, fmt.Errorf("decode invitation location: %w", err)
		}
		inv.Location = &loc
	}
	if sentAt.Valid {
		t := sentAt.Time
		inv.SentAt = &t
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if acceptedBy.Valid {
		v := acceptedBy.String
		inv.AcceptedBy = &v
	}
	return inv, nil
}
