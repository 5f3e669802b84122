package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dislink/connect-api/internal/models"
)

type CodeRepository interface {
	// CreateCode inserts code. When supersedePrevious is set, the owner's
	// active codes are superseded in the same transaction.
	CreateCode(ctx context.Context, code models.ConnectionCode, supersedePrevious bool) (models.ConnectionCode, error)
	GetCodeByHash(ctx context.Context, codeHash string) (models.ConnectionCode, error)
	GetCodeByID(ctx context.Context, codeID string) (models.ConnectionCode, error)
	ListCodesByOwner(ctx context.Context, ownerID string) ([]models.ConnectionCode, error)
	RecordUsage(ctx context.Context, codeID string) error
	SupersedeActiveCodes(ctx context.Context, ownerID string) (int64, error)
	// DisableSharing marks the owner's active codes as no longer public.
	// Unlike supersession they keep their expiry and resolve as not public.
	DisableSharing(ctx context.Context, ownerID string) (int64, error)
}

type codeRepository struct {
	db *sql.DB
}

func NewCodeRepository(db *sql.DB) CodeRepository {
	return &codeRepository{db: db}
}

const codeColumns = `id, owner_id, code_hash, profile_snapshot, expires_at, usage_count, last_used_at, superseded_at, sharing_disabled_at, created_at`

const supersedeActiveCodesQuery = `
	UPDATE dislink.connection_codes
	SET superseded_at = now()
	WHERE owner_id = $1 AND superseded_at IS NULL
`

func (r *codeRepository) CreateCode(ctx context.Context, code models.ConnectionCode, supersedePrevious bool) (models.ConnectionCode, error) {
	const query = `
		INSERT INTO dislink.connection_codes (owner_id, code_hash, profile_snapshot, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + codeColumns

	snapshot, err := json.Marshal(code.Snapshot)
	if err != nil {
		return models.ConnectionCode{}, fmt.Errorf("marshal profile snapshot: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ConnectionCode{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if supersedePrevious {
		if _, err := tx.ExecContext(ctx, supersedeActiveCodesQuery, code.OwnerID); err != nil {
			return models.ConnectionCode{}, fmt.Errorf("supersede previous codes: %w", err)
		}
	}

	created, err := scanCode(tx.QueryRowContext(ctx, query, code.OwnerID, code.CodeHash, snapshot, code.ExpiresAt))
	if err != nil {
		return models.ConnectionCode{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ConnectionCode{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

func (r *codeRepository) GetCodeByHash(ctx context.Context, codeHash string) (models.ConnectionCode, error) {
	const query = `
		SELECT ` + codeColumns + `
		FROM dislink.connection_codes
		WHERE code_hash = $1
	`
	return scanCode(r.db.QueryRowContext(ctx, query, codeHash))
}

func (r *codeRepository) GetCodeByID(ctx context.Context, codeID string) (models.ConnectionCode, error) {
	const query = `
		SELECT ` + codeColumns + `
		FROM dislink.connection_codes
		WHERE id = $1
	`
	return scanCode(r.db.QueryRowContext(ctx, query, codeID))
}

func (r *codeRepository) ListCodesByOwner(ctx context.Context, ownerID string) ([]models.ConnectionCode, error) {
	const query = `
		SELECT ` + codeColumns + `
		FROM dislink.connection_codes
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []models.ConnectionCode
	for rows.Next() {
		code, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *codeRepository) RecordUsage(ctx context.Context, codeID string) error {
	const query = `
		UPDATE dislink.connection_codes
		SET usage_count = usage_count + 1, last_used_at = now()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, codeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *codeRepository) SupersedeActiveCodes(ctx context.Context, ownerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, supersedeActiveCodesQuery, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *codeRepository) DisableSharing(ctx context.Context, ownerID string) (int64, error) {
	const query = `
		UPDATE dislink.connection_codes
		SET sharing_disabled_at = now()
		WHERE owner_id = $1 AND superseded_at IS NULL AND sharing_disabled_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanCode(scanner interface {
	Scan(dest ...interface{}) error
}) (models.ConnectionCode, error) {
	var (
		code         models.ConnectionCode
		snapshotRaw  []byte
		lastUsedAt   sql.NullTime
		supersededAt sql.NullTime
		sharingOffAt sql.NullTime
	)
	if err := scanner.Scan(
		&code.ID,
		&code.OwnerID,
		&code.CodeHash,
		&snapshotRaw,
		&code.ExpiresAt,
		&code.UsageCount,
		&lastUsedAt,
		&supersededAt,
		&sharingOffAt,
		&code.CreatedAt,
	); err != nil {
		return models.ConnectionCode{}, err
	}

	// A snapshot that fails to decode stays zero-valued, which the
	// disclosure filter treats as identity-only.
	if len(snapshotRaw) > 0 {
		if err := json.Unmarshal(snapshotRaw, &code.Snapshot); err != nil {
			code.Snapshot = models.ProfileSnapshot{}
		}
	}
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		code.LastUsedAt = &t
	}
	if supersededAt.Valid {
		t := supersededAt.Time
		code.SupersededAt = &t
	}
	if sharingOffAt.Valid {
		t := sharingOffAt.Time
		code.SharingDisabledAt = &t
	}
	return code, nil
}
