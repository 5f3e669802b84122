package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dislink/connect-api/internal/models"
)

type ScanRepository interface {
	RecordScan(ctx context.Context, evt models.ScanEvent) error
}

type scanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) RecordScan(ctx context.Context, evt models.ScanEvent) error {
	const query = `
		INSERT INTO dislink.scan_events (code_hash, code_id, outcome, visitor_fingerprint, user_agent, referrer, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var codeID interface{}
	if evt.CodeID != nil && *evt.CodeID != "" {
		codeID = *evt.CodeID
	}
	var fingerprint interface{}
	if evt.Fingerprint != nil {
		fingerprint = *evt.Fingerprint
	}
	var location interface{}
	if evt.Location != nil {
		raw, err := json.Marshal(evt.Location)
		if err != nil {
			return fmt.Errorf("marshal scan location: %w", err)
		}
		location = raw
	}

	_, err := r.db.ExecContext(ctx, query,
		evt.CodeHash,
		codeID,
		string(evt.Outcome),
		fingerprint,
		evt.UserAgent,
		evt.Referrer,
		location,
	)
	return err
}
