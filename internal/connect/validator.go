package connect

import (
	"context"
	"database/sql"
	"time"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/pkg/errors"
)

// Resolution is a validated code and the snapshot it was issued with.
type Resolution struct {
	Code     models.ConnectionCode
	Snapshot models.ProfileSnapshot
}

type Validator struct {
	codes repository.CodeRepository
	now   func() time.Time
}

func NewValidator(codes repository.CodeRepository) *Validator {
	return &Validator{codes: codes, now: time.Now}
}

// Validate resolves code. Checks run in order: existence, expiry, then
// sharing (revoked by the owner or disabled in the snapshot), so an expired
// code never reports not_public.
func (v *Validator) Validate(ctx context.Context, code string) (Resolution, error) {
	record, err := v.codes.GetCodeByHash(ctx, HashCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resolution{}, ErrCodeNotFound
		}
		return Resolution{}, errors.Wrap(err, "lookup connection code")
	}

	if record.IsExpired(v.now()) {
		return Resolution{Code: record}, ErrCodeExpired
	}
	if !record.IsPublic() {
		return Resolution{Code: record}, ErrCodeNotPublic
	}

	return Resolution{Code: record, Snapshot: record.Snapshot}, nil
}
