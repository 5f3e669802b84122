package connect

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dislink/connect-api/internal/config"
	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const codeEntropyBytes = 18

// IssuedCode is returned to the owner once. The plaintext code is never
// persisted.
type IssuedCode struct {
	Code      string                `json:"code"`
	URL       string                `json:"url"`
	ExpiresAt time.Time             `json:"expires_at"`
	Record    models.ConnectionCode `json:"record"`
}

type Issuer struct {
	profiles repository.ProfileRepository
	codes    repository.CodeRepository
	cfg      config.CodeConfig
	logger   zerolog.Logger
	now      func() time.Time
	random   func([]byte) (int, error)
}

func NewIssuer(profiles repository.ProfileRepository, codes repository.CodeRepository, cfg config.CodeConfig, logger zerolog.Logger) *Issuer {
	return &Issuer{
		profiles: profiles,
		codes:    codes,
		cfg:      cfg,
		logger:   logger.With().Str("component", "code_issuer").Logger(),
		now:      time.Now,
		random:   rand.Read,
	}
}

// Issue snapshots the owner's current profile into a new connection code.
func (i *Issuer) Issue(ctx context.Context, ownerID string) (IssuedCode, error) {
	profile, err := i.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return IssuedCode{}, ErrProfileNotFound
		}
		return IssuedCode{}, &PersistenceError{Op: "load profile", Err: err}
	}

	if missing := missingRequiredFields(profile); len(missing) > 0 {
		return IssuedCode{}, &ProfileIncompleteError{Missing: missing}
	}

	code, err := i.generateCode()
	if err != nil {
		return IssuedCode{}, errors.Wrap(err, "generate code")
	}

	now := i.now().UTC()
	record := models.ConnectionCode{
		OwnerID:   ownerID,
		CodeHash:  HashCode(code),
		Snapshot:  SnapshotProfile(profile),
		ExpiresAt: now.Add(i.cfg.Validity()),
	}

	created, err := i.codes.CreateCode(ctx, record, i.cfg.SupersedePrevious)
	if err != nil {
		return IssuedCode{}, &PersistenceError{Op: "store connection code", Err: err}
	}

	i.logger.Info().
		Str("owner_id", ownerID).
		Str("code_id", created.ID).
		Time("expires_at", created.ExpiresAt).
		Msg("connection code issued")

	return IssuedCode{
		Code:      code,
		URL:       PublicURL(i.cfg, code),
		ExpiresAt: created.ExpiresAt,
		Record:    created,
	}, nil
}

// PublicURL renders the share link for code.
func PublicURL(cfg config.CodeConfig, code string) string {
	return fmt.Sprintf(cfg.PublicURLTemplate, code)
}

// HashCode is the lookup key stored for a code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (i *Issuer) generateCode() (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := i.random(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func missingRequiredFields(p models.Profile) []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	return missing
}

// SnapshotProfile copies the sharable parts of p. Blank values become absent
// and maps and slices are copied so later profile edits cannot leak in.
func SnapshotProfile(p models.Profile) models.ProfileSnapshot {
	snap := models.ProfileSnapshot{
		Name:     strings.TrimSpace(p.Name),
		ImageURL: optionalString(p.ImageURL),
		JobTitle: optionalString(p.JobTitle),
		Company:  optionalString(p.Company),
		Bio:      optionalString(p.Bio),
		Location: optionalString(p.Location),
		Email:    optionalString(p.Email),
		Phone:    optionalString(p.Phone),
		Sharing:  models.Some(p.Sharing.Clone()),
	}

	if len(p.Interests) > 0 {
		interests := make([]string, 0, len(p.Interests))
		for _, interest := range p.Interests {
			if v := strings.TrimSpace(interest); v != "" {
				interests = append(interests, v)
			}
		}
		if len(interests) > 0 {
			snap.Interests = models.Some(interests)
		}
	}

	if len(p.SocialLinks) > 0 {
		links := make(map[string]string, len(p.SocialLinks))
		for platform, url := range p.SocialLinks {
			if v := strings.TrimSpace(url); v != "" {
				links[platform] = v
			}
		}
		if len(links) > 0 {
			snap.SocialLinks = models.Some(links)
		}
	}

	return snap
}

func optionalString(v string) models.Optional[string] {
	v = strings.TrimSpace(v)
	if v == "" {
		return models.None[string]()
	}
	return models.Some(v)
}
