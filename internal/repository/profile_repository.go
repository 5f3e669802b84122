package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dislink/connect-api/internal/models"
	"github.com/lib/pq"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `user_id, name, job_title, company, image_url, bio, location, email, phone, interests, social_links, sharing, created_at, updated_at`

func (r *profileRepository) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	const query = `
		SELECT ` + profileColumns + `
		FROM dislink.profiles
		WHERE user_id = $1
	`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *profileRepository) UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	const query = `
		INSERT INTO dislink.profiles (user_id, name, job_title, company, image_url, bio, location, email, phone, interests, social_links, sharing)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			job_title = EXCLUDED.job_title,
			company = EXCLUDED.company,
			image_url = EXCLUDED.image_url,
			bio = EXCLUDED.bio,
			location = EXCLUDED.location,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			interests = EXCLUDED.interests,
			social_links = EXCLUDED.social_links,
			sharing = EXCLUDED.sharing,
			updated_at = now()
		RETURNING ` + profileColumns

	links := profile.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return models.Profile{}, fmt.Errorf("marshal social links: %w", err)
	}
	sharingJSON, err := json.Marshal(profile.Sharing)
	if err != nil {
		return models.Profile{}, fmt.Errorf("marshal sharing preferences: %w", err)
	}
	interests := profile.Interests
	if interests == nil {
		interests = []string{}
	}

	row := r.db.QueryRowContext(ctx, query,
		profile.UserID,
		profile.Name,
		profile.JobTitle,
		profile.Company,
		profile.ImageURL,
		profile.Bio,
		profile.Location,
		profile.Email,
		profile.Phone,
		pq.Array(interests),
		linksJSON,
		sharingJSON,
	)
	return scanProfile(row)
}

func scanProfile(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Profile, error) {
	var (
		profile    models.Profile
		interests  pq.StringArray
		linksRaw   []byte
		sharingRaw []byte
	)
	if err := scanner.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.JobTitle,
		&profile.Company,
		&profile.ImageURL,
		&profile.Bio,
		&profile.Location,
		&profile.Email,
		&profile.Phone,
		&interests,
		&linksRaw,
		&sharingRaw,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return models.Profile{}, err
	}

	profile.Interests = []string(interests)
	if len(linksRaw) > 0 {
		if err := json.Unmarshal(linksRaw, &profile.SocialLinks); err != nil {
			return models.Profile{}, fmt.Errorf("decode social links: %w", err)
		}
	}
	if len(sharingRaw) > 0 {
		if err := json.Unmarshal(sharingRaw, &profile.Sharing); err != nil {
			return models.Profile{}, fmt.Errorf("decode sharing preferences: %w", err)
		}
	}
	return profile, nil
}
