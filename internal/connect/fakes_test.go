package connect

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/notification"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var testLogger = zerolog.New(io.Discard)

type memProfiles struct {
	profiles map[string]models.Profile
	err      error
}

func (m *memProfiles) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	if m.err != nil {
		return models.Profile{}, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return models.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memProfiles) UpsertProfile(_ context.Context, p models.Profile) (models.Profile, error) {
	if m.profiles == nil {
		m.profiles = map[string]models.Profile{}
	}
	m.profiles[p.UserID] = p
	return p, nil
}

type memCodes struct {
	mu         sync.Mutex
	codes      map[string]models.ConnectionCode
	err        error
	supersedes []bool
}

func newMemCodes() *memCodes {
	return &memCodes{codes: map[string]models.ConnectionCode{}}
}

func (m *memCodes) CreateCode(_ context.Context, code models.ConnectionCode, supersedePrevious bool) (models.ConnectionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.ConnectionCode{}, m.err
	}
	m.supersedes = append(m.supersedes, supersedePrevious)
	if supersedePrevious {
		m.supersedeLocked(code.OwnerID)
	}
	code.ID = uuid.NewString()
	code.CreatedAt = time.Now()
	m.codes[code.ID] = code
	return code, nil
}

func (m *memCodes) GetCodeByHash(_ context.Context, codeHash string) (models.ConnectionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.ConnectionCode{}, m.err
	}
	for _, c := range m.codes {
		if c.CodeHash == codeHash {
			return c, nil
		}
	}
	return models.ConnectionCode{}, sql.ErrNoRows
}

func (m *memCodes) GetCodeByID(_ context.Context, codeID string) (models.ConnectionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok {
		return models.ConnectionCode{}, sql.ErrNoRows
	}
	return c, nil
}

func (m *memCodes) ListCodesByOwner(_ context.Context, ownerID string) ([]models.ConnectionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConnectionCode
	for _, c := range m.codes {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCodes) RecordUsage(_ context.Context, codeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now()
	c.UsageCount++
	c.LastUsedAt = &now
	m.codes[codeID] = c
	return nil
}

func (m *memCodes) SupersedeActiveCodes(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supersedeLocked(ownerID), nil
}

func (m *memCodes) DisableSharing(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for id, c := range m.codes {
		if c.OwnerID == ownerID && c.SupersededAt == nil && c.SharingDisabledAt == nil {
			c.SharingDisabledAt = &now
			m.codes[id] = c
			n++
		}
	}
	return n, nil
}

func (m *memCodes) supersedeLocked(ownerID string) int64 {
	var n int64
	now := time.Now()
	for id, c := range m.codes {
		if c.OwnerID == ownerID && c.SupersededAt == nil {
			c.SupersededAt = &now
			m.codes[id] = c
			n++
		}
	}
	return n
}

// put stores a code directly under the hash of plain.
func (m *memCodes) put(plain string, code models.ConnectionCode) models.ConnectionCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	code.CodeHash = HashCode(plain)
	m.codes[code.ID] = code
	return code
}

type memScans struct {
	mu     sync.Mutex
	events []models.ScanEvent
	err    error
}

func (m *memScans) RecordScan(_ context.Context, evt models.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *memScans) snapshot() []models.ScanEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ScanEvent(nil), m.events...)
}

type memInvitations struct {
	rows      map[string]models.InvitationRequest
	upsertErr error
	upserts   int
}

func newMemInvitations() *memInvitations {
	return &memInvitations{rows: map[string]models.InvitationRequest{}}
}

func (m *memInvitations) UpsertInvitation(_ context.Context, inv models.InvitationRequest) (models.InvitationRequest, error) {
	if m.upsertErr != nil {
		return models.InvitationRequest{}, m.upsertErr
	}
	m.upserts++
	now := time.Now()
	for id, existing := range m.rows {
		if existing.CodeID == inv.CodeID && existing.Email == inv.Email {
			existing.Message = inv.Message
			existing.Location = inv.Location
			existing.ExpiresAt = inv.ExpiresAt
			if existing.Status != models.InvitationAccepted && existing.Status != models.InvitationRejected {
				existing.Status = models.InvitationPending
			}
			existing.UpdatedAt = now
			m.rows[id] = existing
			return existing, nil
		}
	}
	inv.ID = uuid.NewString()
	inv.Status = models.InvitationPending
	inv.CreatedAt = now
	inv.UpdatedAt = now
	m.rows[inv.ID] = inv
	return inv, nil
}

func (m *memInvitations) GetInvitationByID(_ context.Context, id string) (models.InvitationRequest, error) {
	inv, ok := m.rows[id]
	if !ok {
		return models.InvitationRequest{}, sql.ErrNoRows
	}
	return inv, nil
}

func (m *memInvitations) ListOpenInvitationsByEmail(_ context.Context, email string) ([]models.InvitationRequest, error) {
	var out []models.InvitationRequest
	for _, inv := range m.rows {
		if inv.Email == email && inv.Status.IsOpen() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInvitations) ListInvitationsByOwner(_ context.Context, ownerID string) ([]models.InvitationRequest, error) {
	var out []models.InvitationRequest
	for _, inv := range m.rows {
		if inv.OwnerID == ownerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInvitations) transition(id string, from []models.InvitationStatus, apply func(*models.InvitationRequest)) (models.InvitationRequest, error) {
	inv, ok := m.rows[id]
	if !ok {
		return models.InvitationRequest{}, sql.ErrNoRows
	}
	for _, s := range from {
		if inv.Status == s {
			apply(&inv)
			inv.UpdatedAt = time.Now()
			m.rows[id] = inv
			return inv, nil
		}
	}
	return models.InvitationRequest{}, sql.ErrNoRows
}

func (m *memInvitations) MarkInvitationSent(_ context.Context, id string) (models.InvitationRequest, error) {
	return m.transition(id, []models.InvitationStatus{models.InvitationPending}, func(inv *models.InvitationRequest) {
		now := time.Now()
		inv.Status = models.InvitationSent
		inv.SentAt = &now
	})
}

func (m *memInvitations) AcceptInvitation(_ context.Context, id, userID string) (models.InvitationRequest, error) {
	return m.transition(id, []models.InvitationStatus{models.InvitationPending, models.InvitationSent}, func(inv *models.InvitationRequest) {
		now := time.Now()
		inv.Status = models.InvitationAccepted
		inv.AcceptedAt = &now
		inv.AcceptedBy = &userID
	})
}

func (m *memInvitations) ExpireInvitation(_ context.Context, id string) (models.InvitationRequest, error) {
	return m.transition(id, []models.InvitationStatus{models.InvitationPending, models.InvitationSent}, func(inv *models.InvitationRequest) {
		inv.Status = models.InvitationExpired
	})
}

func (m *memInvitations) RejectInvitation(_ context.Context, id, ownerID string) (models.InvitationRequest, error) {
	if inv, ok := m.rows[id]; !ok || inv.OwnerID != ownerID {
		return models.InvitationRequest{}, sql.ErrNoRows
	}
	return m.transition(id, []models.InvitationStatus{models.InvitationPending, models.InvitationSent}, func(inv *models.InvitationRequest) {
		inv.Status = models.InvitationRejected
	})
}

func (m *memInvitations) ExpireStaleInvitations(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, inv := range m.rows {
		if inv.Status.IsOpen() && inv.IsExpired(now) {
			inv.Status = models.InvitationExpired
			m.rows[id] = inv
			n++
		}
	}
	return n, nil
}

func (m *memInvitations) only() models.InvitationRequest {
	if len(m.rows) != 1 {
		panic(fmt.Sprintf("expected one invitation, have %d", len(m.rows)))
	}
	for _, inv := range m.rows {
		return inv
	}
	return models.InvitationRequest{}
}

type memConnections struct {
	pairs   map[[2]string]models.Connection
	err     error
	failFor map[string]error
}

func newMemConnections() *memConnections {
	return &memConnections{pairs: map[[2]string]models.Connection{}}
}

func (m *memConnections) CreateConnectionPair(_ context.Context, ownerID, contactID string, invitationID *string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if err := m.failFor[ownerID]; err != nil {
		return false, err
	}
	created := false
	for _, p := range [][2]string{{ownerID, contactID}, {contactID, ownerID}} {
		if _, ok := m.pairs[p]; ok {
			continue
		}
		m.pairs[p] = models.Connection{OwnerID: p[0], ContactID: p[1], InvitationID: invitationID, CreatedAt: time.Now()}
		created = true
	}
	return created, nil
}

func (m *memConnections) ListConnections(_ context.Context, ownerID string) ([]models.Connection, error) {
	var out []models.Connection
	for _, c := range m.pairs {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memUsers struct {
	users map[string]models.User
}

func (m *memUsers) UpsertUser(_ context.Context, u models.User) (models.User, error) {
	if m.users == nil {
		m.users = map[string]models.User{}
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return u, nil
}

type recordingMailer struct {
	sent []notification.InvitationEmail
	err  error
}

func (m *recordingMailer) SendInvitation(email notification.InvitationEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type recordingNotifications struct {
	notification.Service
	received []string
	created  []string
}

func (r *recordingNotifications) NotifyInvitationReceived(_ context.Context, ownerID, invitationID, _ string) error {
	r.received = append(r.received, ownerID+":"+invitationID)
	return nil
}

func (r *recordingNotifications) NotifyConnectionCreated(_ context.Context, ownerID, contactID, _ string) error {
	r.created = append(r.created, ownerID+":"+contactID)
	return nil
}

func fullProfile(userID string) models.Profile {
	return models.Profile{
		UserID:    userID,
		Name:      "John Doe",
		JobTitle:  "Engineer",
		Company:   "Acme",
		ImageURL:  "https://cdn.dislink.app/john.png",
		Bio:       "Builds things",
		Location:  "Berlin",
		Email:     "john@acme.io",
		Phone:     "+49 30 1234",
		Interests: []string{"go", "climbing"},
		SocialLinks: map[string]string{
			"linkedin": "https://linkedin.com/in/john",
			"github":   "https://github.com/john",
		},
		Sharing: models.SharingPreferences{
			Enabled: true,
			AllowedFields: map[string]bool{
				models.FieldBio:       true,
				models.FieldInterests: true,
				models.FieldLocation:  true,
				models.FieldCompany:   true,
				models.FieldJobTitle:  true,
				models.FieldEmail:     true,
				models.FieldPhone:     true,
			},
			SharedLinks: map[string]bool{"linkedin": true, "github": true},
		},
	}
}
