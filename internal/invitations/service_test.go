package invitations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teamrally/backend/internal/models"
)

// memStore is an in-memory Store honoring the same atomic ConsumeUse contract
// as the SQL implementation: increment only while every gate still holds.
type memStore struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.Invitation
	conflicts int // number of Creates to reject with ErrTokenConflict
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]*models.Invitation)}
}

func (s *memStore) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts > 0 {
		s.conflicts--
		return ErrTokenConflict
	}
	for _, existing := range s.byID {
		if existing.Token == inv.Token {
			return ErrTokenConflict
		}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	s.byID[inv.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *memStore) GetByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.byID {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invitation
	for _, inv := range s.byID {
		if inv.EventID == eventID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpdateConstraints(_ context.Context, id uuid.UUID, description string, maxUses *int, expiresAt *time.Time) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	inv.Description = description
	inv.MaxUses = maxUses
	inv.ExpiresAt = expiresAt
	inv.UpdatedAt = time.Now()
	cp := *inv
	return &cp, nil
}

func (s *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	inv.IsActive = active
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memStore) ConsumeUse(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if !inv.Redeemable(time.Now()) {
		return false, nil
	}
	inv.TimesUsed++
	return true, nil
}

func (s *memStore) ReleaseUse(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.byID[id]; ok && inv.TimesUsed > 0 {
		inv.TimesUsed--
	}
	return nil
}

type memLedger struct {
	mu         sync.Mutex
	rows       []models.InvitationUsage
	failAppend bool
}

func (l *memLedger) AppendUsage(_ context.Context, u *models.InvitationUsage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAppend {
		return errors.New("ledger unavailable")
	}
	u.ID = uuid.New()
	u.UsedAt = time.Now()
	l.rows = append(l.rows, *u)
	return nil
}

func (l *memLedger) UsagesByInvitation(_ context.Context, invitationID uuid.UUID) ([]UsageDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []UsageDetail
	for _, r := range l.rows {
		if r.InvitationID != nil && *r.InvitationID == invitationID {
			out = append(out, usageToDetail(r))
		}
	}
	return out, nil
}

func (l *memLedger) RecentUsagesByEvent(_ context.Context, eventID uuid.UUID, limit int) ([]UsageDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []UsageDetail
	for i := len(l.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if l.rows[i].EventID == eventID {
			out = append(out, usageToDetail(l.rows[i]))
		}
	}
	return out, nil
}

func (l *memLedger) CountUsagesByEvent(_ context.Context, eventID uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.rows {
		if r.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) UsageCountsByDay(_ context.Context, eventID uuid.UUID) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int)
	for _, r := range l.rows {
		if r.EventID == eventID {
			out[r.UsedAt.UTC().Format("2006-01-02")]++
		}
	}
	return out, nil
}

func usageToDetail(r models.InvitationUsage) UsageDetail {
	return UsageDetail{
		ID:            r.ID,
		InvitationID:  r.InvitationID,
		ParticipantID: r.ParticipantID,
		IPAddress:     r.IPAddress,
		UsedAt:        r.UsedAt,
	}
}

type memEvents struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*models.Event
	members map[uuid.UUID][]uuid.UUID // eventID -> participant IDs
	failAdd bool
}

func newMemEvents() *memEvents {
	return &memEvents{
		events:  make(map[uuid.UUID]*models.Event),
		members: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (e *memEvents) addEvent(name string) uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.New()
	e.events[id] = &models.Event{ID: id, Name: name}
	return id
}

func (e *memEvents) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.events[id]
	return ok, nil
}

func (e *memEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.events[id]
	if !ok {
		return nil, errors.New("event not found")
	}
	cp := *ev
	return &cp, nil
}

func (e *memEvents) AddParticipant(_ context.Context, eventID, participantID uuid.UUID, _ *uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failAdd {
		return errors.New("membership store unavailable")
	}
	e.members[eventID] = append(e.members[eventID], participantID)
	return nil
}

type memParticipants struct {
	mu         sync.Mutex
	byUsername map[string]uuid.UUID
	failCreate bool
	deleted    []uuid.UUID
}

func newMemParticipants() *memParticipants {
	return &memParticipants{byUsername: make(map[string]uuid.UUID)}
}

func (p *memParticipants) Create(_ context.Context, participant *models.Participant) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCreate {
		return errors.New("participant store unavailable")
	}
	if _, ok := p.byUsername[participant.Username]; ok {
		return errors.New("username already exists")
	}
	participant.ID = uuid.New()
	participant.CreatedAt = time.Now()
	p.byUsername[participant.Username] = participant.ID
	return nil
}

func (p *memParticipants) Delete(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for username, pid := range p.byUsername {
		if pid == id {
			delete(p.byUsername, username)
			break
		}
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *memParticipants) UsernameExists(_ context.Context, username string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byUsername[username]
	return ok, nil
}

type fixture struct {
	svc          *Service
	store        *memStore
	ledger       *memLedger
	events       *memEvents
	participants *memParticipants
	eventID      uuid.UUID
	adminID      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	ledger := &memLedger{}
	events := newMemEvents()
	participants := newMemParticipants()
	return &fixture{
		svc:          NewService(store, ledger, events, participants, "https://rally.example.com", nil),
		store:        store,
		ledger:       ledger,
		events:       events,
		participants: participants,
		eventID:      events.addEvent("Spring Tournament"),
		adminID:      uuid.New(),
	}
}

func (f *fixture) mustCreate(t *testing.T, maxUses *int, expiresAt *time.Time) *InvitationResponse {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), CreateParams{
		EventID:   f.eventID,
		MaxUses:   maxUses,
		ExpiresAt: expiresAt,
		CreatedBy: f.adminID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inv
}

func registration(username string) RegistrationRequest {
	return RegistrationRequest{
		Username: username,
		Password: "secret123",
		Name:     "Test Player",
		Email:    username + "@example.com",
	}
}

func intPtr(n int) *int { return &n }

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{EventID: f.eventID, MaxUses: intPtr(0), CreatedBy: f.adminID})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("max_uses=0: got %v, want ErrValidation", err)
	}
	_, err = f.svc.Create(ctx, CreateParams{EventID: f.eventID, MaxUses: intPtr(-3), CreatedBy: f.adminID})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("max_uses=-3: got %v, want ErrValidation", err)
	}
	past := time.Now().Add(-time.Hour)
	_, err = f.svc.Create(ctx, CreateParams{EventID: f.eventID, ExpiresAt: &past, CreatedBy: f.adminID})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("past expiry: got %v, want ErrValidation", err)
	}
	_, err = f.svc.Create(ctx, CreateParams{EventID: uuid.New(), CreatedBy: f.adminID})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown event: got %v, want ErrNotFound", err)
	}
}

func TestCreateMintsURLSafeToken(t *testing.T) {
	f := newFixture(t)
	inv := f.mustCreate(t, nil, nil)

	if len(inv.Token) != 43 {
		t.Fatalf("token length = %d, want 43", len(inv.Token))
	}
	if !inv.IsActive {
		t.Fatal("new invitation should be active")
	}
	if inv.TimesUsed != 0 {
		t.Fatalf("times_used = %d, want 0", inv.TimesUsed)
	}
	want := "https://rally.example.com/register?invite=" + inv.Token
	if inv.InvitationURL != want {
		t.Fatalf("invitation_url = %q, want %q", inv.InvitationURL, want)
	}
}

func TestCreateRegeneratesOnTokenCollision(t *testing.T) {
	f := newFixture(t)
	f.store.conflicts = 1
	inv := f.mustCreate(t, nil, nil)
	if inv.Token == "" {
		t.Fatal("expected a token after regeneration")
	}

	// A second consecutive collision is surfaced, not retried forever.
	f.store.conflicts = 2
	_, err := f.svc.Create(context.Background(), CreateParams{EventID: f.eventID, CreatedBy: f.adminID})
	if !errors.Is(err, ErrTokenConflict) {
		t.Fatalf("got %v, want ErrTokenConflict", err)
	}
}

func TestRedeemSuccess(t *testing.T) {
	f := newFixture(t)
	inv := f.mustCreate(t, intPtr(5), nil)

	result, err := f.svc.Redeem(context.Background(), inv.Token, registration("alice"), UsageMeta{IPAddress: "10.0.0.1", UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if result.Participant.Username != "alice" {
		t.Fatalf("participant username = %q", result.Participant.Username)
	}
	if result.Participant.Role != models.RoleUser {
		t.Fatalf("participant role = %q, want user", result.Participant.Role)
	}
	if result.Invitation.TimesUsed != 1 {
		t.Fatalf("times_used = %d, want 1", result.Invitation.TimesUsed)
	}
	if got := len(f.events.members[f.eventID]); got != 1 {
		t.Fatalf("event members = %d, want 1", got)
	}
	if len(f.ledger.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(f.ledger.rows))
	}
	row := f.ledger.rows[0]
	if row.IPAddress != "10.0.0.1" || row.UserAgent != "test-agent" {
		t.Fatalf("audit meta not recorded: %+v", row)
	}
	if row.EventID != f.eventID {
		t.Fatal("ledger row must carry the event id")
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Redeem(context.Background(), "no-such-token", registration("bob"), UsageMeta{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRedeemTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deactivated := f.mustCreate(t, nil, nil)
	if err := f.svc.Deactivate(ctx, deactivated.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	_, err := f.svc.Redeem(ctx, deactivated.Token, registration("carol"), UsageMeta{})
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("deactivated: got %v, want ErrInactive", err)
	}
	cur, _ := f.store.GetByID(ctx, deactivated.ID)
	if cur.TimesUsed != 0 {
		t.Fatalf("failed attempt consumed quota: times_used = %d", cur.TimesUsed)
	}

	soon := time.Now().Add(30 * time.Millisecond)
	expiring := f.mustCreate(t, nil, &soon)
	time.Sleep(60 * time.Millisecond)
	_, err = f.svc.Redeem(ctx, expiring.Token, registration("dave"), UsageMeta{})
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expired: got %v, want ErrExpired", err)
	}

	capped := f.mustCreate(t, intPtr(1), nil)
	if _, err := f.svc.Redeem(ctx, capped.Token, registration("erin"), UsageMeta{}); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	_, err = f.svc.Redeem(ctx, capped.Token, registration("frank"), UsageMeta{})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("capped: got %v, want ErrExhausted", err)
	}
}

func TestRedeemReactivatedStaysGatedByExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := time.Now().Add(30 * time.Millisecond)
	inv := f.mustCreate(t, nil, &soon)

	if err := f.svc.Deactivate(ctx, inv.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if err := f.svc.Activate(ctx, inv.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// Reactivation flips the admin flag but cannot resurrect an expired link.
	_, err := f.svc.Redeem(ctx, inv.Token, registration("gina"), UsageMeta{})
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}
}

func TestRedeemDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.mustCreate(t, nil, nil)

	if _, err := f.svc.Redeem(ctx, inv.Token, registration("henry"), UsageMeta{}); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	_, err := f.svc.Redeem(ctx, inv.Token, registration("henry"), UsageMeta{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	cur, _ := f.store.GetByID(ctx, inv.ID)
	if cur.TimesUsed != 1 {
		t.Fatalf("duplicate username consumed quota: times_used = %d", cur.TimesUsed)
	}
}

func TestRedeemConcurrentExactlyMaxUses(t *testing.T) {
	f := newFixture(t)
	const quota = 5
	const attempts = 20
	inv := f.mustCreate(t, intPtr(quota), nil)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.svc.Redeem(context.Background(), inv.Token, registration(fmt.Sprintf("racer%02d", n)), UsageMeta{})
		}(i)
	}
	wg.Wait()

	won, lost := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrExhausted):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != quota {
		t.Fatalf("successes = %d, want exactly %d", won, quota)
	}
	if lost != attempts-quota {
		t.Fatalf("exhausted = %d, want %d", lost, attempts-quota)
	}

	cur, _ := f.store.GetByID(context.Background(), inv.ID)
	if cur.TimesUsed != quota {
		t.Fatalf("times_used = %d, want %d", cur.TimesUsed, quota)
	}
	if len(f.ledger.rows) != quota {
		t.Fatalf("ledger rows = %d, want %d", len(f.ledger.rows), quota)
	}
	if got := len(f.events.members[f.eventID]); got != quota {
		t.Fatalf("event members = %d, want %d", got, quota)
	}
}

func TestRedeemReleasesQuotaWhenJoinFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.mustCreate(t, intPtr(3), nil)
	f.events.failAdd = true

	_, err := f.svc.Redeem(ctx, inv.Token, registration("ivy"), UsageMeta{})
	if err == nil {
		t.Fatal("expected failure when membership store is down")
	}
	cur, _ := f.store.GetByID(ctx, inv.ID)
	if cur.TimesUsed != 0 {
		t.Fatalf("quota not released: times_used = %d", cur.TimesUsed)
	}
	if len(f.participants.deleted) != 1 {
		t.Fatalf("orphan participant not cleaned up: deleted = %d", len(f.participants.deleted))
	}
	if len(f.ledger.rows) != 0 {
		t.Fatal("no ledger row should exist for a failed redemption")
	}

	// The released slot is usable once the collaborator recovers.
	f.events.failAdd = false
	if _, err := f.svc.Redeem(ctx, inv.Token, registration("ivy"), UsageMeta{}); err != nil {
		t.Fatalf("redeem after recovery: %v", err)
	}
}

func TestRedeemReleasesQuotaWhenLedgerFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.mustCreate(t, intPtr(1), nil)
	f.ledger.failAppend = true

	_, err := f.svc.Redeem(ctx, inv.Token, registration("jack"), UsageMeta{})
	if err == nil {
		t.Fatal("expected failure when ledger is down")
	}
	cur, _ := f.store.GetByID(ctx, inv.ID)
	if cur.TimesUsed != 0 {
		t.Fatalf("quota not released: times_used = %d", cur.TimesUsed)
	}
}

func TestUpdateLoweringCapFreezesInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.mustCreate(t, intPtr(5), nil)

	if _, err := f.svc.Redeem(ctx, inv.Token, registration("kate"), UsageMeta{}); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if _, err := f.svc.Redeem(ctx, inv.Token, registration("liam"), UsageMeta{}); err != nil {
		t.Fatalf("second redemption: %v", err)
	}

	updated, err := f.svc.Update(ctx, inv.ID, UpdateParams{MaxUses: intPtr(1)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TimesUsed != 2 {
		t.Fatalf("update reset times_used: %d", updated.TimesUsed)
	}
	if !updated.IsMaxedOut {
		t.Fatal("lowered cap below usage must surface is_maxed_out")
	}
	_, err = f.svc.Redeem(ctx, inv.Token, registration("mona"), UsageMeta{})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("got %v, want ErrExhausted", err)
	}
}

func TestUpdateClearsOmittedConstraints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)
	inv := f.mustCreate(t, intPtr(2), &future)

	updated, err := f.svc.Update(ctx, inv.ID, UpdateParams{Description: "open house"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.MaxUses != nil || updated.ExpiresAt != nil {
		t.Fatal("omitted constraints must clear to unlimited")
	}
	if updated.Description != "open house" {
		t.Fatalf("description = %q", updated.Description)
	}
}

func TestGetByTokenIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.mustCreate(t, intPtr(1), nil)

	for i := 0; i < 3; i++ {
		got, err := f.svc.GetByToken(ctx, inv.Token)
		if err != nil {
			t.Fatalf("GetByToken: %v", err)
		}
		if got.TimesUsed != 0 {
			t.Fatalf("lookup consumed quota: times_used = %d", got.TimesUsed)
		}
	}
}

func TestComputeEventStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := f.mustCreate(t, nil, nil)
	capped := f.mustCreate(t, intPtr(1), nil)

	if _, err := f.svc.Redeem(ctx, open.Token, registration("nina"), UsageMeta{}); err != nil {
		t.Fatalf("redeem open: %v", err)
	}
	if _, err := f.svc.Redeem(ctx, open.Token, registration("omar"), UsageMeta{}); err != nil {
		t.Fatalf("redeem open again: %v", err)
	}
	if _, err := f.svc.Redeem(ctx, capped.Token, registration("pete"), UsageMeta{}); err != nil {
		t.Fatalf("redeem capped: %v", err)
	}

	stats, err := f.svc.ComputeEventStats(ctx, f.eventID)
	if err != nil {
		t.Fatalf("ComputeEventStats: %v", err)
	}
	if stats.EventName != "Spring Tournament" {
		t.Fatalf("event name = %q", stats.EventName)
	}
	if stats.TotalInvitations != 2 {
		t.Fatalf("total_invitations = %d, want 2", stats.TotalInvitations)
	}
	// The capped invitation is exhausted, so only the open one counts as active.
	if stats.ActiveInvitations != 1 {
		t.Fatalf("active_invitations = %d, want 1", stats.ActiveInvitations)
	}
	if stats.TotalRegistrations != 3 {
		t.Fatalf("total_registrations = %d, want 3", stats.TotalRegistrations)
	}
	sum := 0
	for _, n := range stats.RegistrationsByDay {
		sum += n
	}
	if sum != stats.TotalRegistrations {
		t.Fatalf("by-day sum = %d, want %d", sum, stats.TotalRegistrations)
	}
	if len(stats.RecentUsages) != 3 {
		t.Fatalf("recent_usages = %d, want 3", len(stats.RecentUsages))
	}

	_, err = f.svc.ComputeEventStats(ctx, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown event: got %v, want ErrNotFound", err)
	}
}

func TestDeleteDetachesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.mustCreate(t, nil, nil)

	if _, err := f.svc.Redeem(ctx, inv.Token, registration("quinn"), UsageMeta{}); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := f.svc.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if errDel := f.svc.Delete(ctx, inv.ID); !errors.Is(errDel, ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", errDel)
	}

	// Ledger rows survive the delete and still count toward event stats.
	total, err := f.ledger.CountUsagesByEvent(ctx, f.eventID)
	if err != nil {
		t.Fatalf("count usages: %v", err)
	}
	if total != 1 {
		t.Fatalf("usages after delete = %d, want 1", total)
	}
}
