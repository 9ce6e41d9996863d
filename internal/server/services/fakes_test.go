package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/keylock"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/config"
	"github.com/dmitrijs2005/pagenotes/internal/server/metrics"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/ratings"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/reports"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/statuschanges"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for all repositories. It ignores the
// DBTX it is bound to; transaction boundaries are asserted through sqlmock.
type fakeStore struct {
	mu sync.Mutex

	clock *fakeClock

	users   map[string]*models.User
	notes   map[string]*models.Note
	ratings []*models.Rating
	changes []*models.NoteStatusChange
	reports []*models.Report
	version []*models.NoteVersion

	ratingSeq  int64
	changeSeq  int64
	versionSeq int64

	// errUpdateKarma, when set, is returned by UpdateKarma.
	errUpdateKarma error
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeStore(clock *fakeClock) *fakeStore {
	return &fakeStore{
		clock: clock,
		users: map[string]*models.User{},
		notes: map[string]*models.Note{},
	}
}

func (s *fakeStore) addUser(id string, reputation float64) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, ExternalID: "ext-" + id, Handle: id, ReputationScore: reputation, CreatedAt: s.clock.Now()}
	s.users[id] = u
	return u
}

func (s *fakeStore) addNote(id, authorID, pageKey string) *models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &models.Note{ID: id, AuthorID: authorID, PageKey: pageKey, Body: "body of " + id, SelectedText: "text", CreatedAt: s.clock.Now()}
	s.notes[id] = n
	return n
}

func (s *fakeStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *fakeStore) note(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, false
	}
	return *n, true
}

func (s *fakeStore) changesFor(noteID string) []models.NoteStatusChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.NoteStatusChange
	for _, c := range s.changes {
		if c.NoteID == noteID {
			out = append(out, *c)
		}
	}
	return out
}

// snapshot copies every user and note for equality checks.
func (s *fakeStore) snapshot() (map[string]models.User, map[string]models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := make(map[string]models.User, len(s.users))
	for id, u := range s.users {
		us[id] = *u
	}
	ns := make(map[string]models.Note, len(s.notes))
	for id, n := range s.notes {
		ns[id] = *n
	}
	return us, ns
}

// --- users ---

type fakeUsers struct{ s *fakeStore }

func (r fakeUsers) UpsertByExternalID(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.ExternalID == u.ExternalID {
			existing.Handle = u.Handle
			existing.DisplayName = u.DisplayName
			existing.FollowerCount = u.FollowerCount
			existing.AccountCreatedAt = u.AccountCreatedAt
			cp := *existing
			return &cp, nil
		}
	}
	stored := *u
	stored.CreatedAt = r.s.clock.Now()
	r.s.users[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (r fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r fakeUsers) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r fakeUsers) update(id string, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r fakeUsers) UpdateAccountSignals(_ context.Context, id string, followers *int, createdAt *time.Time) error {
	return r.update(id, func(u *models.User) {
		u.FollowerCount = followers
		u.AccountCreatedAt = createdAt
	})
}

func (r fakeUsers) UpdateReputation(_ context.Context, id string, score float64) error {
	return r.update(id, func(u *models.User) { u.ReputationScore = score })
}

func (r fakeUsers) UpdateRatingImpact(_ context.Context, id string, impact float64) error {
	return r.update(id, func(u *models.User) { u.RatingImpact = impact })
}

func (r fakeUsers) UpdateKarma(_ context.Context, id string, karma float64) error {
	if r.s.errUpdateKarma != nil {
		return r.s.errUpdateKarma
	}
	return r.update(id, func(u *models.User) { u.Karma = karma })
}

// --- notes ---

type fakeNotes struct{ s *fakeStore }

func (r fakeNotes) Create(_ context.Context, n *models.Note) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[n.AuthorID]; !ok {
		return nil, common.ErrorNotFound
	}
	stored := *n
	stored.CreatedAt = r.s.clock.Now()
	r.s.notes[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (r fakeNotes) GetByID(_ context.Context, id string) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *n
	return &cp, nil
}

func (r fakeNotes) GetForUpdate(ctx context.Context, id string) (*models.Note, error) {
	return r.GetByID(ctx, id)
}

func (r fakeNotes) ListByPage(_ context.Context, pageKey string, maxReports int) ([]*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Note
	for _, n := range r.s.notes {
		if n.PageKey == pageKey && n.ReportsCount < maxReports {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r fakeNotes) ListByAuthor(_ context.Context, authorID string) ([]*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Note
	for _, n := range r.s.notes {
		if n.AuthorID == authorID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r fakeNotes) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.notes, id)

	keepRatings := r.s.ratings[:0]
	for _, rt := range r.s.ratings {
		if rt.NoteID != id {
			keepRatings = append(keepRatings, rt)
		}
	}
	r.s.ratings = keepRatings

	keepChanges := r.s.changes[:0]
	for _, c := range r.s.changes {
		if c.NoteID != id {
			keepChanges = append(keepChanges, c)
		}
	}
	r.s.changes = keepChanges

	keepReports := r.s.reports[:0]
	for _, rp := range r.s.reports {
		if rp.NoteID != id {
			keepReports = append(keepReports, rp)
		}
	}
	r.s.reports = keepReports
	return nil
}

func (r fakeNotes) update(id string, fn func(n *models.Note)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(n)
	return nil
}

func (r fakeNotes) UpdateCounts(_ context.Context, id string, t models.Tally) error {
	return r.update(id, func(n *models.Note) { n.Tally = t })
}

func (r fakeNotes) UpdateStatus(_ context.Context, id string, status models.NoteStatus) error {
	return r.update(id, func(n *models.Note) { n.Status = status })
}

func (r fakeNotes) UpdateBody(_ context.Context, id string, body string, editedAt time.Time) error {
	return r.update(id, func(n *models.Note) {
		n.Body = body
		n.EditedAt = &editedAt
	})
}

func (r fakeNotes) TalliesByAuthor(_ context.Context, authorID string) ([]models.Tally, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Tally
	for _, n := range r.s.notes {
		if n.AuthorID == authorID {
			out = append(out, n.Tally)
		}
	}
	return out, nil
}

func (r fakeNotes) StatsByAuthor(_ context.Context, authorID string, maxReports int) (*models.NoteStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := &models.NoteStats{}
	for _, n := range r.s.notes {
		if n.AuthorID != authorID {
			continue
		}
		st.Total++
		switch n.Status {
		case models.StatusHelpful:
			st.Helpful++
		case models.StatusNotHelpful:
			st.NotHelpful++
		default:
			st.Pending++
		}
		if n.ReportsCount < maxReports {
			st.Public++
		}
	}
	return st, nil
}

func (r fakeNotes) IncrementReports(_ context.Context, id string) (int, error) {
	var count int
	err := r.update(id, func(n *models.Note) {
		n.ReportsCount++
		count = n.ReportsCount
	})
	return count, err
}

func (r fakeNotes) ResetReports(_ context.Context, id string) error {
	return r.update(id, func(n *models.Note) { n.ReportsCount = 0 })
}

func (r fakeNotes) AddVersion(_ context.Context, noteID string, previousBody string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.versionSeq++
	r.s.version = append(r.s.version, &models.NoteVersion{
		ID:           r.s.versionSeq,
		NoteID:       noteID,
		PreviousBody: previousBody,
		CreatedAt:    r.s.clock.Now(),
	})
	return nil
}

func (r fakeNotes) ListVersions(_ context.Context, noteID string) ([]*models.NoteVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.NoteVersion
	for i := len(r.s.version) - 1; i >= 0; i-- {
		if v := r.s.version[i]; v.NoteID == noteID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- ratings ---

type fakeRatings struct{ s *fakeStore }

func (r fakeRatings) Upsert(_ context.Context, userID, noteID string, h models.Helpfulness) (*models.Rating, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rt := range r.s.ratings {
		if rt.UserID == userID && rt.NoteID == noteID {
			rt.Helpfulness = h
			rt.UpdatedAt = r.s.clock.Now()
			cp := *rt
			return &cp, false, nil
		}
	}
	if _, ok := r.s.users[userID]; !ok {
		return nil, false, common.ErrorNotFound
	}
	if _, ok := r.s.notes[noteID]; !ok {
		return nil, false, common.ErrorNotFound
	}
	r.s.ratingSeq++
	rt := &models.Rating{
		ID:          r.s.ratingSeq,
		UserID:      userID,
		NoteID:      noteID,
		Helpfulness: h,
		CreatedAt:   r.s.clock.Now(),
		UpdatedAt:   r.s.clock.Now(),
	}
	r.s.ratings = append(r.s.ratings, rt)
	cp := *rt
	return &cp, true, nil
}

func (r fakeRatings) Delete(_ context.Context, userID, noteID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rt := range r.s.ratings {
		if rt.UserID == userID && rt.NoteID == noteID {
			r.s.ratings = append(r.s.ratings[:i], r.s.ratings[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r fakeRatings) Get(_ context.Context, userID, noteID string) (*models.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rt := range r.s.ratings {
		if rt.UserID == userID && rt.NoteID == noteID {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r fakeRatings) CountByNote(_ context.Context, noteID string) (models.Tally, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var t models.Tally
	for _, rt := range r.s.ratings {
		if rt.NoteID != noteID {
			continue
		}
		switch rt.Helpfulness {
		case models.HelpfulnessYes:
			t.Helpful++
		case models.HelpfulnessSomewhat:
			t.Somewhat++
		case models.HelpfulnessNo:
			t.NotHelpful++
		}
	}
	return t, nil
}

func (r fakeRatings) RaterIDs(_ context.Context, noteID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, rt := range r.s.ratings {
		if rt.NoteID == noteID {
			ids = append(ids, rt.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r fakeRatings) DecidedRatings(_ context.Context, userID string) ([]models.DecidedRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.DecidedRating
	for _, rt := range r.s.ratings {
		if rt.UserID != userID {
			continue
		}
		n, ok := r.s.notes[rt.NoteID]
		if !ok || !n.Status.Decided() {
			continue
		}
		rank := 0
		for _, other := range r.s.ratings {
			if other.NoteID == rt.NoteID && other.ID <= rt.ID {
				rank++
			}
		}
		out = append(out, models.DecidedRating{
			NoteID:      rt.NoteID,
			Helpfulness: rt.Helpfulness,
			NoteStatus:  n.Status,
			Rank:        rank,
		})
	}
	return out, nil
}

func (r fakeRatings) ByUserOnPage(_ context.Context, userID, pageKey string) (map[string]models.Helpfulness, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]models.Helpfulness{}
	for _, rt := range r.s.ratings {
		if n, ok := r.s.notes[rt.NoteID]; ok && rt.UserID == userID && n.PageKey == pageKey {
			out[rt.NoteID] = rt.Helpfulness
		}
	}
	return out, nil
}

func (r fakeRatings) ListByUser(_ context.Context, userID string) ([]*models.UserRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.UserRating
	for _, rt := range r.s.ratings {
		n, ok := r.s.notes[rt.NoteID]
		if !ok || rt.UserID != userID {
			continue
		}
		out = append(out, &models.UserRating{
			Rating:       *rt,
			NoteBody:     n.Body,
			NoteAuthorID: n.AuthorID,
			NoteStatus:   n.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r fakeRatings) CountByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, rt := range r.s.ratings {
		if rt.UserID == userID {
			n++
		}
	}
	return n, nil
}

// --- status changes ---

type fakeChanges struct{ s *fakeStore }

func (r fakeChanges) Append(_ context.Context, c *models.NoteStatusChange) (*models.NoteStatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.changeSeq++
	stored := *c
	stored.ID = r.s.changeSeq
	stored.CreatedAt = r.s.clock.Now()
	r.s.changes = append(r.s.changes, &stored)
	cp := stored
	return &cp, nil
}

func (r fakeChanges) ListByNote(_ context.Context, noteID string) ([]*models.NoteStatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.NoteStatusChange
	for _, c := range r.s.changes {
		if c.NoteID == noteID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- reports ---

type fakeReports struct{ s *fakeStore }

func (r fakeReports) Create(_ context.Context, rp *models.Report) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[rp.NoteID]; !ok {
		return nil, common.ErrorNotFound
	}
	for _, existing := range r.s.reports {
		if existing.UserID == rp.UserID && existing.NoteID == rp.NoteID {
			return nil, common.ErrorDuplicate
		}
	}
	stored := *rp
	stored.CreatedAt = r.s.clock.Now()
	r.s.reports = append(r.s.reports, &stored)
	cp := stored
	return &cp, nil
}

func (r fakeReports) ListRecent(_ context.Context, limit int) ([]*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Report
	for i := len(r.s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.s.reports[i]
		out = append(out, &cp)
	}
	return out, nil
}

// fakeManager vends the fake repositories regardless of the DBTX.
type fakeManager struct{ s *fakeStore }

func (m fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m fakeManager) Users(dbx.DBTX) users.Repository { return fakeUsers{m.s} }

func (m fakeManager) Notes(dbx.DBTX) notes.Repository { return fakeNotes{m.s} }

func (m fakeManager) Ratings(dbx.DBTX) ratings.Repository { return fakeRatings{m.s} }

func (m fakeManager) StatusChanges(dbx.DBTX) statuschanges.Repository { return fakeChanges{m.s} }

func (m fakeManager) Reports(dbx.DBTX) reports.Repository { return fakeReports{m.s} }

// testEnv wires every service over one fake store and one sqlmock DB.
type testEnv struct {
	mock       sqlmock.Sqlmock
	clock      *fakeClock
	store      *fakeStore
	metrics    *metrics.Metrics
	cfg        *config.Config
	ratings    *RatingService
	notes      *NoteService
	moderation *ModerationService
	users      *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newFakeStore(clock)
	m := fakeManager{store}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	mx := metrics.New()
	locks := keylock.New()
	logger := logging.Nop()

	rs := NewRatingService(db, m, locks, logger, mx, cfg)
	rs.now = clock.Now
	ns := NewNoteService(db, m, locks, logger, cfg)
	ns.now = clock.Now
	us := NewUserService(db, m, logger, cfg)
	us.now = clock.Now

	return &testEnv{
		mock:       mock,
		clock:      clock,
		store:      store,
		metrics:    mx,
		cfg:        cfg,
		ratings:    rs,
		notes:      ns,
		moderation: NewModerationService(db, m, ns, logger),
		users:      us,
	}
}

// expectTx registers one committed transaction.
func (e *testEnv) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

// expectRollback registers one rolled back transaction.
func (e *testEnv) expectRollback() {
	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
}

func (e *testEnv) verify(t *testing.T) {
	t.Helper()
	require.NoError(t, e.mock.ExpectationsWereMet())
}

// rate submits a vote inside an expected committed transaction.
func (e *testEnv) rate(t *testing.T, userID, noteID string, h models.Helpfulness) *RatingResult {
	t.Helper()
	e.expectTx()
	res, err := e.ratings.SubmitRating(context.Background(), userID, noteID, h)
	require.NoError(t, err)
	return res
}
