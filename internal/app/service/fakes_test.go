package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// In-memory stand-ins for the pg repositories and platform clients. Transactions
// come from sqlmock so commit and rollback are still observable.

func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeRiddleRepo struct {
	mu      sync.Mutex
	riddles map[int64]*model.Riddle
	nextID  int64
}

func newFakeRiddleRepo(riddles ...model.Riddle) *fakeRiddleRepo {
	r := &fakeRiddleRepo{riddles: map[int64]*model.Riddle{}, nextID: 100}
	for i := range riddles {
		rd := riddles[i]
		r.riddles[rd.ID] = &rd
	}
	return r
}

func (r *fakeRiddleRepo) sorted(activeOnly bool) []*model.Riddle {
	var out []*model.Riddle
	for _, rd := range r.riddles {
		if activeOnly && !rd.IsActive {
			continue
		}
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out
}

func (r *fakeRiddleRepo) Create(_ context.Context, _ *sql.Tx, rd *model.Riddle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.riddles {
		if existing.OrderNumber == rd.OrderNumber {
			return common.ErrConflict
		}
	}
	r.nextID++
	rd.ID = r.nextID
	cp := *rd
	r.riddles[rd.ID] = &cp
	return nil
}

func (r *fakeRiddleRepo) Update(_ context.Context, _ *sql.Tx, rd *model.Riddle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.riddles[rd.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *rd
	r.riddles[rd.ID] = &cp
	return nil
}

func (r *fakeRiddleRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.riddles[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.riddles, id)
	return nil
}

func (r *fakeRiddleRepo) FindByID(_ context.Context, _ *sql.Tx, id int64) (*model.Riddle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd, ok := r.riddles[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rd
	return &cp, nil
}

func (r *fakeRiddleRepo) FindByOrderNumber(_ context.Context, orderNumber int) (*model.Riddle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rd := range r.riddles {
		if rd.OrderNumber == orderNumber {
			cp := *rd
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeRiddleRepo) List(_ context.Context) ([]model.Riddle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Riddle{}
	for _, rd := range r.sorted(false) {
		out = append(out, *rd)
	}
	return out, nil
}

func (r *fakeRiddleRepo) SetReferenceImage(_ context.Context, id int64, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd, ok := r.riddles[id]
	if !ok {
		return common.ErrNotFound
	}
	rd.ReferenceImageURL = &url
	return nil
}

func (r *fakeRiddleRepo) FirstActive(_ context.Context) (*model.Riddle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := r.sorted(true)
	if len(active) == 0 {
		return nil, common.ErrNotFound
	}
	cp := *active[0]
	return &cp, nil
}

func (r *fakeRiddleRepo) NextActiveAfter(_ context.Context, _ *sql.Tx, orderNumber int) (*model.Riddle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rd := range r.sorted(true) {
		if rd.OrderNumber > orderNumber {
			cp := *rd
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeRiddleRepo) Position(_ context.Context, orderNumber int) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := r.sorted(true)
	pos := 0
	for _, rd := range active {
		if rd.OrderNumber <= orderNumber {
			pos++
		}
	}
	return pos, len(active), nil
}

type fakeProgressRepo struct {
	mu       sync.Mutex
	rows     map[string]*model.UserProgress
	hintErr  error
	hintCall int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: map[string]*model.UserProgress{}}
}

func (r *fakeProgressRepo) get(userID string) *model.UserProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[userID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *fakeProgressRepo) CreateIfAbsent(_ context.Context, p *model.UserProgress) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.UserID]; ok {
		return false, nil
	}
	cp := *p
	cp.Hint1Visible, cp.Hint2Visible = false, false
	r.rows[p.UserID] = &cp
	return true, nil
}

func (r *fakeProgressRepo) FindByUserID(_ context.Context, _ *sql.Tx, userID string) (*model.UserProgress, error) {
	if p := r.get(userID); p != nil {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeProgressRepo) MarkHintsVisible(_ context.Context, userID string, riddleID int64, hints model.HintVisibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hintCall++
	if r.hintErr != nil {
		return r.hintErr
	}
	p, ok := r.rows[userID]
	if !ok || p.CurrentRiddleID != riddleID {
		return nil
	}
	p.Hint1Visible = p.Hint1Visible || hints.Hint1
	p.Hint2Visible = p.Hint2Visible || hints.Hint2
	return nil
}

func (r *fakeProgressRepo) Advance(_ context.Context, _ *sql.Tx, userID string, nextRiddleID int64, start time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[userID]
	if !ok {
		return common.ErrNotFound
	}
	p.CurrentRiddleID = nextRiddleID
	p.Hint1Visible, p.Hint2Visible = false, false
	p.StartTime = start
	p.CompletedAt = nil
	return nil
}

func (r *fakeProgressRepo) MarkComplete(_ context.Context, _ *sql.Tx, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[userID]
	if !ok {
		return common.ErrNotFound
	}
	p.CompletedAt = &at
	return nil
}

type fakeSubmissionRepo struct {
	mu        sync.Mutex
	rows      []*model.Submission
	createErr error
	pending   []model.PendingSubmission
	decideErr error
}

func (r *fakeSubmissionRepo) Create(_ context.Context, _ *sql.Tx, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.rows {
		if existing.UserID == s.UserID && existing.RiddleID == s.RiddleID {
			return common.ErrAlreadySubmitted
		}
	}
	s.SubmittedAt = time.Now()
	cp := *s
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeSubmissionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *fakeSubmissionRepo) Exists(_ context.Context, userID string, riddleID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.UserID == userID && s.RiddleID == riddleID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSubmissionRepo) FindByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeSubmissionRepo) ListPending(_ context.Context, limit, offset int) ([]model.PendingSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.pending) {
		return []model.PendingSubmission{}, nil
	}
	end := offset + limit
	if end > len(r.pending) {
		end = len(r.pending)
	}
	return append([]model.PendingSubmission{}, r.pending[offset:end]...), nil
}

func (r *fakeSubmissionRepo) CountPending(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending), nil
}

func (r *fakeSubmissionRepo) Decide(_ context.Context, id string, approved bool) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decideErr != nil {
		return nil, r.decideErr
	}
	for _, s := range r.rows {
		if s.ID == id {
			if s.IsApproved != nil {
				return nil, common.ErrConflict
			}
			s.IsApproved = &approved
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeSubmissionRepo) CountApprovedByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.rows {
		if s.UserID == userID && s.IsApproved != nil && *s.IsApproved {
			n++
		}
	}
	return n, nil
}

type fakeSettingsRepo struct {
	visible bool
	reads   int
}

func (r *fakeSettingsRepo) Get(_ context.Context) (*model.AppSettings, error) {
	r.reads++
	return &model.AppSettings{ID: model.SettingsRowID, RiddlesVisible: r.visible}, nil
}

func (r *fakeSettingsRepo) SetRiddlesVisible(_ context.Context, visible bool) (*model.AppSettings, error) {
	r.visible = visible
	return &model.AppSettings{ID: model.SettingsRowID, RiddlesVisible: visible}, nil
}

type fakeLeaderboardRepo struct {
	gotLimit int
	entries  []model.LeaderboardEntry
	scores   map[string]int
}

func (r *fakeLeaderboardRepo) Top(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	r.gotLimit = limit
	return r.entries, nil
}

func (r *fakeLeaderboardRepo) UpsertScore(_ context.Context, userID string, score int) error {
	if r.scores == nil {
		r.scores = map[string]int{}
	}
	r.scores[userID] = score
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	teams map[string]*model.Team
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, teams: map[string]*model.Team{}}
}

func (r *fakeUserRepo) Create(_ context.Context, _ *sql.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return common.ErrConflict
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) CreateTeam(_ context.Context, _ *sql.Tx, t *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.teams[t.UserID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindTeamByUserID(_ context.Context, userID string) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeUserRepo) UpdateName(_ context.Context, _ *sql.Tx, userID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.Name = name
	return nil
}

func (r *fakeUserRepo) UpdateTeamName(_ context.Context, _ *sql.Tx, userID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.teams[userID]; ok {
		t.Name = name
	}
	return nil
}

func (r *fakeUserRepo) ConfirmEmail(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	if u.EmailConfirmedAt == nil {
		u.EmailConfirmedAt = &at
	}
	return nil
}

type fakeAdminRepo struct {
	admins map[string]bool
}

func (r *fakeAdminRepo) IsAdmin(_ context.Context, userID string) (bool, error) {
	return r.admins[userID], nil
}

func (r *fakeAdminRepo) Grant(_ context.Context, userID string) error {
	if r.admins == nil {
		r.admins = map[string]bool{}
	}
	r.admins[userID] = true
	return nil
}

func (r *fakeAdminRepo) Revoke(_ context.Context, userID string) error {
	if !r.admins[userID] {
		return common.ErrNotFound
	}
	delete(r.admins, userID)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, common.ErrConflict
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, bucket, objectPath string, data io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[bucket+"/"+objectPath] = b
	return nil
}

func (s *fakeStore) Get(_ context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[bucket+"/"+objectPath]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStore) Delete(_ context.Context, bucket, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucket + "/" + objectPath
	s.deleted = append(s.deleted, key)
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeSigner struct{}

func (fakeSigner) SignedURL(bucket, objectPath string) (string, error) {
	return "https://files.test/" + bucket + "/" + objectPath + "?token=signed", nil
}

func (fakeSigner) PublicURL(bucket, objectPath string) string {
	return "https://files.test/" + bucket + "/" + objectPath
}

func (fakeSigner) ObjectPath(bucket, rawURL string) (string, bool) {
	return strings.CutPrefix(rawURL, "https://files.test/"+bucket+"/")
}

type fakeScores struct {
	enqueued []string
	err      error
}

func (f *fakeScores) Enqueue(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, userID)
	return nil
}

type fakeRevoker struct {
	revoked map[string]time.Time
}

func (f *fakeRevoker) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]time.Time{}
	}
	f.revoked[jti] = expiresAt
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

type fakeMailer struct {
	to    []string
	links []string
	err   error
}

func (m *fakeMailer) SendConfirmation(_ context.Context, to, _ string, link string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}
