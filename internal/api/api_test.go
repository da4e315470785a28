package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/service"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeGen is a scriptable text generator shared by the handler tests.
type fakeGen struct {
	mu       sync.Mutex
	response string
	err      error
	requests []domain.GenerateRequest
}

func (f *fakeGen) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type memPredictions struct {
	nextID  int64
	records []*domain.PredictionRecord
}

func (m *memPredictions) Create(_ context.Context, rec *domain.PredictionRecord) error {
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memPredictions) GetByID(_ context.Context, userID, id int64) (*domain.PredictionRecord, error) {
	for _, r := range m.records {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPredictions) ListByUser(_ context.Context, userID int64, limit int) ([]*domain.PredictionRecord, error) {
	var out []*domain.PredictionRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memPredictions) CountByUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, r := range m.records {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memPredictions) OldestIDs(_ context.Context, userID int64, n int) ([]int64, error) {
	var ids []int64
	for _, r := range m.records {
		if r.UserID == userID {
			ids = append(ids, r.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids, nil
}

func (m *memPredictions) DeleteWithFeedback(_ context.Context, ids []int64) error {
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *memPredictions) RecentSince(_ context.Context, userID int64, since time.Time, limit int) ([]*domain.PredictionRecord, error) {
	var out []*domain.PredictionRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.records[i]
		if r.UserID == userID && r.CreatedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

type memNotifications struct {
	nextID int64
	items  []*domain.Notification
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = time.Now()
	m.items = append(m.items, n)
	return nil
}

func (m *memNotifications) ListVisible(_ context.Context, userID int64, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.items[i]
		if n.UserID != nil && *n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memNotifications) UnreadCount(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range m.items {
		if (n.UserID == nil || *n.UserID == userID) && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id int64) error {
	for _, n := range m.items {
		if n.ID == id && n.UserID != nil && *n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var marked int64
	for _, n := range m.items {
		if n.UserID != nil && *n.UserID == userID && !n.IsRead {
			n.IsRead = true
			marked++
		}
	}
	return marked, nil
}

func (m *memNotifications) DeleteOwned(_ context.Context, userID, id int64) error {
	for i, n := range m.items {
		if n.ID == id && n.UserID != nil && *n.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type memUsers struct {
	users map[int64]*domain.User
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id int64, p *domain.PartialProfile) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.FullName != nil {
		user.FullName = *p.FullName
	}
	if p.Age != nil {
		user.Age = p.Age
	}
	if p.Gender != nil {
		user.Gender = p.Gender
	}
	if p.Weight != nil {
		user.Weight = p.Weight
	}
	return user, nil
}

func (m *memUsers) ListNonAdmins(_ context.Context) ([]*domain.User, error) {
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*domain.User
	for _, id := range ids {
		u := m.users[id]
		if !u.IsAdmin && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) CountAll(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

type memFeedback struct {
	byPrediction map[int64]*domain.Feedback
}

func newMemFeedback() *memFeedback {
	return &memFeedback{byPrediction: map[int64]*domain.Feedback{}}
}

func (m *memFeedback) Create(_ context.Context, fb *domain.Feedback) error {
	if _, ok := m.byPrediction[fb.PredictionID]; ok {
		return domain.ErrDuplicateFeedback
	}
	fb.ID = int64(len(m.byPrediction) + 1)
	fb.CreatedAt = time.Now()
	m.byPrediction[fb.PredictionID] = fb
	return nil
}

func (m *memFeedback) GetByPredictionID(_ context.Context, predictionID int64) (*domain.Feedback, error) {
	return m.byPrediction[predictionID], nil
}

func (m *memFeedback) ListByPredictionIDs(_ context.Context, predictionIDs []int64) (map[int64]*domain.Feedback, error) {
	out := map[int64]*domain.Feedback{}
	for _, id := range predictionIDs {
		if fb, ok := m.byPrediction[id]; ok {
			out[id] = fb
		}
	}
	return out, nil
}

func (m *memFeedback) SummaryForPredictions(_ context.Context, predictionIDs []int64) (*domain.FeedbackSummary, error) {
	summary := &domain.FeedbackSummary{}
	ratingSum, ratingCount := 0, 0
	for _, id := range predictionIDs {
		fb, ok := m.byPrediction[id]
		if !ok {
			continue
		}
		summary.Total++
		if fb.IsAccurate {
			summary.AccurateCount++
		}
		if fb.Rating != nil {
			ratingSum += *fb.Rating
			ratingCount++
		}
	}
	if ratingCount > 0 {
		summary.AverageRating = float64(ratingSum) / float64(ratingCount)
	}
	return summary, nil
}

func (m *memFeedback) Count(_ context.Context) (int64, error) {
	return int64(len(m.byPrediction)), nil
}

func (m *memFeedback) Close() error { return nil }

type fakeStats struct {
	stats *domain.AdminStats
	err   error
}

func (f *fakeStats) Collect(_ context.Context) (*domain.AdminStats, error) {
	return f.stats, f.err
}

// testEnv bundles a fully wired server over in-memory stores.
type testEnv struct {
	server        *Server
	gen           *fakeGen
	predictions   *memPredictions
	notifications *memNotifications
	users         *memUsers
	feedback      *memFeedback
	stats         *fakeStats
}

func intPtr(v int) *int         { return &v }
func int64Ptr(v int64) *int64   { return &v }
func strPtr(v string) *string   { return &v }
func f64Ptr(v float64) *float64 { return &v }

func newTestEnv() *testEnv {
	logger := testLogger()
	gen := &fakeGen{response: "generated text"}
	predictions := &memPredictions{}
	notifications := &memNotifications{}
	fb := newMemFeedback()
	users := &memUsers{users: map[int64]*domain.User{
		1: {ID: 1, Email: "user@example.com", FullName: "Test User", IsActive: true},
		2: {ID: 2, Email: "admin@example.com", FullName: "Admin", IsActive: true, IsAdmin: true},
		3: {ID: 3, Email: "inactive@example.com", IsActive: false},
	}}
	stats := &fakeStats{stats: &domain.AdminStats{TotalUsers: 3}}

	classifier := service.NewSymptomClassifier(logger)
	advisor := service.NewDosageAdvisor(gen, logger)
	analyzer := service.NewFreeTextAnalyzer(gen, logger)
	retention := service.NewRetentionPolicy(predictions, 10, logger)
	pipeline := service.NewPredictionPipeline(classifier, advisor, analyzer, predictions, retention, logger)
	notifier := service.NewNotificationGenerator(predictions, fb, notifications, users, gen, logger)

	server := NewServer(Dependencies{
		Config:        &domain.Config{Logging: domain.LoggingConfig{Level: "info"}},
		Logger:        logger,
		Pipeline:      pipeline,
		Notifier:      notifier,
		Generator:     gen,
		Predictions:   predictions,
		Notifications: notifications,
		Users:         users,
		Feedback:      fb,
		Stats:         stats,
	})

	return &testEnv{
		server:        server,
		gen:           gen,
		predictions:   predictions,
		notifications: notifications,
		users:         users,
		feedback:      fb,
		stats:         stats,
	}
}

// do runs a request through the full router as the given user.
func (e *testEnv) do(method, path, userID, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func seedPrediction(e *testEnv, userID int64) *domain.PredictionRecord {
	rec := &domain.PredictionRecord{
		UserID:          userID,
		Symptoms:        []string{"fever", "cough"},
		Disease:         domain.DiseaseCommonCold,
		ConfidenceScore: 0.72,
	}
	_ = e.predictions.Create(context.Background(), rec)
	return rec
}
