package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeGenerator is a scriptable domain.TextGenerator that records every
// request it receives. Safe for concurrent calls.
type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	respond  func(req domain.GenerateRequest) (string, error)
	requests []domain.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakePredictionStore keeps prediction rows in memory, ordered by creation.
type fakePredictionStore struct {
	nextID    int64
	records   []*domain.PredictionRecord
	feedback  map[int64]bool
	createErr error
	deleted   [][]int64
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{nextID: 1, feedback: map[int64]bool{}}
}

func (f *fakePredictionStore) Create(_ context.Context, rec *domain.PredictionRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	rec.ID = f.nextID
	f.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakePredictionStore) GetByID(_ context.Context, userID, id int64) (*domain.PredictionRecord, error) {
	for _, r := range f.records {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePredictionStore) ListByUser(_ context.Context, userID int64, limit int) ([]*domain.PredictionRecord, error) {
	var out []*domain.PredictionRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakePredictionStore) CountByUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, r := range f.records {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakePredictionStore) OldestIDs(_ context.Context, userID int64, n int) ([]int64, error) {
	var ids []int64
	for _, r := range f.records {
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

func (f *fakePredictionStore) DeleteWithFeedback(_ context.Context, ids []int64) error {
	f.deleted = append(f.deleted, ids)
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
		delete(f.feedback, id)
	}
	kept := f.records[:0]
	for _, r := range f.records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

func (f *fakePredictionStore) RecentSince(_ context.Context, userID int64, since time.Time, limit int) ([]*domain.PredictionRecord, error) {
	var out []*domain.PredictionRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := f.records[i]
		if r.UserID == userID && r.CreatedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeNotificationStore records created notifications.
type fakeNotificationStore struct {
	nextID    int64
	created   []*domain.Notification
	createErr error
}

func (f *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = time.Now()
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationStore) ListVisible(_ context.Context, userID int64, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range f.created {
		if len(out) >= limit {
			break
		}
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

func (f *fakeNotificationStore) UnreadCount(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range f.created {
		if (n.UserID == nil || *n.UserID == userID) && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, userID, id int64) error {
	for _, n := range f.created {
		if n.ID == id && n.UserID != nil && *n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var marked int64
	for _, n := range f.created {
		if n.UserID != nil && *n.UserID == userID && !n.IsRead {
			n.IsRead = true
			marked++
		}
	}
	return marked, nil
}

func (f *fakeNotificationStore) DeleteOwned(_ context.Context, userID, id int64) error {
	for i, n := range f.created {
		if n.ID == id && n.UserID != nil && *n.UserID == userID {
			f.created = append(f.created[:i], f.created[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// fakeUserStore serves a fixed user list.
type fakeUserStore struct {
	users   []*domain.User
	listErr error
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id int64, _ *domain.PartialProfile) (*domain.User, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeUserStore) ListNonAdmins(_ context.Context) ([]*domain.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.User
	for _, u := range f.users {
		if !u.IsAdmin && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) CountAll(_ context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

// fakeFeedbackStore serves canned feedback rows keyed by prediction ID.
type fakeFeedbackStore struct {
	byPrediction map[int64]*domain.Feedback
	listErr      error
}

func (f *fakeFeedbackStore) Create(_ context.Context, fb *domain.Feedback) error {
	if f.byPrediction == nil {
		f.byPrediction = map[int64]*domain.Feedback{}
	}
	if _, ok := f.byPrediction[fb.PredictionID]; ok {
		return domain.ErrDuplicateFeedback
	}
	f.byPrediction[fb.PredictionID] = fb
	return nil
}

func (f *fakeFeedbackStore) GetByPredictionID(_ context.Context, predictionID int64) (*domain.Feedback, error) {
	return f.byPrediction[predictionID], nil
}

func (f *fakeFeedbackStore) ListByPredictionIDs(_ context.Context, predictionIDs []int64) (map[int64]*domain.Feedback, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := map[int64]*domain.Feedback{}
	for _, id := range predictionIDs {
		if fb, ok := f.byPrediction[id]; ok {
			out[id] = fb
		}
	}
	return out, nil
}

func (f *fakeFeedbackStore) SummaryForPredictions(_ context.Context, predictionIDs []int64) (*domain.FeedbackSummary, error) {
	summary := &domain.FeedbackSummary{}
	ratingSum, ratingCount := 0, 0
	for _, id := range predictionIDs {
		fb, ok := f.byPrediction[id]
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

func (f *fakeFeedbackStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.byPrediction)), nil
}

func (f *fakeFeedbackStore) Close() error { return nil }
