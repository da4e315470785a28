package domain

import (
	"context"
	"time"
)

// TextGenerator produces completion text from a prompt pair. Implemented by
// the gateway client; services depend on this interface so tests can swap in
// fakes.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single text-generation call. Zero-valued tuning
// fields fall back to the client defaults.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	History      []ChatMessage
	MaxTokens    int
	Temperature  float64
	Cacheable    bool
}

// PredictionStore persists prediction rows and serves history queries.
type PredictionStore interface {
	Create(ctx context.Context, rec *PredictionRecord) error
	GetByID(ctx context.Context, userID, id int64) (*PredictionRecord, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*PredictionRecord, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	OldestIDs(ctx context.Context, userID int64, n int) ([]int64, error)
	DeleteWithFeedback(ctx context.Context, ids []int64) error
	RecentSince(ctx context.Context, userID int64, since time.Time, limit int) ([]*PredictionRecord, error)
}

// NotificationStore persists notifications and serves per-user views.
// Broadcast rows (nil user ID) are visible to everyone but owned by no one.
type NotificationStore interface {
	Create(ctx context.Context, n *Notification) error
	ListVisible(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	DeleteOwned(ctx context.Context, userID, id int64) error
}

// UserStore serves account rows for the identity middleware and admin views.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, p *PartialProfile) (*User, error)
	ListNonAdmins(ctx context.Context) ([]*User, error)
	CountAll(ctx context.Context) (int64, error)
}
