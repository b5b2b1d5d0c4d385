package service

import (
	"context"
	"time"
)

// Collaborators implemented in internal/platform. Kept narrow so services can be
// tested with in-memory fakes.

type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}

type ScoreEnqueuer interface {
	Enqueue(ctx context.Context, userID string) error
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type URLSigner interface {
	SignedURL(bucket, objectPath string) (string, error)
	PublicURL(bucket, objectPath string) string
	ObjectPath(bucket, rawURL string) (string, bool)
}

type Mailer interface {
	SendConfirmation(ctx context.Context, to, name, link string) error
}

// VisibilityGate answers whether riddles may be served to ordinary players.
type VisibilityGate interface {
	RiddlesVisible(ctx context.Context) (bool, error)
}
