package repository

import (
	"context"

	"read-check/internal/domain"
)

// ArticleUpdate carries the caller-editable article fields. Nil means
// "leave unchanged".
type ArticleUpdate struct {
	Title  *string
	IsRead *bool
}

// ArticleRepository exposes persistence operations for Article aggregates.
// Mutating operations are scoped by owner: they touch nothing when the
// article belongs to a different user.
type ArticleRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, article *domain.Article) error
	Get(ctx context.Context, id string) (*domain.Article, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Article, error)
	Update(ctx context.Context, id, userID string, update ArticleUpdate) (*domain.Article, error)
	MarkRead(ctx context.Context, id, userID string) (*domain.Article, error)
	SetContentLocation(ctx context.Context, id, location string) error
	Delete(ctx context.Context, id, userID string) (bool, error)
}
