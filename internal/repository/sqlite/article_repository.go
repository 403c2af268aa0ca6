package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"read-check/internal/domain"
	"read-check/internal/repository"
)

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	is_read INTEGER NOT NULL DEFAULT 0,
	content_location TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

const articleColumns = `id, user_id, url, title, question, answer, is_read, content_location, created_at`

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createArticlesTable); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO articles (id, user_id, url, title, question, answer, is_read, content_location, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.UserID,
		article.URL,
		article.Title,
		article.Question,
		article.Answer,
		article.IsRead,
		article.ContentLocation,
		article.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE id = ?`,
		id,
	)
	return scanArticle(row)
}

func (r *ArticleRepository) ListByUser(ctx context.Context, userID string) ([]domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE user_id = ?
ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func (r *ArticleRepository) Update(ctx context.Context, id, userID string, update repository.ArticleUpdate) (*domain.Article, error) {
	var (
		sets []string
		args []any
	)
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.IsRead != nil {
		sets = append(sets, "is_read = ?")
		args = append(args, *update.IsRead)
	}
	if len(sets) == 0 {
		return r.ownedArticle(ctx, id, userID)
	}

	args = append(args, id, userID)
	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET `+strings.Join(sets, ", ")+`
WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("article not found")
	}

	return r.ownedArticle(ctx, id, userID)
}

func (r *ArticleRepository) MarkRead(ctx context.Context, id, userID string) (*domain.Article, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET is_read = 1
WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark article read: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("article not found")
	}

	return r.ownedArticle(ctx, id, userID)
}

func (r *ArticleRepository) SetContentLocation(ctx context.Context, id, location string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE articles
SET content_location = ?
WHERE id = ?`,
		location, id,
	); err != nil {
		return fmt.Errorf("set content location: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM articles
WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete article rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *ArticleRepository) ownedArticle(ctx context.Context, id, userID string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanArticle(row)
}

func scanArticle(row interface {
	Scan(dest ...any) error
}) (*domain.Article, error) {
	var article domain.Article
	if err := row.Scan(
		&article.ID,
		&article.UserID,
		&article.URL,
		&article.Title,
		&article.Question,
		&article.Answer,
		&article.IsRead,
		&article.ContentLocation,
		&article.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article not found")
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return &article, nil
}
