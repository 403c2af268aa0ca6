package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"read-check/internal/repository"
	"read-check/internal/repository/sqlite"
	"read-check/internal/storage"
	"read-check/internal/summarize"
)

type stubFetcher struct {
	page *summarize.Page
	err  error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*summarize.Page, error) {
	return s.page, s.err
}

type stubAnalyzer struct {
	analysis *summarize.Analysis
	err      error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, url, title, content string) (*summarize.Analysis, error) {
	return s.analysis, s.err
}

type stubArchive struct {
	keys    []string
	body    []byte
	deleted []string
	err     error
}

func (s *stubArchive) Archive(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(body)
	s.body = buf.Bytes()
	return "s3://" + bucket + "/" + key, nil
}

func (s *stubArchive) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (s *stubArchive) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	s.deleted = append(s.deleted, prefix)
	return nil
}

func newArticleService(t *testing.T, fetcher ContentFetcher, analyzer ContentAnalyzer, archive ArchiveConfig) (ArticleService, repository.ArticleRepository) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	articles := sqlite.NewArticleRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, articles.Init(context.Background()))

	return NewArticleService(articles, fetcher, analyzer, archive, nil), articles
}

func defaultStubs() (*stubFetcher, *stubAnalyzer) {
	return &stubFetcher{page: &summarize.Page{Title: "Fetched", Content: "page content"}},
		&stubAnalyzer{analysis: &summarize.Analysis{Question: "What is it about?", Answer: "Schedulers"}}
}

func TestSaveArticle(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})
	ctx := context.Background()

	article, err := svc.Save(ctx, "u1", "https://example.com/post", "A Post")
	require.NoError(t, err)

	assert.NotEmpty(t, article.ID)
	assert.Equal(t, "u1", article.UserID)
	assert.Equal(t, "A Post", article.Title)
	assert.Equal(t, "What is it about?", article.Question)
	assert.Equal(t, "Schedulers", article.Answer)
	assert.False(t, article.IsRead)
	assert.Empty(t, article.ContentLocation)

	saved, err := svc.Get(ctx, "u1", article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.Question, saved.Question)
}

func TestSaveArticleFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	_, analyzer := defaultStubs()
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})

	_, err := svc.Save(context.Background(), "u1", "https://example.com", "T")
	assert.ErrorIs(t, err, ErrSaveFailed)
}

func TestSaveArticleAnalyzeFailure(t *testing.T) {
	fetcher, _ := defaultStubs()
	analyzer := &stubAnalyzer{err: errors.New("rate limited")}
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})

	_, err := svc.Save(context.Background(), "u1", "https://example.com", "T")
	assert.ErrorIs(t, err, ErrSaveFailed)
}

func TestSaveArticleArchives(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	archive := &stubArchive{}
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{
		Service:   archive,
		Bucket:    "readcheck",
		KeyPrefix: "articles",
	})

	article, err := svc.Save(context.Background(), "u1", "https://example.com", "T")
	require.NoError(t, err)

	require.Len(t, archive.keys, 1)
	assert.Equal(t, "articles/"+article.ID+".md", archive.keys[0])
	assert.Equal(t, "page content", string(archive.body))
	assert.Equal(t, "s3://readcheck/articles/"+article.ID+".md", article.ContentLocation)
}

func TestSaveArticleArchiveFailureIsNonFatal(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	archive := &stubArchive{err: errors.New("access denied")}
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{Service: archive, Bucket: "readcheck"})

	article, err := svc.Save(context.Background(), "u1", "https://example.com", "T")
	require.NoError(t, err)
	assert.Empty(t, article.ContentLocation)
}

func TestDeleteRemovesArchivedContent(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	archive := &stubArchive{}
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{
		Service:   archive,
		Bucket:    "readcheck",
		KeyPrefix: "articles",
	})
	ctx := context.Background()

	article, err := svc.Save(ctx, "u1", "https://example.com", "T")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", article.ID))
	require.Len(t, archive.deleted, 1)
	assert.Equal(t, "articles/"+article.ID+".md", archive.deleted[0])
}

func TestGetEnforcesOwnership(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})
	ctx := context.Background()

	article, err := svc.Save(ctx, "u1", "https://example.com", "T")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", article.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, "u1", "no-such-id")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})
	ctx := context.Background()

	article, err := svc.Save(ctx, "u1", "https://example.com", "T")
	require.NoError(t, err)

	title := "Renamed"
	updated, err := svc.Update(ctx, "u1", article.ID, repository.ArticleUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = svc.Update(ctx, "u2", article.ID, repository.ArticleUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrArticleNotFound)

	err = svc.Delete(ctx, "u2", article.ID)
	assert.ErrorIs(t, err, ErrArticleNotFound)

	require.NoError(t, svc.Delete(ctx, "u1", article.ID))
	_, err = svc.Get(ctx, "u1", article.ID)
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestVerifyAnswer(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	analyzer.analysis.Answer = "Work Stealing"
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})
	ctx := context.Background()

	article, err := svc.Save(ctx, "u1", "https://example.com", "T")
	require.NoError(t, err)

	cases := []struct {
		name     string
		answer   string
		verified bool
	}{
		{"exact", "Work Stealing", true},
		{"case insensitive", "work stealing", true},
		{"given contains expected", "the scheduler uses work stealing internally", true},
		{"expected contains given", "stealing", true},
		{"wrong", "garbage collection", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.VerifyAnswer(ctx, "u1", article.ID, tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.verified, result.Verified)
			assert.Equal(t, tc.verified, result.Article.IsRead)
		})

		if tc.verified {
			// Reset the read flag between correct-answer cases.
			read := false
			_, err := svc.Update(ctx, "u1", article.ID, repository.ArticleUpdate{IsRead: &read})
			require.NoError(t, err)
		}
	}
}

func TestVerifyAnswerOwnership(t *testing.T) {
	fetcher, analyzer := defaultStubs()
	svc, _ := newArticleService(t, fetcher, analyzer, ArchiveConfig{})
	ctx := context.Background()

	article, err := svc.Save(ctx, "u1", "https://example.com", "T")
	require.NoError(t, err)

	_, err = svc.VerifyAnswer(ctx, "u2", article.ID, "anything")
	assert.ErrorIs(t, err, ErrForbidden)
}
