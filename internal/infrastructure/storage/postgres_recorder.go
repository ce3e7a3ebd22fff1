package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yuukiLike/cc-catch-news/internal/dedup"
	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

//go:embed schema.sql
var schema string

// DB is the subset of pgxpool.Pool the recorder needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresRecorder persists runs, articles and digest items into Postgres.
type PostgresRecorder struct {
	db     DB
	psql   sq.StatementBuilderType
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.RunRecorder = (*PostgresRecorder)(nil)

// NewPostgresRecorder wires an existing connection.
func NewPostgresRecorder(db DB, logger *slog.Logger) *PostgresRecorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresRecorder{
		db:     db,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
		now:    time.Now,
	}
}

// OpenPostgres connects a pool, verifies it and bootstraps the schema.
func OpenPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	recorder := NewPostgresRecorder(pool, logger)
	if err := recorder.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return recorder, nil
}

// Migrate creates the tables when missing.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *PostgresRecorder) Close() {
	r.db.Close()
}

// CreateRun inserts a run row in the running state.
func (r *PostgresRecorder) CreateRun(ctx context.Context, sourceNames, outputNames []string) (domain.RunHandle, error) {
	startedAt := r.now().UTC()

	query, args, err := r.psql.
		Insert("runs").
		Columns("started_at", "status", "source_names", "output_names").
		Values(startedAt, string(domain.RunRunning), nonNil(sourceNames), nonNil(outputNames)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.RunHandle{}, fmt.Errorf("build create run: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return domain.RunHandle{}, fmt.Errorf("create run: %w", err)
	}
	return domain.RunHandle{ID: id, StartedAt: startedAt}, nil
}

// FinishRun stamps the terminal status and counts on the run row.
func (r *PostgresRecorder) FinishRun(ctx context.Context, handle domain.RunHandle, outcome domain.RunOutcome) error {
	if !handle.Persisted() {
		return nil
	}

	var errText any
	if outcome.Error != "" {
		errText = outcome.Error
	}

	query, args, err := r.psql.
		Update("runs").
		Set("finished_at", r.now().UTC()).
		Set("status", string(outcome.Status)).
		Set("article_count", outcome.ArticleCount).
		Set("digest_count", outcome.DigestCount).
		Set("error", errText).
		Where(sq.Eq{"id": handle.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish run: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// UpsertArticles stores each article keyed by its URL fingerprint and returns
// url -> article id for every row written or already present.
func (r *PostgresRecorder) UpsertArticles(ctx context.Context, articles []domain.RawArticle) (map[string]int64, error) {
	ids := make(map[string]int64, len(articles))

	for _, article := range articles {
		meta, err := encodeMeta(article.Meta)
		if err != nil {
			return ids, fmt.Errorf("encode meta for %s: %w", article.URL, err)
		}

		query, args, err := r.psql.
			Insert("articles").
			Columns("url_hash", "url", "title", "source_name", "source_id", "score", "comment_count", "author", "meta", "created_at").
			Values(
				dedup.Fingerprint(article.URL),
				article.URL,
				article.Title,
				article.SourceName,
				nullString(article.SourceID),
				article.Score,
				article.CommentCount,
				nullString(article.Author),
				meta,
				article.CreatedAt,
			).
			Suffix("ON CONFLICT (url_hash) DO UPDATE SET score = EXCLUDED.score, comment_count = EXCLUDED.comment_count, fetched_at = NOW() RETURNING id").
			ToSql()
		if err != nil {
			return ids, fmt.Errorf("build upsert article: %w", err)
		}

		var id int64
		if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
			return ids, fmt.Errorf("upsert article %s: %w", article.URL, err)
		}
		ids[article.URL] = id
	}

	r.logger.Info("upserted articles", "stored", len(ids), "total", len(articles))
	return ids, nil
}

// InsertDigestItems links the digest to its run. Items whose URL has no stored
// article are skipped.
func (r *PostgresRecorder) InsertDigestItems(ctx context.Context, handle domain.RunHandle, items []domain.DigestItem, articleIDs map[string]int64) error {
	if !handle.Persisted() {
		return nil
	}

	insert := r.psql.
		Insert("digest_items").
		Columns("run_id", "article_id", "rank", "ai_score", "summary", "tags")

	rows := 0
	for _, item := range items {
		articleID, ok := articleIDs[item.URL]
		if !ok {
			continue
		}
		insert = insert.Values(handle.ID, articleID, item.Rank, item.Score, item.Summary, nonNil(item.Tags))
		rows++
	}
	if rows == 0 {
		return nil
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert digest items: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert digest items: %w", err)
	}
	return nil
}

func encodeMeta(meta map[string]any) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	return json.Marshal(meta)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
