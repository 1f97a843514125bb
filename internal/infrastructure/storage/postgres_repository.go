package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsMerger/internal/domain"
	"NewsMerger/internal/ports"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "articles"

var updatedColumns = []string{
	"title", "summary", "category", "source_name", "full_text", "sentiment",
	"importance_level", "keywords", "named_entities", "date_time", "location",
	"language", "thumbnail_url", "merged_source_urls", "duplicate_count",
	"batch_number", "global_article_number", "embedding", "embedding_model",
	"processing_status", "processed_at",
}

// PostgresRepository persists enriched articles into Postgres keyed on source_url.
type PostgresRepository struct {
	db    *sql.DB
	table string
	psql  sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB, table string) *PostgresRepository {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresRepository{
		db:    db,
		table: pq.QuoteIdentifier(table),
		psql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects with lib/pq.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// Ping checks connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("postgres not configured")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// UpsertArticle inserts or updates one row and reports whether it was an insert.
func (r *PostgresRepository) UpsertArticle(ctx context.Context, a domain.EnrichedArticle) (bool, error) {
	if r.db == nil {
		return false, fmt.Errorf("postgres not configured")
	}

	entities, err := json.Marshal(a.NamedEntities)
	if err != nil {
		return false, fmt.Errorf("encode named entities: %w", err)
	}

	set := make([]string, 0, len(updatedColumns)+1)
	for _, col := range updatedColumns {
		set = append(set, col+" = EXCLUDED."+col)
	}
	set = append(set, "updated_at = NOW()")

	query, args, err := r.psql.
		Insert(r.table).
		Columns(append([]string{"source_url"}, updatedColumns...)...).
		Values(
			a.SourceURL,
			a.Title,
			a.Summary,
			nullString(a.Category),
			string(a.SourceName),
			a.FullText,
			nullString(a.Sentiment),
			nullInt(a.ImportanceLevel),
			pq.Array(a.Keywords),
			entities,
			nullString(a.DateTime),
			nullString(a.Location),
			nullString(a.Language),
			nullString(a.ThumbnailURL),
			pq.Array(a.MergedSourceURLs),
			a.DuplicateCount,
			a.BatchNumber,
			a.GlobalNumber,
			sq.Expr("?::vector", vectorLiteral(a.SearchEmbedding)),
			nullString(a.EmbeddingModel),
			string(a.ProcessingStatus),
			a.ProcessedAt,
		).
		Suffix("ON CONFLICT (source_url) DO UPDATE SET " + strings.Join(set, ", ") + " RETURNING (xmax = 0)").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build upsert: %w", err)
	}

	var inserted bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&inserted); err != nil {
		return false, fmt.Errorf("upsert %s: %w", a.SourceURL, err)
	}
	return inserted, nil
}

// ExistingURLs returns the subset of urls already stored.
func (r *PostgresRepository) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if r.db == nil || len(urls) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.psql.
		Select("source_url").
		From(r.table).
		Where("source_url = ANY(?)", pq.StringArray(urls)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build existing query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[url] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// vectorLiteral renders a pgvector text literal, or nil for a missing embedding.
func vectorLiteral(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
