package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/vod-rag/internal/core/search"
)

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ。
type SearchRepository struct {
	db DBTX
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(db DBTX) *SearchRepository {
	return &SearchRepository{db: db}
}

var _ search.Repository = (*SearchRepository)(nil)

func (r *SearchRepository) ResolveChannel(ctx context.Context, handle string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM channels WHERE external_channel_id = $1`, handle,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to resolve channel: %w", err)
	}
	return id, true, nil
}

const vectorSearchQuery = `
SELECT c.id, c.video_id, c.content, c.start_time, c.end_time,
       1 - (c.embedding <=> $1) AS similarity
FROM transcript_chunks c
JOIN videos v ON v.id = c.video_id
WHERE c.embedding IS NOT NULL
  AND ($2::uuid IS NULL OR v.channel_id = $2)
  AND 1 - (c.embedding <=> $1) > $3
ORDER BY c.embedding <=> $1
LIMIT $4
`

func (r *SearchRepository) VectorSearch(ctx context.Context, queryVector []float32, channelID *uuid.UUID, threshold float64, limit int) ([]*search.ChunkHit, error) {
	rows, err := r.db.Query(ctx, vectorSearchQuery,
		pgvector.NewVector(queryVector),
		UUIDPtrToPgtype(channelID),
		threshold,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]*search.ChunkHit, 0, limit)
	for rows.Next() {
		var hit search.ChunkHit
		if err := rows.Scan(&hit.ChunkID, &hit.VideoID, &hit.Content, &hit.StartTime, &hit.EndTime, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan vector search row: %w", err)
		}
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector search rows: %w", err)
	}
	return hits, nil
}

const keywordSearchQuery = `
SELECT c.id, c.video_id, c.content, c.start_time, c.end_time, k.keyword, k.confidence
FROM keywords k
JOIN transcript_chunks c ON c.id = k.chunk_id
JOIN videos v ON v.id = c.video_id
WHERE ($2::uuid IS NULL OR v.channel_id = $2)
  AND k.keyword ILIKE ANY ($1::text[])
ORDER BY k.confidence DESC
LIMIT $3
`

func (r *SearchRepository) KeywordSearch(ctx context.Context, keywords []string, channelID *uuid.UUID, limit int) ([]*search.KeywordHit, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	patterns := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, "%"+kw+"%")
	}

	rows, err := r.db.Query(ctx, keywordSearchQuery,
		patterns,
		UUIDPtrToPgtype(channelID),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute keyword search: %w", err)
	}
	defer rows.Close()

	hits := make([]*search.KeywordHit, 0, limit)
	for rows.Next() {
		var hit search.KeywordHit
		if err := rows.Scan(&hit.ChunkID, &hit.VideoID, &hit.Content, &hit.StartTime, &hit.EndTime, &hit.Keyword, &hit.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan keyword search row: %w", err)
		}
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keyword search rows: %w", err)
	}
	return hits, nil
}

const videoChannelQuery = `
SELECT v.id, v.external_video_id, v.title, v.video_url,
       ch.id, ch.name, ch.external_channel_id
FROM videos v
JOIN channels ch ON ch.id = v.channel_id
WHERE v.id = $1
`

func (r *SearchRepository) GetVideoChannel(ctx context.Context, videoID uuid.UUID) (*search.VideoChannel, error) {
	var vc search.VideoChannel
	err := r.db.QueryRow(ctx, videoChannelQuery, UUIDToPgtype(videoID)).Scan(
		&vc.VideoID,
		&vc.ExternalVideoID,
		&vc.Title,
		&vc.VideoURL,
		&vc.ChannelID,
		&vc.ChannelName,
		&vc.ExternalChannelID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", videoID, search.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video channel: %w", err)
	}
	return &vc, nil
}

func (r *SearchRepository) ListChunkKeywords(ctx context.Context, chunkID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT keyword FROM keywords WHERE chunk_id = $1 ORDER BY confidence DESC`,
		UUIDToPgtype(chunkID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk keywords: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("failed to scan keyword row: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keyword rows: %w", err)
	}
	return keywords, nil
}

const insertQueryLogQuery = `
INSERT INTO search_query_logs (channel_id, query, query_embedding, results_count, execution_time_ms)
VALUES ($1, $2, $3, $4, $5)
`

func (r *SearchRepository) LogQuery(ctx context.Context, log *search.QueryLog) error {
	_, err := r.db.Exec(ctx, insertQueryLogQuery,
		UUIDPtrToPgtype(log.ChannelID),
		log.Query,
		VectorPtr(log.QueryEmbedding),
		log.ResultsCount,
		log.ExecutionTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search query log: %w", err)
	}
	return nil
}
