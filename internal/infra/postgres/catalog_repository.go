package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// ChannelSummary は一覧表示用のチャンネル集計情報
type ChannelSummary struct {
	ID                uuid.UUID
	ExternalChannelID string
	Name              string
	URL               string
	IsIndexed         bool
	LastIndexedAt     *time.Time
	VideoCount        int
	ChunkCount        int
}

// CatalogRepository はCLIの参照系クエリを提供する PostgreSQL リポジトリ。
type CatalogRepository struct {
	db DBTX
}

// NewCatalogRepository は新しい CatalogRepository を返す。
func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const listChannelsQuery = `
SELECT ch.id, ch.external_channel_id, ch.name, ch.url, ch.is_indexed, ch.last_indexed_at,
       count(DISTINCT v.id) AS video_count,
       count(c.id) AS chunk_count
FROM channels ch
LEFT JOIN videos v ON v.channel_id = ch.id
LEFT JOIN transcript_chunks c ON c.video_id = v.id
GROUP BY ch.id
ORDER BY ch.created_at
`

// ListChannels は登録済みチャンネルを動画・チャンク数付きで返す
func (r *CatalogRepository) ListChannels(ctx context.Context) ([]*ChannelSummary, error) {
	rows, err := r.db.Query(ctx, listChannelsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var summaries []*ChannelSummary
	for rows.Next() {
		var (
			summary       ChannelSummary
			lastIndexedAt pgtype.Timestamptz
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.ExternalChannelID,
			&summary.Name,
			&summary.URL,
			&summary.IsIndexed,
			&lastIndexedAt,
			&summary.VideoCount,
			&summary.ChunkCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan channel summary: %w", err)
		}
		summary.LastIndexedAt = PgtypeToTimePtr(lastIndexedAt)
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read channel summaries: %w", err)
	}
	return summaries, nil
}

const latestIndexStatusQuery = `
SELECT s.id, s.channel_id, s.status, s.progress, s.total_videos, s.processed_videos,
       s.total_chunks, s.processed_chunks, s.error_message, s.started_at, s.completed_at, s.created_at
FROM index_statuses s
JOIN channels ch ON ch.id = s.channel_id
WHERE ch.external_channel_id = $1
ORDER BY s.started_at DESC
LIMIT 1
`

// LatestIndexStatus は外部チャンネルIDに対する最新のインデックス化状態を返す。
// 状態が存在しない場合は (nil, nil) を返す。
func (r *CatalogRepository) LatestIndexStatus(ctx context.Context, externalChannelID string) (*indexing.IndexStatus, error) {
	row := r.db.QueryRow(ctx, latestIndexStatusQuery, externalChannelID)
	status, err := scanIndexStatus(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest index status: %w", err)
	}
	return status, nil
}
