package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// ChannelRepository は core/indexing.ChannelRepository を実装する PostgreSQL リポジトリ。
type ChannelRepository struct {
	db DBTX
}

// NewChannelRepository は新しい ChannelRepository を返す。
func NewChannelRepository(db DBTX) *ChannelRepository {
	return &ChannelRepository{db: db}
}

var _ indexing.ChannelRepository = (*ChannelRepository)(nil)

const upsertChannelQuery = `
INSERT INTO channels (external_channel_id, name, url, description, subscriber_count, video_count, thumbnail_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (external_channel_id) DO UPDATE SET
    name             = EXCLUDED.name,
    url              = EXCLUDED.url,
    description      = EXCLUDED.description,
    subscriber_count = EXCLUDED.subscriber_count,
    video_count      = EXCLUDED.video_count,
    thumbnail_url    = EXCLUDED.thumbnail_url,
    updated_at       = now()
RETURNING id, external_channel_id, name, url, description, subscriber_count, video_count,
          thumbnail_url, is_indexed, last_indexed_at, created_at, updated_at
`

func (r *ChannelRepository) Upsert(ctx context.Context, channel *indexing.Channel) (*indexing.Channel, error) {
	row := r.db.QueryRow(ctx, upsertChannelQuery,
		channel.ExternalChannelID,
		channel.Name,
		channel.URL,
		StringPtrToPgtext(channel.Description),
		Int64PtrToPgInt8(channel.SubscriberCount),
		IntPtrToPgInt4(channel.VideoCount),
		StringPtrToPgtext(channel.ThumbnailURL),
	)

	result, err := scanChannel(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert channel: %w", err)
	}
	return result, nil
}

func (r *ChannelRepository) MarkIndexed(ctx context.Context, channelID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE channels SET is_indexed = TRUE, last_indexed_at = $2, updated_at = now() WHERE id = $1`,
		UUIDToPgtype(channelID),
		TimeToPgtype(at),
	)
	if err != nil {
		return fmt.Errorf("failed to mark channel as indexed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*indexing.Channel, error) {
	var (
		id              pgtype.UUID
		description     pgtype.Text
		subscriberCount pgtype.Int8
		videoCount      pgtype.Int4
		thumbnailURL    pgtype.Text
		lastIndexedAt   pgtype.Timestamptz
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		channel         indexing.Channel
	)
	if err := row.Scan(
		&id,
		&channel.ExternalChannelID,
		&channel.Name,
		&channel.URL,
		&description,
		&subscriberCount,
		&videoCount,
		&thumbnailURL,
		&channel.IsIndexed,
		&lastIndexedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	channel.ID = PgtypeToUUID(id)
	channel.Description = PgtextToStringPtr(description)
	channel.SubscriberCount = PgtypeToInt64Ptr(subscriberCount)
	channel.VideoCount = PgtypeToIntPtr(videoCount)
	channel.ThumbnailURL = PgtextToStringPtr(thumbnailURL)
	channel.LastIndexedAt = PgtypeToTimePtr(lastIndexedAt)
	channel.CreatedAt = PgtypeToTime(createdAt)
	channel.UpdatedAt = PgtypeToTime(updatedAt)
	return &channel, nil
}
