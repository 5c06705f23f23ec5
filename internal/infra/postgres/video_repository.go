package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// VideoRepository は core/indexing.VideoRepository を実装する PostgreSQL リポジトリ。
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository は新しい VideoRepository を返す。
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

var _ indexing.VideoRepository = (*VideoRepository)(nil)

const upsertVideoQuery = `
INSERT INTO videos (external_video_id, channel_id, title, description, published_at, duration_seconds,
                    view_count, like_count, thumbnail_url, video_url, transcript, transcript_length, transcript_available)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (external_video_id) DO UPDATE SET
    channel_id           = EXCLUDED.channel_id,
    title                = EXCLUDED.title,
    description          = EXCLUDED.description,
    published_at         = EXCLUDED.published_at,
    duration_seconds     = EXCLUDED.duration_seconds,
    view_count           = EXCLUDED.view_count,
    like_count           = EXCLUDED.like_count,
    thumbnail_url        = EXCLUDED.thumbnail_url,
    video_url            = EXCLUDED.video_url,
    transcript           = EXCLUDED.transcript,
    transcript_length    = EXCLUDED.transcript_length,
    transcript_available = EXCLUDED.transcript_available,
    updated_at           = now()
RETURNING id, external_video_id, channel_id, title, description, published_at, duration_seconds,
          view_count, like_count, thumbnail_url, video_url, transcript, transcript_length,
          transcript_available, created_at, updated_at
`

func (r *VideoRepository) Upsert(ctx context.Context, video *indexing.Video) (*indexing.Video, error) {
	row := r.db.QueryRow(ctx, upsertVideoQuery,
		video.ExternalVideoID,
		UUIDToPgtype(video.ChannelID),
		video.Title,
		StringPtrToPgtext(video.Description),
		TimePtrToPgtype(video.PublishedAt),
		IntPtrToPgInt4(video.DurationSeconds),
		Int64PtrToPgInt8(video.ViewCount),
		Int64PtrToPgInt8(video.LikeCount),
		StringPtrToPgtext(video.ThumbnailURL),
		video.VideoURL,
		StringPtrToPgtext(video.Transcript),
		IntPtrToPgInt4(video.TranscriptLength),
		video.TranscriptAvailable,
	)

	var (
		id               pgtype.UUID
		channelID        pgtype.UUID
		description      pgtype.Text
		publishedAt      pgtype.Timestamptz
		durationSeconds  pgtype.Int4
		viewCount        pgtype.Int8
		likeCount        pgtype.Int8
		thumbnailURL     pgtype.Text
		transcript       pgtype.Text
		transcriptLength pgtype.Int4
		createdAt        pgtype.Timestamptz
		updatedAt        pgtype.Timestamptz
		result           indexing.Video
	)
	if err := row.Scan(
		&id,
		&result.ExternalVideoID,
		&channelID,
		&result.Title,
		&description,
		&publishedAt,
		&durationSeconds,
		&viewCount,
		&likeCount,
		&thumbnailURL,
		&result.VideoURL,
		&transcript,
		&transcriptLength,
		&result.TranscriptAvailable,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert video: %w", err)
	}

	result.ID = PgtypeToUUID(id)
	result.ChannelID = PgtypeToUUID(channelID)
	result.Description = PgtextToStringPtr(description)
	result.PublishedAt = PgtypeToTimePtr(publishedAt)
	result.DurationSeconds = PgtypeToIntPtr(durationSeconds)
	result.ViewCount = PgtypeToInt64Ptr(viewCount)
	result.LikeCount = PgtypeToInt64Ptr(likeCount)
	result.ThumbnailURL = PgtextToStringPtr(thumbnailURL)
	result.Transcript = PgtextToStringPtr(transcript)
	result.TranscriptLength = PgtypeToIntPtr(transcriptLength)
	result.CreatedAt = PgtypeToTime(createdAt)
	result.UpdatedAt = PgtypeToTime(updatedAt)
	return &result, nil
}
