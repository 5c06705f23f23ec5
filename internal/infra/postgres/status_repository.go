package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// StatusRepository は core/indexing.StatusRepository を実装する PostgreSQL リポジトリ。
type StatusRepository struct {
	db DBTX
}

// NewStatusRepository は新しい StatusRepository を返す。
func NewStatusRepository(db DBTX) *StatusRepository {
	return &StatusRepository{db: db}
}

var _ indexing.StatusRepository = (*StatusRepository)(nil)

const createStatusQuery = `
INSERT INTO index_statuses (channel_id, status, progress)
VALUES ($1, $2, 0)
RETURNING id, channel_id, status, progress, total_videos, processed_videos, total_chunks,
          processed_chunks, error_message, started_at, completed_at, created_at
`

func (r *StatusRepository) Create(ctx context.Context, channelID uuid.UUID) (*indexing.IndexStatus, error) {
	row := r.db.QueryRow(ctx, createStatusQuery, UUIDToPgtype(channelID), string(indexing.StatusPending))
	status, err := scanIndexStatus(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create index status: %w", err)
	}
	return status, nil
}

const updateStatusQuery = `
UPDATE index_statuses SET
    status           = $2,
    progress         = $3,
    total_videos     = $4,
    processed_videos = $5,
    total_chunks     = $6,
    processed_chunks = $7,
    error_message    = $8,
    completed_at     = $9
WHERE id = $1
`

func (r *StatusRepository) Update(ctx context.Context, status *indexing.IndexStatus) error {
	_, err := r.db.Exec(ctx, updateStatusQuery,
		UUIDToPgtype(status.ID),
		string(status.Status),
		status.Progress,
		status.TotalVideos,
		status.ProcessedVideos,
		status.TotalChunks,
		status.ProcessedChunks,
		StringPtrToPgtext(status.ErrorMessage),
		TimePtrToPgtype(status.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update index status: %w", err)
	}
	return nil
}

func scanIndexStatus(row rowScanner) (*indexing.IndexStatus, error) {
	var (
		id           pgtype.UUID
		channelID    pgtype.UUID
		statusText   string
		errorMessage pgtype.Text
		startedAt    pgtype.Timestamptz
		completedAt  pgtype.Timestamptz
		createdAt    pgtype.Timestamptz
		status       indexing.IndexStatus
	)
	if err := row.Scan(
		&id,
		&channelID,
		&statusText,
		&status.Progress,
		&status.TotalVideos,
		&status.ProcessedVideos,
		&status.TotalChunks,
		&status.ProcessedChunks,
		&errorMessage,
		&startedAt,
		&completedAt,
		&createdAt,
	); err != nil {
		return nil, err
	}

	status.ID = PgtypeToUUID(id)
	status.ChannelID = PgtypeToUUID(channelID)
	status.Status = indexing.Status(statusText)
	status.ErrorMessage = PgtextToStringPtr(errorMessage)
	status.StartedAt = PgtypeToTime(startedAt)
	status.CompletedAt = PgtypeToTimePtr(completedAt)
	status.CreatedAt = PgtypeToTime(createdAt)
	return &status, nil
}
