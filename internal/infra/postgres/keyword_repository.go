package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// KeywordRepository は core/indexing.KeywordRepository を実装する PostgreSQL リポジトリ。
type KeywordRepository struct {
	db DBTX
}

// NewKeywordRepository は新しい KeywordRepository を返す。
func NewKeywordRepository(db DBTX) *KeywordRepository {
	return &KeywordRepository{db: db}
}

var _ indexing.KeywordRepository = (*KeywordRepository)(nil)

func (r *KeywordRepository) DeleteByVideo(ctx context.Context, videoID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM keywords WHERE video_id = $1`, UUIDToPgtype(videoID))
	if err != nil {
		return fmt.Errorf("failed to delete keywords by video: %w", err)
	}
	return nil
}

const insertKeywordQuery = `
INSERT INTO keywords (id, video_id, chunk_id, keyword, entity_type, confidence, frequency, relevance)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *KeywordRepository) BatchCreate(ctx context.Context, keywords []*indexing.Keyword) error {
	if len(keywords) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, kw := range keywords {
		batch.Queue(insertKeywordQuery,
			UUIDToPgtype(kw.ID),
			UUIDToPgtype(kw.VideoID),
			UUIDPtrToPgtype(kw.ChunkID),
			kw.Keyword,
			StringPtrToPgtext(kw.EntityType),
			kw.Confidence,
			kw.Frequency,
			kw.Relevance,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range keywords {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to batch create keywords: %w", err)
		}
	}
	return nil
}
