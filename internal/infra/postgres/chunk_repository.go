package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// ChunkRepository は core/indexing.ChunkRepository を実装する PostgreSQL リポジトリ。
type ChunkRepository struct {
	db DBTX
}

// NewChunkRepository は新しい ChunkRepository を返す。
func NewChunkRepository(db DBTX) *ChunkRepository {
	return &ChunkRepository{db: db}
}

var _ indexing.ChunkRepository = (*ChunkRepository)(nil)

func (r *ChunkRepository) DeleteByVideo(ctx context.Context, videoID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM transcript_chunks WHERE video_id = $1`, UUIDToPgtype(videoID))
	if err != nil {
		return fmt.Errorf("failed to delete chunks by video: %w", err)
	}
	return nil
}

const insertChunkQuery = `
INSERT INTO transcript_chunks (id, video_id, chunk_index, content, start_time, end_time, token_count, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *ChunkRepository) BatchCreate(ctx context.Context, chunks []*indexing.TranscriptChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(insertChunkQuery,
			UUIDToPgtype(chunk.ID),
			UUIDToPgtype(chunk.VideoID),
			chunk.ChunkIndex,
			chunk.Content,
			chunk.StartTime,
			chunk.EndTime,
			chunk.TokenCount,
			VectorPtr(chunk.Embedding),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to batch create chunks: %w", err)
		}
	}
	return nil
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, chunkID uuid.UUID, vector []float32) error {
	embedding := pgvector.NewVector(vector)
	_, err := r.db.Exec(ctx,
		`UPDATE transcript_chunks SET embedding = $2 WHERE id = $1`,
		UUIDToPgtype(chunkID),
		embedding,
	)
	if err != nil {
		return fmt.Errorf("failed to update chunk embedding: %w", err)
	}
	return nil
}
