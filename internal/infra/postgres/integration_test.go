package postgres

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/vod-rag/internal/core/indexing"
	"github.com/jinford/vod-rag/internal/core/search"
	"github.com/jinford/vod-rag/internal/platform/database"
	"github.com/jinford/vod-rag/pkg/config"
	"github.com/jinford/vod-rag/pkg/lock"
)

// setupTestDB はpgvector入りPostgreSQLコンテナを起動し、スキーマ適用済みの接続を返す。
// Dockerが利用できない環境ではテストをスキップする。
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	resource, err := pool.Run("pgvector/pgvector", "pg16", []string{
		"POSTGRES_USER=vodrag",
		"POSTGRES_PASSWORD=vodrag",
		"POSTGRES_DB=vodrag_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     port,
		User:     "vodrag",
		Password: "vodrag",
		DBName:   "vodrag_test",
		SSLMode:  "disable",
	}

	ctx := context.Background()

	var db *database.DB
	pool.MaxWait = 2 * time.Minute
	err = pool.Retry(func() error {
		var err error
		db, err = database.New(ctx, cfg)
		return err
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	// 冪等性の確認（CREATE IF NOT EXISTSのみで構成されている）
	require.NoError(t, db.EnsureSchema(ctx))

	return db
}

func strPtr(s string) *string { return &s }

func testEmbedding(seed float32) []float32 {
	vec := make([]float32, 1536)
	vec[0] = seed
	vec[1] = 1
	return vec
}

func TestIntegration_Repositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	channels := NewChannelRepository(db.Pool)
	videos := NewVideoRepository(db.Pool)
	chunks := NewChunkRepository(db.Pool)
	keywords := NewKeywordRepository(db.Pool)
	statuses := NewStatusRepository(db.Pool)
	searchRepo := NewSearchRepository(db.Pool)

	// チャンネルupsertは外部IDをキーに冪等
	ch, err := channels.Upsert(ctx, &indexing.Channel{
		ExternalChannelID: "UCintegration",
		Name:              "Integration Channel",
		URL:               "https://www.youtube.com/@integration",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, ch.ID)

	ch2, err := channels.Upsert(ctx, &indexing.Channel{
		ExternalChannelID: "UCintegration",
		Name:              "Integration Channel Renamed",
		URL:               "https://www.youtube.com/@integration",
	})
	require.NoError(t, err)
	assert.Equal(t, ch.ID, ch2.ID)
	assert.Equal(t, "Integration Channel Renamed", ch2.Name)

	video, err := videos.Upsert(ctx, &indexing.Video{
		ExternalVideoID:     "vid-1",
		ChannelID:           ch.ID,
		Title:               "First Video",
		VideoURL:            "https://www.youtube.com/watch?v=vid-1",
		Transcript:          strPtr("A talk about Barack Obama."),
		TranscriptAvailable: true,
	})
	require.NoError(t, err)

	chunk := &indexing.TranscriptChunk{
		ID:         uuid.New(),
		VideoID:    video.ID,
		ChunkIndex: 0,
		Content:    "A talk about Barack Obama.",
		StartTime:  0,
		EndTime:    120,
		TokenCount: 7,
	}
	require.NoError(t, chunks.BatchCreate(ctx, []*indexing.TranscriptChunk{chunk}))
	require.NoError(t, chunks.UpdateEmbedding(ctx, chunk.ID, testEmbedding(0.5)))

	require.NoError(t, keywords.BatchCreate(ctx, []*indexing.Keyword{{
		ID:         uuid.New(),
		VideoID:    video.ID,
		ChunkID:    &chunk.ID,
		Keyword:    "Barack Obama",
		EntityType: strPtr("PER"),
		Confidence: 95,
		Frequency:  1,
		Relevance:  95,
	}}))

	t.Run("resolve channel", func(t *testing.T) {
		id, ok, err := searchRepo.ResolveChannel(ctx, "UCintegration")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, ch.ID, id)

		_, ok, err = searchRepo.ResolveChannel(ctx, "UCnotexist")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("vector search", func(t *testing.T) {
		// 同一ベクトルならコサイン類似度は1.0
		hits, err := searchRepo.VectorSearch(ctx, testEmbedding(0.5), &ch.ID, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, chunk.ID, hits[0].ChunkID)
		assert.InDelta(t, 1.0, hits[0].Similarity, 0.001)

		// 別チャンネルにスコープすると0件
		otherID := uuid.New()
		hits, err = searchRepo.VectorSearch(ctx, testEmbedding(0.5), &otherID, 0.5, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("keyword search", func(t *testing.T) {
		hits, err := searchRepo.KeywordSearch(ctx, []string{"obama"}, nil, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Barack Obama", hits[0].Keyword)
		assert.Equal(t, chunk.ID, hits[0].ChunkID)
	})

	t.Run("video channel lookup", func(t *testing.T) {
		vc, err := searchRepo.GetVideoChannel(ctx, video.ID)
		require.NoError(t, err)
		assert.Equal(t, "First Video", vc.Title)
		assert.Equal(t, "UCintegration", vc.ExternalChannelID)
	})

	t.Run("chunk keywords", func(t *testing.T) {
		kws, err := searchRepo.ListChunkKeywords(ctx, chunk.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Barack Obama"}, kws)
	})

	t.Run("query log", func(t *testing.T) {
		err := searchRepo.LogQuery(ctx, &search.QueryLog{
			ChannelID:       &ch.ID,
			Query:           "obama",
			QueryEmbedding:  testEmbedding(0.5),
			ResultsCount:    1,
			ExecutionTimeMs: 12,
		})
		require.NoError(t, err)
	})

	t.Run("index status lifecycle", func(t *testing.T) {
		status, err := statuses.Create(ctx, ch.ID)
		require.NoError(t, err)
		assert.Equal(t, indexing.StatusPending, status.Status)
		assert.Equal(t, 0, status.Progress)

		status.Status = indexing.StatusCompleted
		status.Progress = 100
		now := time.Now()
		status.CompletedAt = &now
		require.NoError(t, statuses.Update(ctx, status))
	})

	t.Run("delete by video", func(t *testing.T) {
		require.NoError(t, keywords.DeleteByVideo(ctx, video.ID))
		require.NoError(t, chunks.DeleteByVideo(ctx, video.ID))

		hits, err := searchRepo.VectorSearch(ctx, testEmbedding(0.5), nil, 0.5, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestIntegration_AdvisoryLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	manager := lock.NewManager(db.Pool)

	unlock, err := manager.TryLock(ctx, "index:UCintegration")
	require.NoError(t, err)

	// 同一キーの二重取得は拒否される
	_, err = manager.TryLock(ctx, "index:UCintegration")
	assert.ErrorIs(t, err, indexing.ErrIndexingInProgress)

	// 別キーは取得できる
	unlockOther, err := manager.TryLock(ctx, "index:UCother")
	require.NoError(t, err)
	require.NoError(t, unlockOther(ctx))

	require.NoError(t, unlock(ctx))

	// 解放後は再取得できる
	unlock2, err := manager.TryLock(ctx, "index:UCintegration")
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
