package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepository はテスト用のRepository実装
type stubRepository struct {
	channelID        uuid.UUID
	channelFound     bool
	resolveErr       error
	vectorHits       []*ChunkHit
	vectorErr        error
	keywordHits      []*KeywordHit
	keywordErr       error
	videoChannels    map[uuid.UUID]*VideoChannel
	chunkKeywords    map[uuid.UUID][]string
	logErr           error
	vectorCalls      int
	keywordCalls     int
	loggedQueries    []*QueryLog
}

func (s *stubRepository) ResolveChannel(_ context.Context, _ string) (uuid.UUID, bool, error) {
	return s.channelID, s.channelFound, s.resolveErr
}

func (s *stubRepository) VectorSearch(_ context.Context, _ []float32, _ *uuid.UUID, _ float64, _ int) ([]*ChunkHit, error) {
	s.vectorCalls++
	return s.vectorHits, s.vectorErr
}

func (s *stubRepository) KeywordSearch(_ context.Context, _ []string, _ *uuid.UUID, _ int) ([]*KeywordHit, error) {
	s.keywordCalls++
	return s.keywordHits, s.keywordErr
}

func (s *stubRepository) GetVideoChannel(_ context.Context, videoID uuid.UUID) (*VideoChannel, error) {
	vc, ok := s.videoChannels[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return vc, nil
}

func (s *stubRepository) ListChunkKeywords(_ context.Context, chunkID uuid.UUID) ([]string, error) {
	return s.chunkKeywords[chunkID], nil
}

func (s *stubRepository) LogQuery(_ context.Context, log *QueryLog) error {
	s.loggedQueries = append(s.loggedQueries, log)
	return s.logErr
}

// stubEmbedder はテスト用のEmbedder実装
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.vector, s.err
}

func newTestRepo() *stubRepository {
	videoID := uuid.New()
	chunkID := uuid.New()
	return &stubRepository{
		channelFound: true,
		channelID:    uuid.New(),
		vectorHits: []*ChunkHit{
			{ChunkID: chunkID, VideoID: videoID, Content: "a talk about Barack Obama", StartTime: 0, EndTime: 60, Similarity: 0.8},
		},
		videoChannels: map[uuid.UUID]*VideoChannel{
			videoID: {VideoID: videoID, ExternalVideoID: "vid1", Title: "Interview", VideoURL: "https://example.com/v", ChannelID: uuid.New(), ChannelName: "News", ExternalChannelID: "UC123"},
		},
		chunkKeywords: map[uuid.UUID][]string{
			chunkID: {"Barack Obama", "Washington"},
		},
	}
}

func TestSearch_EmptyQueryIsError(t *testing.T) {
	service := NewService(&stubRepository{}, &stubEmbedder{}, nil)

	_, err := service.Search(context.Background(), Params{})
	assert.Error(t, err)
}

func TestSearch_VectorPath(t *testing.T) {
	repo := newTestRepo()
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	service := NewService(repo, embedder, nil)

	results, err := service.Search(context.Background(), Params{Query: "Barack Obama"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 0.8, results[0].Similarity)
	assert.Greater(t, results[0].Score, 0.8)
	assert.LessOrEqual(t, results[0].Score, 1.0)
	assert.Equal(t, "Interview", results[0].VideoTitle)
	assert.Contains(t, results[0].MatchedKeywords, "Barack Obama")

	// ベクトル経路が成立した場合、キーワード経路は呼ばれない
	assert.Equal(t, 0, repo.keywordCalls)
}

func TestSearch_UnresolvableScopeReturnsEmptyWithoutDownstreamCalls(t *testing.T) {
	repo := newTestRepo()
	repo.channelFound = false
	embedder := &stubEmbedder{vector: []float32{0.1}}
	service := NewService(repo, embedder, nil)

	handle := "no-such-channel"
	results, err := service.Search(context.Background(), Params{Query: "anything", ChannelHandle: &handle})
	require.NoError(t, err)
	assert.Empty(t, results)

	// スコープ解決に失敗したら下流を一切呼ばない
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, repo.vectorCalls)
	assert.Equal(t, 0, repo.keywordCalls)
}

func TestSearch_EmbeddingFailureFallsBackToKeywords(t *testing.T) {
	videoID := uuid.New()
	chunkID := uuid.New()
	repo := &stubRepository{
		keywordHits: []*KeywordHit{
			{ChunkID: chunkID, VideoID: videoID, Content: "Barack Obama speech", Keyword: "Barack Obama", Confidence: 95},
		},
		videoChannels: map[uuid.UUID]*VideoChannel{
			videoID: {VideoID: videoID, Title: "Speech"},
		},
	}
	embedder := &stubEmbedder{err: errors.New("api down")}
	service := NewService(repo, embedder, nil)

	results, err := service.Search(context.Background(), Params{Query: "barack obama"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 0, repo.vectorCalls)
	assert.Equal(t, 1, repo.keywordCalls)
	assert.Equal(t, 0.0, results[0].Similarity)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestSearch_EmptyVectorResultFallsBackToKeywords(t *testing.T) {
	repo := newTestRepo()
	repo.vectorHits = nil
	videoID := uuid.New()
	chunkID := uuid.New()
	repo.keywordHits = []*KeywordHit{
		{ChunkID: chunkID, VideoID: videoID, Content: "about physics", Keyword: "physics", Confidence: 80},
	}
	repo.videoChannels[videoID] = &VideoChannel{VideoID: videoID, Title: "Lecture"}
	embedder := &stubEmbedder{vector: []float32{0.1}}
	service := NewService(repo, embedder, nil)

	results, err := service.Search(context.Background(), Params{Query: "physics lecture"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, repo.vectorCalls)
	assert.Equal(t, 1, repo.keywordCalls)
}

func TestSearch_BothPathsEmptyReturnsEmptyNotError(t *testing.T) {
	repo := newTestRepo()
	repo.vectorHits = nil
	repo.keywordHits = nil
	service := NewService(repo, &stubEmbedder{vector: []float32{0.1}}, nil)

	results, err := service.Search(context.Background(), Params{Query: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_SkipsChunksWithMissingVideo(t *testing.T) {
	repo := newTestRepo()
	orphanChunk := &ChunkHit{ChunkID: uuid.New(), VideoID: uuid.New(), Content: "orphan", Similarity: 0.9}
	repo.vectorHits = append([]*ChunkHit{orphanChunk}, repo.vectorHits...)
	service := NewService(repo, &stubEmbedder{vector: []float32{0.1}}, nil)

	results, err := service.Search(context.Background(), Params{Query: "Barack Obama"})
	require.NoError(t, err)

	// 親動画を解決できないチャンクは除外され、残りは返る
	require.Len(t, results, 1)
	assert.Equal(t, "Interview", results[0].VideoTitle)
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	repo := newTestRepo()
	videoID := uuid.New()
	repo.videoChannels[videoID] = &VideoChannel{VideoID: videoID, Title: "Other"}
	for i := 0; i < 5; i++ {
		repo.vectorHits = append(repo.vectorHits, &ChunkHit{
			ChunkID: uuid.New(), VideoID: videoID, Content: "filler", Similarity: 0.6,
		})
	}
	service := NewService(repo, &stubEmbedder{vector: []float32{0.1}}, nil)

	results, err := service.Search(context.Background(), Params{Query: "Barack Obama", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// スコア降順で上位のみ残る
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_ExcludeKeywords(t *testing.T) {
	repo := newTestRepo()
	service := NewService(repo, &stubEmbedder{vector: []float32{0.1}}, nil)

	includeKeywords := false
	results, err := service.Search(context.Background(), Params{Query: "Barack Obama", IncludeKeywords: &includeKeywords})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].MatchedKeywords)
}

func TestSearch_QueryLogIsBestEffort(t *testing.T) {
	repo := newTestRepo()
	repo.logErr = errors.New("log table missing")
	service := NewService(repo, &stubEmbedder{vector: []float32{0.1}}, nil)

	results, err := service.Search(context.Background(), Params{Query: "Barack Obama"})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// ログ記録の失敗は検索を失敗させないが、記録自体は試みられる
	require.Len(t, repo.loggedQueries, 1)
	assert.Equal(t, "Barack Obama", repo.loggedQueries[0].Query)
	assert.Equal(t, 1, repo.loggedQueries[0].ResultsCount)
}

func TestSearch_KeywordPathGroupsMatchesPerChunk(t *testing.T) {
	videoID := uuid.New()
	chunkID := uuid.New()
	repo := &stubRepository{
		keywordHits: []*KeywordHit{
			{ChunkID: chunkID, VideoID: videoID, Content: "Barack Obama in Washington", Keyword: "Barack Obama", Confidence: 95},
			{ChunkID: chunkID, VideoID: videoID, Content: "Barack Obama in Washington", Keyword: "Washington", Confidence: 90},
		},
		videoChannels: map[uuid.UUID]*VideoChannel{
			videoID: {VideoID: videoID, Title: "News"},
		},
	}
	embedder := &stubEmbedder{err: errors.New("api down")}
	service := NewService(repo, embedder, nil)

	results, err := service.Search(context.Background(), Params{Query: "obama washington"})
	require.NoError(t, err)

	// 同一チャンクへの複数キーワードマッチは1結果に集約される
	require.Len(t, results, 1)
	assert.ElementsMatch(t, []string{"Barack Obama", "Washington"}, results[0].MatchedKeywords)
	assert.Equal(t, 1.0, results[0].Score)
}
