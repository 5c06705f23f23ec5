package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/vod-rag/internal/core/extract"
)

const (
	// DefaultLimit は検索結果のデフォルト最大件数
	DefaultLimit = 10
	// DefaultSimilarityThreshold はベクトル検索のデフォルト類似度閾値
	DefaultSimilarityThreshold = 0.5
	// candidateMultiplier はエンリッチ・再ランク前に取得する候補数の倍率
	candidateMultiplier = 2
)

// Service はベクトル検索とキーワード検索を組み合わせたハイブリッド検索を提供する
type Service struct {
	repo     Repository
	embedder Embedder
	logger   *slog.Logger
}

// NewService はServiceを作成する
func NewService(repo Repository, embedder Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		embedder: embedder,
		logger:   logger,
	}
}

// Search はハイブリッド検索を実行する。
// ベクトル検索を主経路とし、Embedding生成失敗・候補ゼロの場合のみ
// キーワード検索にフォールバックする（両経路が混ざることはない）。
// インフラ障害は可能な限り結果の減少として扱い、エラーにしない。
func (s *Service) Search(ctx context.Context, params Params) ([]*Result, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	threshold := params.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	includeKeywords := true
	if params.IncludeKeywords != nil {
		includeKeywords = *params.IncludeKeywords
	}

	start := time.Now()

	// チャンネルスコープはEmbedding生成より先に解決する。
	// 解決できないスコープ指定は空結果であり、下流の外部呼び出しを行わない。
	var channelID *uuid.UUID
	if params.ChannelHandle != nil && *params.ChannelHandle != "" {
		id, ok, err := s.repo.ResolveChannel(ctx, *params.ChannelHandle)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve channel scope: %w", err)
		}
		if !ok {
			s.logger.Info("channel scope not found, returning empty results", slog.String("handle", *params.ChannelHandle))
			return []*Result{}, nil
		}
		channelID = &id
	}

	queryKeywords := extract.QueryKeywords(params.Query)

	var results []*Result
	queryVector, embErr := s.embedder.Embed(ctx, params.Query)
	if embErr != nil {
		s.logger.Warn("query embedding failed, falling back to keyword search", slog.String("error", embErr.Error()))
		results = s.keywordSearch(ctx, queryKeywords, channelID, limit)
	} else {
		hits, err := s.repo.VectorSearch(ctx, queryVector, channelID, threshold, limit*candidateMultiplier)
		switch {
		case err != nil:
			s.logger.Warn("vector search failed, falling back to keyword search", slog.String("error", err.Error()))
			results = s.keywordSearch(ctx, queryKeywords, channelID, limit)
		case len(hits) == 0:
			results = s.keywordSearch(ctx, queryKeywords, channelID, limit)
		default:
			results = s.assembleVectorResults(ctx, hits, params.Query, queryKeywords, includeKeywords, limit)
		}
	}

	s.logQuery(ctx, &QueryLog{
		ChannelID:       channelID,
		Query:           params.Query,
		QueryEmbedding:  queryVector,
		ResultsCount:    len(results),
		ExecutionTimeMs: int(time.Since(start).Milliseconds()),
	})

	return results, nil
}

// assembleVectorResults はベクトル検索候補を表示情報・キーワードでエンリッチし、
// 合成スコアで再ランクして上位limit件を返す
func (s *Service) assembleVectorResults(ctx context.Context, hits []*ChunkHit, query string, queryKeywords []string, includeKeywords bool, limit int) []*Result {
	results := make([]*Result, 0, len(hits))
	for _, hit := range hits {
		vc, err := s.repo.GetVideoChannel(ctx, hit.VideoID)
		if err != nil {
			// 親動画・チャンネルを解決できないチャンクはスキップして続行
			s.logger.Warn("skipping chunk with unresolved video",
				slog.String("chunkID", hit.ChunkID.String()),
				slog.String("error", err.Error()))
			continue
		}

		var matched []string
		if includeKeywords {
			matched = s.matchedKeywords(ctx, hit.ChunkID, queryKeywords)
		}

		results = append(results, &Result{
			ChunkID:           hit.ChunkID,
			VideoID:           vc.VideoID,
			ExternalVideoID:   vc.ExternalVideoID,
			VideoTitle:        vc.Title,
			VideoURL:          vc.VideoURL,
			ChannelID:         vc.ChannelID,
			ChannelName:       vc.ChannelName,
			ExternalChannelID: vc.ExternalChannelID,
			Content:           hit.Content,
			StartTime:         hit.StartTime,
			EndTime:           hit.EndTime,
			Similarity:        hit.Similarity,
			Score:             compositeScore(hit.Similarity, len(matched), query, hit.Content),
			MatchedKeywords:   matched,
		})
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// keywordSearch はキーワードのみの検索経路。
// 失敗はこの経路が最後の手段であるため、エラーではなく空結果として扱う。
func (s *Service) keywordSearch(ctx context.Context, queryKeywords []string, channelID *uuid.UUID, limit int) []*Result {
	if len(queryKeywords) == 0 {
		return []*Result{}
	}

	hits, err := s.repo.KeywordSearch(ctx, queryKeywords, channelID, limit*candidateMultiplier)
	if err != nil {
		s.logger.Warn("keyword search failed", slog.String("error", err.Error()))
		return []*Result{}
	}

	// チャンク単位に集約する（1チャンクが複数キーワードにマッチしうる）
	type chunkGroup struct {
		hit     *ChunkHit
		matched []string
		seen    map[string]struct{}
	}
	order := make([]uuid.UUID, 0, len(hits))
	groups := make(map[uuid.UUID]*chunkGroup, len(hits))
	for _, hit := range hits {
		g, ok := groups[hit.ChunkID]
		if !ok {
			g = &chunkGroup{
				hit: &ChunkHit{
					ChunkID:   hit.ChunkID,
					VideoID:   hit.VideoID,
					Content:   hit.Content,
					StartTime: hit.StartTime,
					EndTime:   hit.EndTime,
				},
				seen: make(map[string]struct{}),
			}
			groups[hit.ChunkID] = g
			order = append(order, hit.ChunkID)
		}
		if _, dup := g.seen[hit.Keyword]; !dup {
			g.seen[hit.Keyword] = struct{}{}
			g.matched = append(g.matched, hit.Keyword)
		}
	}

	results := make([]*Result, 0, len(order))
	for _, chunkID := range order {
		g := groups[chunkID]
		vc, err := s.repo.GetVideoChannel(ctx, g.hit.VideoID)
		if err != nil {
			s.logger.Warn("skipping chunk with unresolved video",
				slog.String("chunkID", chunkID.String()),
				slog.String("error", err.Error()))
			continue
		}

		results = append(results, &Result{
			ChunkID:           g.hit.ChunkID,
			VideoID:           vc.VideoID,
			ExternalVideoID:   vc.ExternalVideoID,
			VideoTitle:        vc.Title,
			VideoURL:          vc.VideoURL,
			ChannelID:         vc.ChannelID,
			ChannelName:       vc.ChannelName,
			ExternalChannelID: vc.ExternalChannelID,
			Content:           g.hit.Content,
			StartTime:         g.hit.StartTime,
			EndTime:           g.hit.EndTime,
			Similarity:        0,
			Score:             keywordOnlyScore(queryKeywords, g.matched),
			MatchedKeywords:   g.matched,
		})
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// matchedKeywords はチャンクの保存済みキーワードのうち、クエリキーワードと
// 部分一致（大文字小文字無視）するものを返す
func (s *Service) matchedKeywords(ctx context.Context, chunkID uuid.UUID, queryKeywords []string) []string {
	if len(queryKeywords) == 0 {
		return nil
	}

	stored, err := s.repo.ListChunkKeywords(ctx, chunkID)
	if err != nil {
		s.logger.Warn("failed to list chunk keywords",
			slog.String("chunkID", chunkID.String()),
			slog.String("error", err.Error()))
		return nil
	}

	var matched []string
	for _, kw := range stored {
		for _, qk := range queryKeywords {
			if containsFold(kw, qk) {
				matched = append(matched, kw)
				break
			}
		}
	}
	return matched
}

// logQuery は検索クエリログをベストエフォートで記録する。
// 記録失敗で検索自体を失敗させることはない。
func (s *Service) logQuery(ctx context.Context, log *QueryLog) {
	if err := s.repo.LogQuery(ctx, log); err != nil {
		s.logger.Warn("failed to log search query", slog.String("error", err.Error()))
	}
}

func sortByScore(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
