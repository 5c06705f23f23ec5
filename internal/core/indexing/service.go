package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jinford/vod-rag/internal/core/extract"
	"github.com/jinford/vod-rag/internal/core/segment"
)

const (
	// DefaultVideoBatchSize は同時に処理する動画数のデフォルト
	DefaultVideoBatchSize = 3
	// DefaultChunkBatchSize は同時にエンリッチするチャンク数のデフォルト
	DefaultChunkBatchSize = 10
	// DefaultMaxKeywordsPerChunk はチャンクあたりの最大保存キーワード数
	DefaultMaxKeywordsPerChunk = 20
)

// Config はインデックス化パイプラインのポリシー設定。
// バッチサイズは外部API・サブプロセスの同時実行数を抑えるための定数であり、
// 設計上の不変条件ではない。
type Config struct {
	VideoBatchSize      int
	ChunkBatchSize      int
	MaxKeywordsPerChunk int
}

// DefaultConfig はデフォルトのパイプライン設定を返す
func DefaultConfig() Config {
	return Config{
		VideoBatchSize:      DefaultVideoBatchSize,
		ChunkBatchSize:      DefaultChunkBatchSize,
		MaxKeywordsPerChunk: DefaultMaxKeywordsPerChunk,
	}
}

// Service はチャンネル単位のインデックス化フローを統括します
type Service struct {
	source    VideoSource
	segmenter *segment.Segmenter
	extractor *extract.Extractor
	embedder  Embedder
	channels  ChannelRepository
	videos    VideoRepository
	chunks    ChunkRepository
	keywords  KeywordRepository
	statuses  StatusRepository
	locker    RunLocker
	config    Config
	logger    *slog.Logger
}

// NewService は新しいServiceを作成します
func NewService(
	source VideoSource,
	segmenter *segment.Segmenter,
	extractor *extract.Extractor,
	embedder Embedder,
	channels ChannelRepository,
	videos VideoRepository,
	chunks ChunkRepository,
	keywords KeywordRepository,
	statuses StatusRepository,
	locker RunLocker,
	config Config,
	logger *slog.Logger,
) *Service {
	if config.VideoBatchSize <= 0 {
		config.VideoBatchSize = DefaultVideoBatchSize
	}
	if config.ChunkBatchSize <= 0 {
		config.ChunkBatchSize = DefaultChunkBatchSize
	}
	if config.MaxKeywordsPerChunk <= 0 {
		config.MaxKeywordsPerChunk = DefaultMaxKeywordsPerChunk
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		source:    source,
		segmenter: segmenter,
		extractor: extractor,
		embedder:  embedder,
		channels:  channels,
		videos:    videos,
		chunks:    chunks,
		keywords:  keywords,
		statuses:  statuses,
		locker:    locker,
		config:    config,
		logger:    logger,
	}
}

// videoOutcome は1動画の処理結果を表す
type videoOutcome int

const (
	outcomeProcessed videoOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// IndexChannel はチャンネルのインデックス化フローを実行します。
// 状態機械: pending → indexing_videos → completed、非終端状態からは failed に遷移可能。
// 動画単位の失敗は封じ込めて集計し、境界を越えたエラーのみが実行全体を失敗させる。
func (s *Service) IndexChannel(ctx context.Context, channelURL string, maxVideos int) (*RunResult, error) {
	startTime := time.Now()

	// チャンネル参照の解決に失敗した場合は状態を一切変更せず返す
	meta, err := s.source.ResolveChannel(ctx, channelURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel: %w", err)
	}

	// 同一チャンネルへの並行実行を防ぐsingle-flightガード
	unlock, err := s.locker.TryLock(ctx, "index:"+meta.ExternalChannelID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := unlock(ctx); uerr != nil {
			s.logger.Warn("failed to release run lock",
				"channel", meta.ExternalChannelID,
				"error", uerr,
			)
		}
	}()

	channel, err := s.channels.Upsert(ctx, &Channel{
		ExternalChannelID: meta.ExternalChannelID,
		Name:              meta.Name,
		URL:               meta.URL,
		Description:       meta.Description,
		SubscriberCount:   meta.SubscriberCount,
		ThumbnailURL:      meta.ThumbnailURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert channel: %w", err)
	}

	status, err := s.statuses.Create(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create index status: %w", err)
	}

	s.logger.Info("インデックス化を開始",
		"channel", meta.ExternalChannelID,
		"url", channelURL,
		"maxVideos", maxVideos,
	)

	result, runErr := s.run(ctx, channel, status, channelURL, maxVideos)
	if runErr != nil {
		// 動画単位の境界を越えたエラーは構造的失敗として実行全体を失敗させる
		msg := runErr.Error()
		now := time.Now()
		status.Status = StatusFailed
		status.ErrorMessage = &msg
		status.CompletedAt = &now
		if uerr := s.statuses.Update(ctx, status); uerr != nil {
			s.logger.Error("failed to persist failed status", "error", uerr)
		}
		return nil, runErr
	}

	result.Duration = time.Since(startTime)

	s.logger.Info("インデックス化が完了",
		"channel", meta.ExternalChannelID,
		"totalVideos", result.TotalVideos,
		"processed", result.ProcessedVideos,
		"skipped", result.SkippedVideos,
		"failed", result.FailedVideos,
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result, nil
}

// run は動画の列挙からチャンク・キーワード・Embeddingの永続化までを実行する
func (s *Service) run(ctx context.Context, channel *Channel, status *IndexStatus, channelURL string, maxVideos int) (*RunResult, error) {
	videos, err := s.source.ListVideos(ctx, channelURL, maxVideos)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel videos: %w", err)
	}

	status.Status = StatusIndexingVideos
	status.Progress = 10
	status.TotalVideos = len(videos)
	if err := s.statuses.Update(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to update index status: %w", err)
	}

	// 列挙結果から導出される動画数をチャンネルに反映する
	videoCount := len(videos)
	channel.VideoCount = &videoCount
	if _, err := s.channels.Upsert(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to update channel video count: %w", err)
	}

	result := &RunResult{ChannelID: channel.ID, TotalVideos: len(videos)}

	// 動画はバッチ内で並行、バッチ同士は逐次
	for start := 0; start < len(videos); start += s.config.VideoBatchSize {
		end := min(start+s.config.VideoBatchSize, len(videos))
		batch := videos[start:end]

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, meta := range batch {
			g.Go(func() error {
				outcome, chunkCount := s.processVideo(gctx, channel, meta)

				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case outcomeProcessed:
					result.ProcessedVideos++
					result.TotalChunks += chunkCount
				case outcomeSkipped:
					result.SkippedVideos++
				case outcomeFailed:
					result.FailedVideos++
				}
				// 動画単位の失敗はここで封じ込める（バッチも実行も止めない）
				return nil
			})
		}
		_ = g.Wait()

		processed := result.ProcessedVideos + result.SkippedVideos + result.FailedVideos
		// 動画処理は進捗スケールの20〜50%帯を占める
		if status.TotalVideos > 0 {
			status.Progress = int(math.Round(20 + float64(processed)/float64(status.TotalVideos)*30))
		}
		status.ProcessedVideos = processed
		status.TotalChunks = result.TotalChunks
		status.ProcessedChunks = result.TotalChunks
		if err := s.statuses.Update(ctx, status); err != nil {
			return nil, fmt.Errorf("failed to update index status: %w", err)
		}

		s.logger.Info("バッチ処理完了",
			"processed", processed,
			"total", status.TotalVideos,
			"progress", status.Progress,
		)
	}

	// 完全な実行が成功した場合のみチャンネルをインデックス済みにする
	if err := s.channels.MarkIndexed(ctx, channel.ID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to mark channel indexed: %w", err)
	}

	now := time.Now()
	status.Status = StatusCompleted
	status.Progress = 100
	status.CompletedAt = &now
	if err := s.statuses.Update(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to update index status: %w", err)
	}

	return result, nil
}

// processVideo は1動画の取得・分割・エンリッチ・永続化を行う。
// エラーはすべてこの境界で封じ込め、outcomeとして返す。
func (s *Service) processVideo(ctx context.Context, channel *Channel, meta *VideoMeta) (videoOutcome, int) {
	transcript, err := s.source.FetchTranscript(ctx, meta)
	if err != nil {
		if errors.Is(err, ErrTranscriptUnavailable) {
			// 字幕なしの動画はチャンクを作らず静かにスキップする
			if _, uerr := s.videos.Upsert(ctx, s.videoRow(channel.ID, meta, nil)); uerr != nil {
				s.logger.Warn("failed to upsert video without transcript",
					"videoID", meta.ExternalID,
					"error", uerr,
				)
				return outcomeFailed, 0
			}
			s.logger.Info("字幕が取得できないためスキップ", "videoID", meta.ExternalID)
			return outcomeSkipped, 0
		}
		s.logger.Warn("動画の字幕取得に失敗",
			"videoID", meta.ExternalID,
			"error", err,
		)
		return outcomeFailed, 0
	}

	video, err := s.videos.Upsert(ctx, s.videoRow(channel.ID, meta, transcript))
	if err != nil {
		s.logger.Warn("failed to upsert video", "videoID", meta.ExternalID, "error", err)
		return outcomeFailed, 0
	}

	// 再インデックス時の重複を防ぐため、派生行を先に削除する
	if err := s.keywords.DeleteByVideo(ctx, video.ID); err != nil {
		s.logger.Warn("failed to delete stale keywords", "videoID", video.ID, "error", err)
		return outcomeFailed, 0
	}
	if err := s.chunks.DeleteByVideo(ctx, video.ID); err != nil {
		s.logger.Warn("failed to delete stale chunks", "videoID", video.ID, "error", err)
		return outcomeFailed, 0
	}

	segments := s.segmenter.Segment(transcript.Text)
	if len(segments) == 0 {
		return outcomeSkipped, 0
	}

	// chunkIndexは並行処理に入る前に決定的に割り当てる
	chunkRows := make([]*TranscriptChunk, 0, len(segments))
	for i, seg := range segments {
		chunkRows = append(chunkRows, &TranscriptChunk{
			ID:         uuid.New(),
			VideoID:    video.ID,
			ChunkIndex: i,
			Content:    seg.Text,
			StartTime:  seg.StartTime,
			EndTime:    seg.EndTime,
			TokenCount: seg.TokenCount,
		})
	}

	if err := s.chunks.BatchCreate(ctx, chunkRows); err != nil {
		s.logger.Warn("failed to create chunks", "videoID", video.ID, "error", err)
		return outcomeFailed, 0
	}

	s.enrichChunks(ctx, video.ID, chunkRows)

	return outcomeProcessed, len(chunkRows)
}

// enrichChunks はキーワード抽出とEmbedding生成をチャンク単位で並行実行する。
// 同時実行数はChunkBatchSizeで制限し、外部APIへの負荷を抑える。
func (s *Service) enrichChunks(ctx context.Context, videoID uuid.UUID, chunks []*TranscriptChunk) {
	pool, err := ants.NewPool(s.config.ChunkBatchSize)
	if err != nil {
		// プール作成に失敗した場合は逐次処理にフォールバック
		s.logger.Warn("failed to create worker pool, falling back to serial", "error", err)
		for _, chunk := range chunks {
			s.enrichChunk(ctx, videoID, chunk)
		}
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		c := chunk
		if err := pool.Submit(func() {
			defer wg.Done()
			s.enrichChunk(ctx, videoID, c)
		}); err != nil {
			wg.Done()
			s.enrichChunk(ctx, videoID, c)
		}
	}
	wg.Wait()
}

// enrichChunk は1チャンクのキーワード抽出・永続化とEmbedding付与を行う。
// どちらの失敗もチャンク単位で封じ込める。
func (s *Service) enrichChunk(ctx context.Context, videoID uuid.UUID, chunk *TranscriptChunk) {
	extraction, err := s.extractor.Extract(ctx, chunk.Content)
	if err != nil {
		// NER失敗は空のキーワード集合として扱う
		s.logger.Warn("keyword extraction failed",
			"chunkID", chunk.ID,
			"error", err,
		)
	} else if len(extraction.Keywords) > 0 {
		kws := extraction.Keywords
		if len(kws) > s.config.MaxKeywordsPerChunk {
			kws = kws[:s.config.MaxKeywordsPerChunk]
		}

		rows := make([]*Keyword, 0, len(kws))
		for _, kw := range kws {
			entityType := kw.EntityType
			score := int(math.Round(kw.Score * 100))
			rows = append(rows, &Keyword{
				ID:         uuid.New(),
				VideoID:    videoID,
				ChunkID:    &chunk.ID,
				Keyword:    kw.Word,
				EntityType: &entityType,
				Confidence: score,
				Frequency:  countOccurrences(chunk.Content, kw.Word),
				Relevance:  score,
			})
		}
		if err := s.keywords.BatchCreate(ctx, rows); err != nil {
			s.logger.Warn("failed to create keywords", "chunkID", chunk.ID, "error", err)
		}
	}

	vector, err := s.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		// Embedding失敗時はnullのまま。キーワード検索では引き続き到達可能。
		s.logger.Warn("embedding generation failed",
			"chunkID", chunk.ID,
			"error", err,
		)
		return
	}
	if err := s.chunks.UpdateEmbedding(ctx, chunk.ID, vector); err != nil {
		s.logger.Warn("failed to attach embedding", "chunkID", chunk.ID, "error", err)
	}
}

// videoRow はVideoMetaと取得済み字幕からVideo行を組み立てる
func (s *Service) videoRow(channelID uuid.UUID, meta *VideoMeta, transcript *Transcript) *Video {
	video := &Video{
		ExternalVideoID: meta.ExternalID,
		ChannelID:       channelID,
		Title:           meta.Title,
		Description:     meta.Description,
		PublishedAt:     meta.PublishedAt,
		DurationSeconds: meta.DurationSeconds,
		ViewCount:       meta.ViewCount,
		LikeCount:       meta.LikeCount,
		ThumbnailURL:    meta.ThumbnailURL,
		VideoURL:        meta.VideoURL,
	}

	// 字幕フィールドは取得に成功した場合のみ設定する
	if transcript != nil {
		text := transcript.Text
		length := utf8.RuneCountInString(text)
		video.Transcript = &text
		video.TranscriptLength = &length
		video.TranscriptAvailable = true
		if transcript.Title != nil {
			video.Title = *transcript.Title
		}
		if transcript.Description != nil {
			video.Description = transcript.Description
		}
	}

	return video
}

// countOccurrences はチャンク本文中のキーワード出現回数を返す（最低1）
func countOccurrences(content, word string) int {
	count := strings.Count(strings.ToLower(content), strings.ToLower(word))
	if count < 1 {
		return 1
	}
	return count
}
