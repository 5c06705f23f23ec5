package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/vod-rag/internal/core/extract"
	"github.com/jinford/vod-rag/internal/core/indexing"
	"github.com/jinford/vod-rag/internal/core/segment"
	"github.com/jinford/vod-rag/internal/infra/hf"
	"github.com/jinford/vod-rag/internal/infra/openai"
	"github.com/jinford/vod-rag/internal/infra/postgres"
	"github.com/jinford/vod-rag/internal/infra/ytdlp"
	"github.com/jinford/vod-rag/pkg/lock"
)

// IndexChannelAction はチャンネルをインデックス化するコマンドのアクション
func IndexChannelAction(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.String("channel")
	maxVideos := int(cmd.Int("max-videos"))
	useTiktoken := cmd.Bool("tiktoken")
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("チャンネルインデックス処理を開始",
		"channel", channel,
		"maxVideos", maxVideos,
	)

	service, err := buildIndexingService(appCtx, useTiktoken)
	if err != nil {
		return err
	}

	result, err := service.IndexChannel(ctx, channel, maxVideos)
	if err != nil {
		slog.Error("チャンネルインデックス処理に失敗しました", "error", err)
		return err
	}

	fmt.Printf("インデックス化が完了しました\n")
	fmt.Printf("  対象動画数:   %d\n", result.TotalVideos)
	fmt.Printf("  処理済み:     %d\n", result.ProcessedVideos)
	fmt.Printf("  スキップ:     %d\n", result.SkippedVideos)
	fmt.Printf("  失敗:         %d\n", result.FailedVideos)
	fmt.Printf("  生成チャンク: %d\n", result.TotalChunks)
	fmt.Printf("  所要時間:     %s\n", result.Duration)

	return nil
}

// buildIndexingService は設定からインデックス化サービスを組み立てる
func buildIndexingService(appCtx *AppContext, useTiktoken bool) (*indexing.Service, error) {
	cfg := appCtx.Config
	pool := appCtx.Database.Pool

	segmentOpts := []segment.Option{
		segment.WithTargetTokens(cfg.Indexing.TargetChunkTokens),
		segment.WithOverlapTokens(cfg.Indexing.OverlapTokens),
	}
	if useTiktoken {
		counter, err := segment.NewTiktokenCounter()
		if err != nil {
			return nil, fmt.Errorf("トークンカウンターの初期化に失敗: %w", err)
		}
		segmentOpts = append(segmentOpts, segment.WithTokenCounter(counter))
	}
	segmenter := segment.New(segmentOpts...)

	recognizer := hf.NewRecognizer(cfg.HuggingFace.APIKey,
		hf.WithEndpoint(cfg.HuggingFace.Endpoint),
		hf.WithModel(cfg.HuggingFace.Model),
	)
	extractor := extract.New(recognizer, extract.WithLogger(appCtx.Logger))

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	source := ytdlp.NewSource(
		ytdlp.WithBinaryPath(cfg.YtDlp.BinaryPath),
		ytdlp.WithTimeout(cfg.YtDlp.Timeout),
		ytdlp.WithLogger(appCtx.Logger),
	)

	return indexing.NewService(
		source,
		segmenter,
		extractor,
		embedder,
		postgres.NewChannelRepository(pool),
		postgres.NewVideoRepository(pool),
		postgres.NewChunkRepository(pool),
		postgres.NewKeywordRepository(pool),
		postgres.NewStatusRepository(pool),
		lock.NewManager(pool),
		indexing.Config{
			VideoBatchSize:      cfg.Indexing.VideoBatchSize,
			ChunkBatchSize:      cfg.Indexing.ChunkBatchSize,
			MaxKeywordsPerChunk: cfg.Indexing.MaxKeywordsPerChunk,
		},
		appCtx.Logger,
	), nil
}

// IndexStatusAction はチャンネルの最新インデックス化状態を表示するコマンドのアクション
func IndexStatusAction(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.String("channel")
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	catalog := postgres.NewCatalogRepository(appCtx.Database.Pool)
	status, err := catalog.LatestIndexStatus(ctx, channel)
	if err != nil {
		return err
	}
	if status == nil {
		fmt.Printf("チャンネル %s のインデックス化状態はありません\n", channel)
		return nil
	}

	fmt.Printf("チャンネル:     %s\n", channel)
	fmt.Printf("状態:           %s\n", status.Status)
	fmt.Printf("進捗:           %d%%\n", status.Progress)
	fmt.Printf("動画:           %d/%d\n", status.ProcessedVideos, status.TotalVideos)
	fmt.Printf("チャンク:       %d\n", status.TotalChunks)
	fmt.Printf("開始:           %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
	if status.CompletedAt != nil {
		fmt.Printf("完了:           %s\n", status.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if status.ErrorMessage != nil {
		fmt.Printf("エラー:         %s\n", *status.ErrorMessage)
	}

	return nil
}
