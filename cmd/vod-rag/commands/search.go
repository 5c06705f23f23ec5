package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/vod-rag/internal/core/search"
	"github.com/jinford/vod-rag/internal/infra/openai"
	"github.com/jinford/vod-rag/internal/infra/postgres"
)

// SearchAction はハイブリッド検索を実行するコマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	query := cmd.String("query")
	channel := cmd.String("channel")
	limit := int(cmd.Int("limit"))
	threshold := cmd.Float("threshold")
	noKeywords := cmd.Bool("no-keywords")
	asJSON := cmd.Bool("json")
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	embedder := openai.NewEmbedder(appCtx.Config.OpenAI.APIKey,
		openai.WithEmbeddingModel(appCtx.Config.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(appCtx.Config.OpenAI.EmbeddingDimension),
	)
	service := search.NewService(
		postgres.NewSearchRepository(appCtx.Database.Pool),
		embedder,
		appCtx.Logger,
	)

	params := search.Params{
		Query:               query,
		Limit:               limit,
		SimilarityThreshold: threshold,
	}
	if channel != "" {
		params.ChannelHandle = &channel
	}
	if noKeywords {
		includeKeywords := false
		params.IncludeKeywords = &includeKeywords
	}

	results, err := service.Search(ctx, params)
	if err != nil {
		return err
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("該当する結果はありませんでした")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, result.Score, result.VideoTitle, result.ChannelName)
		fmt.Printf("   %s (%s〜%s)\n", result.VideoURL, formatSeconds(result.StartTime), formatSeconds(result.EndTime))
		fmt.Printf("   %s\n", truncate(result.Content, 200))
		if len(result.MatchedKeywords) > 0 {
			fmt.Printf("   キーワード: %s\n", strings.Join(result.MatchedKeywords, ", "))
		}
		fmt.Println()
	}

	return nil
}

// formatSeconds は秒数を mm:ss 形式にする
func formatSeconds(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// truncate は表示用に本文を切り詰める
func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
