package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/vod-rag/internal/infra/postgres"
)

// ChannelListAction は登録済みチャンネル一覧を表示するコマンドのアクション
func ChannelListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	catalog := postgres.NewCatalogRepository(appCtx.Database.Pool)
	channels, err := catalog.ListChannels(ctx)
	if err != nil {
		return err
	}

	if len(channels) == 0 {
		fmt.Println("登録済みチャンネルはありません")
		return nil
	}

	for _, ch := range channels {
		indexed := "未"
		if ch.IsIndexed {
			indexed = "済"
		}
		lastIndexed := "-"
		if ch.LastIndexedAt != nil {
			lastIndexed = ch.LastIndexedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %s\n", ch.ExternalChannelID, ch.Name)
		fmt.Printf("    インデックス: %s (最終: %s)  動画: %d  チャンク: %d\n",
			indexed, lastIndexed, ch.VideoCount, ch.ChunkCount)
	}

	return nil
}
