package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/vod-rag/cmd/vod-rag/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "vod-rag",
		Usage: "動画チャンネルの文字起こしを対象としたセマンティック検索基盤",
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "インデックス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "channel",
						Usage: "チャンネルの動画をインデックス化",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "channel",
								Usage:    "チャンネルURL・@ハンドル・チャンネルID",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "max-videos",
								Usage: "処理する動画数の上限（0は無制限）",
								Value: 0,
							},
							&cli.BoolFlag{
								Name:  "tiktoken",
								Usage: "チャンク分割にtiktokenの正確なトークンカウントを使用",
							},
						},
						Action: commands.IndexChannelAction,
					},
					{
						Name:  "status",
						Usage: "チャンネルの最新インデックス化状態を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "channel",
								Usage:    "外部チャンネルID",
								Required: true,
							},
						},
						Action: commands.IndexStatusAction,
					},
				},
			},
			{
				Name:  "search",
				Usage: "インデックス済みチャンネルをハイブリッド検索",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "query",
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "channel",
						Usage: "外部チャンネルIDでスコープを限定",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "返す結果の最大件数",
						Value: 10,
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "ベクトル検索の類似度閾値",
						Value: 0.5,
					},
					&cli.BoolFlag{
						Name:  "no-keywords",
						Usage: "マッチしたキーワードを結果に含めない",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "JSON形式で出力",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "channel",
				Usage: "チャンネル管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "登録済みチャンネル一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.ChannelListAction,
					},
				},
			},
			{
				Name:  "db",
				Usage: "データベース管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "migrate",
						Usage: "スキーマを適用",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.DBMigrateAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
