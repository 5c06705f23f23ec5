package search

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound はチャンクの親動画・チャンネルが解決できない場合のエラー
// （参照整合性の欠落。該当アイテムはスキップされ、検索自体は失敗しない）
var ErrNotFound = errors.New("not found")

// Repository は検索関連の全データアクセスを統合するインターフェース
type Repository interface {
	// ResolveChannel は外部向けハンドルを内部チャンネルIDに解決する。
	// 見つからない場合は ok=false を返す（エラーではない）。
	ResolveChannel(ctx context.Context, handle string) (id uuid.UUID, ok bool, err error)

	// VectorSearch はEmbedding非nullのチャンクをコサイン類似度降順で検索する。
	// similarity > threshold のものだけを返す。
	VectorSearch(ctx context.Context, queryVector []float32, channelID *uuid.UUID, threshold float64, limit int) ([]*ChunkHit, error)

	// KeywordSearch はクエリキーワードの部分一致（大文字小文字無視、OR条件）で
	// キーワード行を検索し、保存済みconfidence降順で返す。
	KeywordSearch(ctx context.Context, keywords []string, channelID *uuid.UUID, limit int) ([]*KeywordHit, error)

	// GetVideoChannel はチャンクの親動画とチャンネルの表示情報を取得する。
	// 解決できない場合は ErrNotFound を返す。
	GetVideoChannel(ctx context.Context, videoID uuid.UUID) (*VideoChannel, error)

	// ListChunkKeywords はチャンクに紐づく保存済みキーワード文字列を返す
	ListChunkKeywords(ctx context.Context, chunkID uuid.UUID) ([]string, error)

	// LogQuery は検索クエリログを追記する
	LogQuery(ctx context.Context, log *QueryLog) error
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}
