package indexing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChannelRepository はチャンネルの永続化ポート
type ChannelRepository interface {
	// Upsert は外部チャンネルIDをキーに冪等なupsertを行う
	Upsert(ctx context.Context, channel *Channel) (*Channel, error)

	// MarkIndexed は isIndexed=true / lastIndexedAt を1回の呼び出しで設定する
	MarkIndexed(ctx context.Context, channelID uuid.UUID, at time.Time) error
}

// VideoRepository は動画の永続化ポート
type VideoRepository interface {
	// Upsert は外部動画IDをキーに冪等なupsertを行う
	Upsert(ctx context.Context, video *Video) (*Video, error)
}

// ChunkRepository は文字起こしチャンクの永続化ポート
type ChunkRepository interface {
	// DeleteByVideo は動画配下のチャンクを全削除する（再インデックス時の重複防止）
	DeleteByVideo(ctx context.Context, videoID uuid.UUID) error

	// BatchCreate はチャンクをchunkIndex順に一括作成する
	BatchCreate(ctx context.Context, chunks []*TranscriptChunk) error

	// UpdateEmbedding はチャンクにEmbeddingベクトルを付与する
	UpdateEmbedding(ctx context.Context, chunkID uuid.UUID, vector []float32) error
}

// KeywordRepository はキーワードの永続化ポート
type KeywordRepository interface {
	// DeleteByVideo は動画配下のキーワードを全削除する
	DeleteByVideo(ctx context.Context, videoID uuid.UUID) error

	// BatchCreate はキーワードを一括作成する（更新はしない、挿入のみ）
	BatchCreate(ctx context.Context, keywords []*Keyword) error
}

// StatusRepository はインデックス化状態の永続化ポート。
// 実行中はオーケストレーターのみが書き込む（single-writer）。
type StatusRepository interface {
	// Create は新しいIndexStatus行を pending/0% で作成する
	Create(ctx context.Context, channelID uuid.UUID) (*IndexStatus, error)

	// Update はIndexStatus行を上書きする
	Update(ctx context.Context, status *IndexStatus) error
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// UnlockFunc は取得済みロックを解放する
type UnlockFunc func(ctx context.Context) error

// RunLocker はチャンネル単位のsingle-flightガード。
// 同一チャンネルへの並行実行がIndexStatus行を競合させるのを防ぐ。
type RunLocker interface {
	// TryLock はキーのロック取得を試みる。取得できなければ ErrIndexingInProgress を返す。
	TryLock(ctx context.Context, key string) (UnlockFunc, error)
}
