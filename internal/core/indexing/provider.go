package indexing

import (
	"context"
	"time"
)

// ChannelMeta は外部コラボレーターが返すチャンネルメタデータ
type ChannelMeta struct {
	ExternalChannelID string
	Name              string
	URL               string
	Description       *string
	SubscriberCount   *int64
	ThumbnailURL      *string
}

// VideoMeta は外部コラボレーターが返す動画メタデータ
type VideoMeta struct {
	ExternalID      string
	Title           string
	Description     *string
	PublishedAt     *time.Time
	DurationSeconds *int
	ViewCount       *int64
	LikeCount       *int64
	ThumbnailURL    *string
	VideoURL        string
}

// Transcript は取得済みの文字起こしを表す。
// TitleとDescriptionは字幕取得時により正確な値が得られた場合のみ設定される。
type Transcript struct {
	Text        string
	Title       *string
	Description *string
}

// VideoSource は動画一覧・字幕を取得する外部コラボレーターのポート。
// 実装（YouTube API / yt-dlpサブプロセス等）はこのコアの範囲外。
type VideoSource interface {
	// ResolveChannel はチャンネルURL/ハンドルをチャンネルメタデータに解決する。
	// 解決できない場合は ErrInvalidChannelReference を返す。
	ResolveChannel(ctx context.Context, channelURL string) (*ChannelMeta, error)

	// ListVideos はチャンネルの動画一覧を返す。maxCount > 0 の場合は先頭から切り詰める。
	ListVideos(ctx context.Context, channelURL string, maxCount int) ([]*VideoMeta, error)

	// FetchTranscript は動画の字幕とメタデータを取得する。
	// 字幕が存在しない場合は ErrTranscriptUnavailable を返す。
	FetchTranscript(ctx context.Context, video *VideoMeta) (*Transcript, error)
}
