package search

import (
	"github.com/google/uuid"
)

// Params は検索パラメータを表す
type Params struct {
	// Query は検索クエリ（必須）
	Query string
	// ChannelHandle は外部向けのチャンネルハンドル（任意スコープ）
	ChannelHandle *string
	// Limit は返す結果の最大件数（デフォルト: 10）
	Limit int
	// SimilarityThreshold はベクトル検索の類似度閾値（デフォルト: 0.5）
	SimilarityThreshold float64
	// IncludeKeywords はマッチしたキーワードを結果に含めるか（デフォルト: true）
	IncludeKeywords *bool
}

// Result はハイブリッド検索の1結果を表す
type Result struct {
	ChunkID           uuid.UUID `json:"chunkID"`
	VideoID           uuid.UUID `json:"videoID"`
	ExternalVideoID   string    `json:"externalVideoID"`
	VideoTitle        string    `json:"videoTitle"`
	VideoURL          string    `json:"videoURL"`
	ChannelID         uuid.UUID `json:"channelID"`
	ChannelName       string    `json:"channelName"`
	ExternalChannelID string    `json:"externalChannelID"`
	Content           string    `json:"content"`
	StartTime         float64   `json:"startTime"`
	EndTime           float64   `json:"endTime"`
	// Similarity はベクトル経路のコサイン類似度（キーワード経路では0）
	Similarity float64 `json:"similarity"`
	// Score は合成関連度スコア（0〜1）
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
}

// ChunkHit はベクトル検索の候補チャンクを表す
type ChunkHit struct {
	ChunkID    uuid.UUID
	VideoID    uuid.UUID
	Content    string
	StartTime  float64
	EndTime    float64
	Similarity float64
}

// KeywordHit はキーワード検索の1マッチを表す
type KeywordHit struct {
	ChunkID    uuid.UUID
	VideoID    uuid.UUID
	Content    string
	StartTime  float64
	EndTime    float64
	Keyword    string
	Confidence int
}

// VideoChannel は結果のエンリッチに使う動画・チャンネル表示情報
type VideoChannel struct {
	VideoID           uuid.UUID
	ExternalVideoID   string
	Title             string
	VideoURL          string
	ChannelID         uuid.UUID
	ChannelName       string
	ExternalChannelID string
}

// QueryLog は検索クエリの分析用ログレコードを表す。
// 検索経路自体からは読み取られない追記専用のサイドチャネル。
type QueryLog struct {
	ChannelID       *uuid.UUID
	Query           string
	QueryEmbedding  []float32
	ResultsCount    int
	ExecutionTimeMs int
}
