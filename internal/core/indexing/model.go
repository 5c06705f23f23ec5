package indexing

import (
	"time"

	"github.com/google/uuid"
)

// Status はチャンネルのインデックス化状態を表す
type Status string

const (
	StatusPending              Status = "pending"
	StatusIndexingVideos       Status = "indexing_videos"
	StatusExtractingTranscript Status = "extracting_transcripts"
	StatusProcessingChunks     Status = "processing_chunks"
	StatusGeneratingEmbeddings Status = "generating_embeddings"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

// Channel はインデックス対象のチャンネルを表す
type Channel struct {
	ID                uuid.UUID
	ExternalChannelID string
	Name              string
	URL               string
	Description       *string
	SubscriberCount   *int64
	VideoCount        *int
	ThumbnailURL      *string
	IsIndexed         bool
	LastIndexedAt     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Video はチャンネル配下の動画を表す
type Video struct {
	ID                  uuid.UUID
	ExternalVideoID     string
	ChannelID           uuid.UUID
	Title               string
	Description         *string
	PublishedAt         *time.Time
	DurationSeconds     *int
	ViewCount           *int64
	LikeCount           *int64
	ThumbnailURL        *string
	VideoURL            string
	Transcript          *string
	TranscriptLength    *int
	TranscriptAvailable bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TranscriptChunk は動画の文字起こしチャンクを表す。
// chunkIndex は動画内で一意な0始まりの連番で、時間範囲は連番順に単調非減少。
// Embedding はnil（未生成）のままでもキーワード検索では到達可能。
type TranscriptChunk struct {
	ID         uuid.UUID
	VideoID    uuid.UUID
	ChunkIndex int
	Content    string
	StartTime  float64
	EndTime    float64
	TokenCount int
	Embedding  []float32
	CreatedAt  time.Time
}

// Keyword は動画（およびオプションでチャンク）に紐づくキーワードを表す。
// ChunkID がnilの場合は動画レベルのキーワード。
type Keyword struct {
	ID         uuid.UUID
	VideoID    uuid.UUID
	ChunkID    *uuid.UUID
	Keyword    string
	EntityType *string
	Confidence int // 0-100
	Frequency  int
	Relevance  int // 0-100
	CreatedAt  time.Time
}

// IndexStatus はチャンネルごとのインデックス化実行状態を表す。
// 実行中かどうかの外部から見た唯一の情報源。
type IndexStatus struct {
	ID              uuid.UUID
	ChannelID       uuid.UUID
	Status          Status
	Progress        int // 0-100
	TotalVideos     int
	ProcessedVideos int
	TotalChunks     int
	ProcessedChunks int
	ErrorMessage    *string
	StartedAt       time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

// RunResult はインデックス化実行の集計結果を表す
type RunResult struct {
	ChannelID       uuid.UUID
	TotalVideos     int
	ProcessedVideos int
	SkippedVideos   int
	FailedVideos    int
	TotalChunks     int
	Duration        time.Duration
}
