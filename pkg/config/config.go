package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// HuggingFace設定（固有表現抽出用）
	HuggingFace HuggingFaceConfig

	// yt-dlp設定（動画メタデータ・字幕取得用）
	YtDlp YtDlpConfig

	// インデックス化パイプライン設定
	Indexing IndexingConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定（Embeddings）
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
}

// HuggingFaceConfig はHuggingFace Inference API設定（NER）
type HuggingFaceConfig struct {
	APIKey   string
	Model    string
	Endpoint string
}

// YtDlpConfig はyt-dlpサブプロセス設定
type YtDlpConfig struct {
	BinaryPath string
	// Timeout は1回のサブプロセス呼び出しのタイムアウト
	Timeout time.Duration
}

// IndexingConfig はインデックス化パイプラインのポリシー設定
type IndexingConfig struct {
	// VideoBatchSize は同時に処理する動画数
	VideoBatchSize int
	// ChunkBatchSize は同時にキーワード抽出・Embedding生成するチャンク数
	ChunkBatchSize int
	// TargetChunkTokens はチャンクの目標トークン数
	TargetChunkTokens int
	// OverlapTokens はチャンク間のオーバーラップトークン数
	OverlapTokens int
	// MaxKeywordsPerChunk はチャンクあたりの最大保存キーワード数
	MaxKeywordsPerChunk int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "vodrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "vodrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		HuggingFace: HuggingFaceConfig{
			APIKey:   getEnv("HUGGINGFACE_API_KEY", ""),
			Model:    getEnv("HUGGINGFACE_NER_MODEL", "dslim/bert-base-NER"),
			Endpoint: getEnv("HUGGINGFACE_ENDPOINT", "https://api-inference.huggingface.co"),
		},
		YtDlp: YtDlpConfig{
			BinaryPath: getEnv("YTDLP_PATH", "yt-dlp"),
			Timeout:    getEnvAsDuration("YTDLP_TIMEOUT", 30*time.Second),
		},
		Indexing: IndexingConfig{
			VideoBatchSize:      getEnvAsInt("INDEX_VIDEO_BATCH_SIZE", 3),
			ChunkBatchSize:      getEnvAsInt("INDEX_CHUNK_BATCH_SIZE", 10),
			TargetChunkTokens:   getEnvAsInt("INDEX_TARGET_CHUNK_TOKENS", 500),
			OverlapTokens:       getEnvAsInt("INDEX_OVERLAP_TOKENS", 50),
			MaxKeywordsPerChunk: getEnvAsInt("INDEX_MAX_KEYWORDS_PER_CHUNK", 20),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数をDurationとして取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
