package indexing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChannelReference はチャンネルURL/ハンドルを識別子に解決できない場合のエラー。
	// 状態を変更せず即座に呼び出し元へ返す。
	ErrInvalidChannelReference = errors.New("invalid channel reference")

	// ErrTranscriptUnavailable は動画の字幕が取得できない場合のエラー。
	// 動画単位の条件であり、実行全体には致命的でない。
	ErrTranscriptUnavailable = errors.New("transcript unavailable")

	// ErrIndexingInProgress は同一チャンネルへの実行が既に進行中の場合のエラー
	ErrIndexingInProgress = errors.New("indexing already in progress for channel")

	// ErrEmbeddingUnavailable はEmbeddingプロバイダの認証情報が未設定の場合のエラー
	ErrEmbeddingUnavailable = errors.New("embedding provider credential not configured")
)

// ProviderError は外部プロバイダ（Embedding/NER）の呼び出し失敗を表す。
// 上流のHTTPステータスを保持して伝播する。
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
