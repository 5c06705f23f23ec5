package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const (
	// DefaultWindowChars はNERモデルの入力上限に合わせた固定文字ウィンドウ幅。
	// Segmenterのチャンク境界とは独立した、モデル互換のための二次分割。
	DefaultWindowChars = 2000
	// MinScore はこのスコア以下のヒットを破棄する閾値
	MinScore = 0.5
)

// Entity は外部NERモデルが返す1ヒットを表す
type Entity struct {
	Word       string
	EntityType string
	Score      float64
}

// EntityRecognizer は外部NERモデルのインターフェース
type EntityRecognizer interface {
	// Recognize はテキストから固有表現を抽出する
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// Keyword はスコア付きキーワードを表す
type Keyword struct {
	Word       string  `json:"word"`
	EntityType string  `json:"entityType"`
	Score      float64 `json:"score"`
}

// Extraction はキーワード抽出の結果を表す
type Extraction struct {
	// Keywords はスコア降順のキーワード一覧
	Keywords []Keyword
	// ByType は正規化済みエンティティ種別ごとのグループ
	ByType map[string][]Keyword
}

// Extractor は外部NERモデルをラップし、分割・重複排除・スコアリングを行う
type Extractor struct {
	recognizer  EntityRecognizer
	windowChars int
	logger      *slog.Logger
}

// Option は Extractor のオプション設定
type Option func(*Extractor)

// WithWindowChars はウィンドウ幅を上書きする
func WithWindowChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.windowChars = n
		}
	}
}

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New は新しいExtractorを作成する
func New(recognizer EntityRecognizer, opts ...Option) *Extractor {
	e := &Extractor{
		recognizer:  recognizer,
		windowChars: DefaultWindowChars,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract はテキストからキーワードを抽出する。
// 入力をウィンドウ分割してモデルを呼び、生ヒットを連結したうえで
// 低スコア破棄 → (小文字単語, 種別)キーでの重複排除 → スコア降順ソート →
// 種別グループ化を行う。
func (e *Extractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return &Extraction{Keywords: []Keyword{}, ByType: map[string][]Keyword{}}, nil
	}

	var hits []Entity
	for _, window := range splitWindows(text, e.windowChars) {
		entities, err := e.recognizer.Recognize(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("failed to recognize entities: %w", err)
		}
		hits = append(hits, entities...)
	}

	// 低スコアのヒットを破棄し、(小文字単語, 種別) で最良スコアのみ残す
	best := make(map[string]Entity)
	for _, hit := range hits {
		if hit.Score <= MinScore {
			continue
		}
		key := strings.ToLower(hit.Word) + "\x00" + hit.EntityType
		if prev, ok := best[key]; !ok || hit.Score > prev.Score {
			best[key] = hit
		}
	}

	keywords := make([]Keyword, 0, len(best))
	for _, hit := range best {
		keywords = append(keywords, Keyword{
			Word:       hit.Word,
			EntityType: NormalizeEntityType(hit.EntityType),
			Score:      hit.Score,
		})
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Word < keywords[j].Word
	})

	byType := make(map[string][]Keyword)
	for _, kw := range keywords {
		byType[kw.EntityType] = append(byType[kw.EntityType], kw)
	}

	return &Extraction{Keywords: keywords, ByType: byType}, nil
}

// NormalizeEntityType はBIOタグの接頭辞（B-/I-）を取り除いた種別ラベルを返す
func NormalizeEntityType(entityType string) string {
	normalized := strings.TrimPrefix(entityType, "B-")
	normalized = strings.TrimPrefix(normalized, "I-")
	return normalized
}

// splitWindows はテキストを固定幅の文字ウィンドウに分割する
func splitWindows(text string, windowChars int) []string {
	runes := []rune(text)
	if len(runes) <= windowChars {
		return []string{text}
	}

	windows := make([]string, 0, len(runes)/windowChars+1)
	for start := 0; start < len(runes); start += windowChars {
		end := min(start+windowChars, len(runes))
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}
