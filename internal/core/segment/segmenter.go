package segment

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTargetTokens はチャンクの目標トークン数のデフォルト
	DefaultTargetTokens = 500
	// DefaultOverlapTokens はチャンク間オーバーラップのデフォルトトークン数
	DefaultOverlapTokens = 50
)

// Chunk は文字起こしから切り出した1チャンクを表します
type Chunk struct {
	Text       string
	StartTime  float64
	EndTime    float64
	TokenCount int
}

// TokenCounter はテキストのトークン数を見積もるインターフェース
type TokenCounter interface {
	Count(text string) int
}

// heuristicCounter は ceil(文字数/4) の近似トークンカウンター
// （実トークナイザではなく、ソース仕様が定める文字数ベースの近似）
type heuristicCounter struct{}

func (heuristicCounter) Count(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4.0))
}

// Segmenter は文字起こしを文境界・トークン上限でオーバーラップ付きに分割します
type Segmenter struct {
	targetTokens  int
	overlapTokens int
	counter       TokenCounter
}

// Option は Segmenter のオプション設定
type Option func(*Segmenter)

// WithTargetTokens はチャンクの目標トークン数を上書きする
func WithTargetTokens(n int) Option {
	return func(s *Segmenter) {
		if n > 0 {
			s.targetTokens = n
		}
	}
}

// WithOverlapTokens はオーバーラップトークン数を上書きする
func WithOverlapTokens(n int) Option {
	return func(s *Segmenter) {
		if n >= 0 {
			s.overlapTokens = n
		}
	}
}

// WithTokenCounter はトークンカウンターを差し替える（tiktoken等の実トークナイザ用）
func WithTokenCounter(c TokenCounter) Option {
	return func(s *Segmenter) {
		if c != nil {
			s.counter = c
		}
	}
}

// New は新しいSegmenterを作成する
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		targetTokens:  DefaultTargetTokens,
		overlapTokens: DefaultOverlapTokens,
		counter:       heuristicCounter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sentencePattern は `.` `!` `?` を文末とみなす単純な文分割
// （省略形は考慮しない。既知の単純化）
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// splitSentences は文字起こしを文単位に分割する
func splitSentences(transcript string) []string {
	matches := sentencePattern.FindAllString(transcript, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if trimmed := strings.TrimSpace(m); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// Segment は文字起こしをトークン上限付きのオーバーラップチャンク列に分割します。
// チャンクの開始時刻は直前チャンクの終了時刻と一致する（連続性の不変条件）。
// 時刻は字幕の実タイムスタンプではなく、トークン数からの概算。
func (s *Segmenter) Segment(transcript string) []Chunk {
	sentences := splitSentences(transcript)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0
	startTime := 0.0

	closeChunk := func() {
		text := strings.Join(current, " ")
		tokens := s.counter.Count(text)
		endTime := startTime + chunkDuration(tokens)
		chunks = append(chunks, Chunk{
			Text:       text,
			StartTime:  startTime,
			EndTime:    endTime,
			TokenCount: tokens,
		})
		// 次チャンクは直前チャンクの終了時刻から始まる
		startTime = endTime
	}

	for _, sentence := range sentences {
		sentenceTokens := s.counter.Count(sentence)

		// 目標トークン数を超える場合はチャンクを閉じる（空チャンクは閉じない）
		if len(current) > 0 && currentTokens+sentenceTokens > s.targetTokens {
			closeChunk()

			// 閉じたチャンク末尾からオーバーラップ分の単語を次チャンクの先頭に持ち越す
			overlap := s.overlapWords(chunks[len(chunks)-1].Text)
			current = current[:0]
			if overlap != "" {
				current = append(current, overlap)
			}
			current = append(current, sentence)
			currentTokens = s.counter.Count(strings.Join(current, " "))
			continue
		}

		current = append(current, sentence)
		currentTokens += sentenceTokens
	}

	// 末尾の未満チャンクもサイズに関わらず必ず出力する
	if len(current) > 0 {
		closeChunk()
	}

	return chunks
}

// overlapWords はチャンク末尾から floor(overlapTokens/4) 個の単語を取り出す
func (s *Segmenter) overlapWords(text string) string {
	n := s.overlapTokens / 4
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[len(words)-n:], " ")
}

// chunkDuration はトークン数から概算の発話時間（秒）を導出する
// （発話速度の近似に基づく。実字幕タイムスタンプではない）
func chunkDuration(tokens int) float64 {
	return math.Floor(float64(tokens) / 4.0 * 60)
}
