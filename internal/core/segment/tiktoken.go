package segment

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter は tiktoken による実トークンカウンター。
// デフォルトの文字数近似の上位互換として WithTokenCounter で注入する。
type TiktokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter は cl100k_base エンコーダのカウンターを作成する
// （OpenAIのtext-embedding-3-smallと互換）
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}
	return &TiktokenCounter{encoder: encoder}, nil
}

// Count はテキストのトークン数を返す
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

var _ TokenCounter = (*TiktokenCounter)(nil)
