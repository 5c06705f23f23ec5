package extract

import "strings"

// stopWords はクエリ側・抽出側で共有する英語ストップワードの閉じたリスト
// （冠詞・代名詞・助動詞・前置詞・接続詞）
var stopWords = map[string]bool{
	// 冠詞
	"the": true, "a": true, "an": true,
	// 代名詞
	"i": true, "me": true, "my": true, "you": true, "your": true,
	"he": true, "him": true, "his": true, "she": true, "her": true,
	"it": true, "its": true, "we": true, "us": true, "our": true,
	"they": true, "them": true, "their": true, "this": true, "that": true,
	"these": true, "those": true, "who": true, "whom": true, "which": true,
	"what": true,
	// be動詞・助動詞
	"is": true, "am": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "can": true, "could": true, "shall": true, "should": true,
	"may": true, "might": true, "must": true,
	// 前置詞
	"about": true, "above": true, "after": true, "at": true, "before": true,
	"below": true, "by": true, "down": true, "during": true, "for": true,
	"from": true, "in": true, "into": true, "of": true, "off": true,
	"on": true, "over": true, "to": true, "under": true, "up": true,
	"with": true, "without": true,
	// 接続詞・その他
	"and": true, "but": true, "or": true, "nor": true, "so": true,
	"if": true, "then": true, "than": true, "because": true, "while": true,
	"when": true, "where": true, "how": true, "why": true, "there": true,
	"here": true, "not": true, "no": true, "yes": true, "also": true,
	"just": true, "very": true, "too": true,
}

// IsStopWord は単語がストップワードかどうかを返す
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}

// QueryKeywords は自由文クエリからキーワードを抽出する。
// 小文字化して空白で分割し、3文字以上かつストップワードでないトークンを残す。
// 何も残らなければ空スライスを返す（キーワード検索は空結果に短絡する）。
func QueryKeywords(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) <= 2 {
			continue
		}
		if stopWords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
