package search

import "strings"

const (
	// keywordBoost はマッチしたキーワード1件あたりの加点
	keywordBoost = 0.05
	// phraseBoost はクエリ全文がチャンク本文に現れた場合の加点
	phraseBoost = 0.1
	// overlapBoost はクエリ単語の出現割合に対する加点係数
	overlapBoost = 0.05
)

// compositeScore はベクトル経路の合成関連度スコアを計算する。
// 類似度を基礎とし、キーワード・フレーズ一致は小さな裏付けとして加点する。
// 上限1.0でクランプし、加点の積み上がりを抑える。
func compositeScore(similarity float64, matchedKeywordCount int, query, content string) float64 {
	score := similarity

	score += keywordBoost * float64(matchedKeywordCount)

	// クエリ全文の逐語一致ボーナス（大文字小文字無視）
	if strings.Contains(strings.ToLower(content), strings.ToLower(query)) {
		score += phraseBoost
	}

	score += overlapBoost * queryWordOverlap(query, content)

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// queryWordOverlap はクエリ単語のうち、本文のいずれかの単語に
// 部分文字列として現れるものの割合を返す
func queryWordOverlap(query, content string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0
	}
	contentWords := strings.Fields(strings.ToLower(content))

	matched := 0
	for _, qw := range queryWords {
		for _, cw := range contentWords {
			if strings.Contains(cw, qw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(queryWords))
}

// keywordOnlyScore はキーワード経路の関連度スコアを計算する。
// 実際に見つかったクエリキーワードの割合（類似度項はこの経路では得られない）。
func keywordOnlyScore(queryKeywords []string, matchedKeywords []string) float64 {
	if len(queryKeywords) == 0 {
		return 0
	}

	found := 0
	for _, qk := range queryKeywords {
		for _, mk := range matchedKeywords {
			if containsFold(mk, qk) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(queryKeywords))
}

// containsFold は大文字小文字を無視した部分文字列一致を判定する
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
