package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeScore_SimilarityOnly(t *testing.T) {
	score := compositeScore(0.6, 0, "quantum physics", "unrelated content here")
	assert.Equal(t, 0.6, score)
}

func TestCompositeScore_KeywordBoost(t *testing.T) {
	base := compositeScore(0.6, 0, "quantum", "unrelated words")
	boosted := compositeScore(0.6, 2, "quantum", "unrelated words")
	assert.InDelta(t, base+0.1, boosted, 1e-9)
}

func TestCompositeScore_VerbatimPhraseBoost(t *testing.T) {
	// クエリ全文が本文に現れると0.1加点（大文字小文字無視）。
	// 逐語一致時は単語オーバーラップも満点になるため、その分も加算される。
	without := compositeScore(0.5, 0, "barack obama", "a speech by someone else")
	with := compositeScore(0.5, 0, "barack obama", "a speech by Barack Obama today")
	assert.InDelta(t, without+0.1+0.05, with, 1e-9)
}

func TestCompositeScore_WordOverlapBoost(t *testing.T) {
	// クエリ2単語のうち1単語だけ本文に現れる → 0.05 * 0.5
	score := compositeScore(0.5, 0, "quantum physics", "a physics lecture")
	assert.InDelta(t, 0.5+0.05*0.5, score, 1e-9)
}

func TestCompositeScore_ClampedToOne(t *testing.T) {
	score := compositeScore(0.99, 20, "barack obama", "barack obama barack obama")
	assert.Equal(t, 1.0, score)
}

func TestKeywordOnlyScore_FractionOfQueryKeywords(t *testing.T) {
	queryKeywords := []string{"barack", "obama", "election"}
	matched := []string{"Barack Obama"}

	// "barack" と "obama" は部分一致、"election" は不一致 → 2/3
	score := keywordOnlyScore(queryKeywords, matched)
	assert.InDelta(t, 2.0/3.0, score, 1e-9)
}

func TestKeywordOnlyScore_NoQueryKeywords(t *testing.T) {
	assert.Equal(t, 0.0, keywordOnlyScore(nil, []string{"anything"}))
}

func TestKeywordOnlyScore_AllMatched(t *testing.T) {
	score := keywordOnlyScore([]string{"obama"}, []string{"Barack Obama"})
	assert.Equal(t, 1.0, score)
}
