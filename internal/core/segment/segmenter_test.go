package segment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_SingleChunkWhenTargetFits(t *testing.T) {
	// 目標トークン数に全文が収まる場合はチャンクは1つだけ
	segmenter := New(WithTargetTokens(500), WithOverlapTokens(50))

	chunks := segmenter.Segment("Cats are great. Dogs are loyal. Birds can fly.")

	require.Len(t, chunks, 1)
	assert.Equal(t, "Cats are great. Dogs are loyal. Birds can fly.", chunks[0].Text)
	assert.Equal(t, 0.0, chunks[0].StartTime)
	assert.Greater(t, chunks[0].EndTime, chunks[0].StartTime)
	assert.Greater(t, chunks[0].TokenCount, 0)
}

func TestSegment_EmptyTranscript(t *testing.T) {
	segmenter := New()

	assert.Nil(t, segmenter.Segment(""))
	assert.Nil(t, segmenter.Segment("   \n  "))
}

func TestSegment_SplitsOnTargetTokens(t *testing.T) {
	// 小さな目標トークン数で複数チャンクに分割される
	segmenter := New(WithTargetTokens(10), WithOverlapTokens(0))

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "This is sentence number %d with some words. ", i)
	}

	chunks := segmenter.Segment(sb.String())
	require.Greater(t, len(chunks), 1)

	// 全文が失われずカバーされている（各文がいずれかのチャンクに含まれる）
	joined := ""
	for _, chunk := range chunks {
		joined += chunk.Text + " "
	}
	for i := 0; i < 10; i++ {
		assert.Contains(t, joined, fmt.Sprintf("sentence number %d", i))
	}
}

func TestSegment_TimeContinuity(t *testing.T) {
	// 各チャンクの開始時刻は直前チャンクの終了時刻と一致する
	segmenter := New(WithTargetTokens(10), WithOverlapTokens(0))

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Sentence number %d is here with padding words. ", i)
	}

	chunks := segmenter.Segment(sb.String())
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, 0.0, chunks[0].StartTime)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndTime, chunks[i].StartTime,
			"chunk %d should start where chunk %d ends", i, i-1)
		assert.GreaterOrEqual(t, chunks[i].EndTime, chunks[i].StartTime)
	}
}

func TestSegment_OverlapCarriesTrailingWords(t *testing.T) {
	// オーバーラップ有効時、前チャンク末尾の単語が次チャンクの先頭に現れる
	segmenter := New(WithTargetTokens(12), WithOverlapTokens(8))

	chunks := segmenter.Segment(
		"Alpha beta gamma delta epsilon zeta eta theta. Iota kappa lambda mu nu xi omicron pi.",
	)
	require.Len(t, chunks, 2)

	// floor(8/4) = 2単語の持ち越し
	words := strings.Fields(chunks[0].Text)
	carried := strings.Join(words[len(words)-2:], " ")
	assert.True(t, strings.HasPrefix(chunks[1].Text, carried),
		"second chunk %q should start with %q", chunks[1].Text, carried)
}

func TestSegment_FinalPartialChunkAlwaysEmitted(t *testing.T) {
	segmenter := New(WithTargetTokens(10), WithOverlapTokens(0))

	chunks := segmenter.Segment("A full sentence with quite a few words inside it. Tiny tail.")
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[1].Text, "Tiny tail.")
}

func TestSegment_NoTerminalPunctuation(t *testing.T) {
	// 文末記号がない入力も1文として扱う
	segmenter := New()

	chunks := segmenter.Segment("an unpunctuated stream of words")
	require.Len(t, chunks, 1)
	assert.Equal(t, "an unpunctuated stream of words", chunks[0].Text)
}

func TestHeuristicCounter_CeilDivision(t *testing.T) {
	counter := heuristicCounter{}

	assert.Equal(t, 1, counter.Count("abc"))
	assert.Equal(t, 1, counter.Count("abcd"))
	assert.Equal(t, 2, counter.Count("abcde"))
	assert.Equal(t, 0, counter.Count(""))
}
