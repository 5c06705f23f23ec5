package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

const (
	// DefaultBinaryPath はyt-dlpバイナリのデフォルトパス
	DefaultBinaryPath = "yt-dlp"
	// DefaultTimeout はサブプロセス1回あたりのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// runFunc はサブプロセス実行を差し替え可能にする
type runFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Source はyt-dlpサブプロセスで動画一覧・字幕を取得する core/indexing.VideoSource 実装。
type Source struct {
	binaryPath string
	timeout    time.Duration
	run        runFunc
	logger     *slog.Logger
}

type sourceOptions struct {
	binaryPath string
	timeout    time.Duration
	run        runFunc
	logger     *slog.Logger
}

// SourceOption は Source のオプション設定
type SourceOption func(*sourceOptions)

// WithBinaryPath はyt-dlpバイナリのパスを上書きする
func WithBinaryPath(path string) SourceOption {
	return func(o *sourceOptions) {
		o.binaryPath = path
	}
}

// WithTimeout はサブプロセスのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) SourceOption {
	return func(o *sourceOptions) {
		o.timeout = timeout
	}
}

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) SourceOption {
	return func(o *sourceOptions) {
		o.logger = logger
	}
}

func withRunFunc(run runFunc) SourceOption {
	return func(o *sourceOptions) {
		o.run = run
	}
}

// NewSource は新しい Source を作成する
func NewSource(opts ...SourceOption) *Source {
	options := sourceOptions{
		binaryPath: DefaultBinaryPath,
		timeout:    DefaultTimeout,
		run:        runCommand,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Source{
		binaryPath: options.binaryPath,
		timeout:    options.timeout,
		run:        options.run,
		logger:     options.logger,
	}
}

var _ indexing.VideoSource = (*Source)(nil)

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", binary, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return output, nil
}

// ResolveChannel はチャンネルURL/ハンドルをチャンネルメタデータに解決する
func (s *Source) ResolveChannel(ctx context.Context, channelURL string) (*indexing.ChannelMeta, error) {
	url, err := normalizeChannelReference(channelURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.run(ctx, s.binaryPath,
		"--dump-single-json",
		"--flat-playlist",
		"--playlist-items", "0",
		url,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", indexing.ErrInvalidChannelReference, channelURL)
	}

	meta, err := parseChannelMetadata(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", indexing.ErrInvalidChannelReference, channelURL)
	}
	if meta.URL == "" {
		meta.URL = url
	}
	return meta, nil
}

// ListVideos はチャンネルの動画一覧を取得する。maxCount > 0 の場合は先頭から切り詰める。
func (s *Source) ListVideos(ctx context.Context, channelURL string, maxCount int) ([]*indexing.VideoMeta, error) {
	url, err := normalizeChannelReference(channelURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(url, "/videos") {
		url += "/videos"
	}

	args := []string{
		"--flat-playlist",
		"--dump-json",
	}
	if maxCount > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", maxCount))
	}
	args = append(args, url)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.run(ctx, s.binaryPath, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	videos, err := parseVideoList(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse video list: %w", err)
	}
	if maxCount > 0 && len(videos) > maxCount {
		videos = videos[:maxCount]
	}
	return videos, nil
}

// FetchTranscript は動画の字幕（手動字幕優先、なければ自動生成字幕）を取得する。
// 字幕が存在しない場合は ErrTranscriptUnavailable を返す。
func (s *Source) FetchTranscript(ctx context.Context, video *indexing.VideoMeta) (*indexing.Transcript, error) {
	tmpDir, err := os.MkdirTemp("", "vodrag_subs_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.run(ctx, s.binaryPath,
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en.*,en",
		"--sub-format", "json3",
		"--print-json",
		"-o", filepath.Join(tmpDir, "%(id)s.%(ext)s"),
		video.VideoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript for %s: %w", video.ExternalID, err)
	}

	subPath, ok := findSubtitleFile(tmpDir, video.ExternalID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", indexing.ErrTranscriptUnavailable, video.ExternalID)
	}

	subData, err := os.ReadFile(subPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	text, err := parseJSON3Transcript(subData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %s", indexing.ErrTranscriptUnavailable, video.ExternalID)
	}

	transcript := &indexing.Transcript{Text: text}

	// メタデータ出力からタイトル・説明を補完する（失敗しても字幕は返す）
	if title, description, err := parseVideoMetadata(output); err == nil {
		transcript.Title = title
		transcript.Description = description
	} else {
		s.logger.Debug("failed to parse video metadata", slog.String("videoID", video.ExternalID), slog.String("error", err.Error()))
	}

	return transcript, nil
}

// findSubtitleFile は取得された字幕ファイル（json3）を探す
func findSubtitleFile(dir, videoID string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, videoID+"*.json3"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}
