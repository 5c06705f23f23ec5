package ytdlp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// channelMetadata はyt-dlpのチャンネルダンプ出力（必要なフィールドのみ）
type channelMetadata struct {
	ChannelID             string  `json:"channel_id"`
	ID                    string  `json:"id"`
	Channel               string  `json:"channel"`
	Uploader              string  `json:"uploader"`
	Title                 string  `json:"title"`
	Description           string  `json:"description"`
	ChannelFollowerCount  *int64  `json:"channel_follower_count"`
	WebpageURL            string  `json:"webpage_url"`
	Thumbnails            []thumb `json:"thumbnails"`
}

type thumb struct {
	URL string `json:"url"`
}

// videoEntry はフラットプレイリスト出力の1行（必要なフィールドのみ）
type videoEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description *string  `json:"description"`
	Duration    *float64 `json:"duration"`
	ViewCount   *int64   `json:"view_count"`
}

// videoMetadata は字幕取得時のメタデータ出力（必要なフィールドのみ）
type videoMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// json3Transcript はYouTubeのjson3字幕形式
type json3Transcript struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	Segs []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// normalizeChannelReference はチャンネル参照（URL・@ハンドル・チャンネルID）を
// yt-dlpに渡せるURLに正規化する
func normalizeChannelReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", indexing.ErrInvalidChannelReference)
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if !strings.Contains(ref, "youtube.com") {
			return "", fmt.Errorf("%w: %s", indexing.ErrInvalidChannelReference, ref)
		}
		return strings.TrimSuffix(ref, "/"), nil
	}

	if strings.HasPrefix(ref, "@") {
		return "https://www.youtube.com/" + ref, nil
	}

	// UCで始まる24文字はチャンネルID
	if strings.HasPrefix(ref, "UC") && len(ref) == 24 {
		return "https://www.youtube.com/channel/" + ref, nil
	}

	return "https://www.youtube.com/@" + ref, nil
}

// parseChannelMetadata はチャンネルダンプ出力をチャンネルメタデータに変換する
func parseChannelMetadata(output []byte) (*indexing.ChannelMeta, error) {
	var raw channelMetadata
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse channel metadata: %w", err)
	}

	externalID := raw.ChannelID
	if externalID == "" {
		externalID = raw.ID
	}
	if externalID == "" {
		return nil, fmt.Errorf("channel metadata missing channel id")
	}

	name := raw.Channel
	if name == "" {
		name = raw.Uploader
	}
	if name == "" {
		name = raw.Title
	}

	meta := &indexing.ChannelMeta{
		ExternalChannelID: externalID,
		Name:              name,
		URL:               raw.WebpageURL,
		SubscriberCount:   raw.ChannelFollowerCount,
	}
	if raw.Description != "" {
		meta.Description = &raw.Description
	}
	if len(raw.Thumbnails) > 0 {
		last := raw.Thumbnails[len(raw.Thumbnails)-1].URL
		if last != "" {
			meta.ThumbnailURL = &last
		}
	}
	return meta, nil
}

// parseVideoList はフラットプレイリスト出力（1行1JSON）を動画メタデータに変換する
func parseVideoList(output []byte) ([]*indexing.VideoMeta, error) {
	var videos []*indexing.VideoMeta

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry videoEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse video entry: %w", err)
		}
		if entry.ID == "" {
			continue
		}

		videoURL := entry.URL
		if videoURL == "" {
			videoURL = "https://www.youtube.com/watch?v=" + entry.ID
		}

		video := &indexing.VideoMeta{
			ExternalID:  entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			ViewCount:   entry.ViewCount,
			VideoURL:    videoURL,
		}
		if entry.Duration != nil {
			seconds := int(*entry.Duration)
			video.DurationSeconds = &seconds
		}
		videos = append(videos, video)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan video list: %w", err)
	}

	return videos, nil
}

// parseVideoMetadata は字幕取得時のメタデータ出力からタイトル・説明を抜き出す
func parseVideoMetadata(output []byte) (*string, *string, error) {
	var raw videoMetadata
	if err := json.Unmarshal(bytes.TrimSpace(output), &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse video metadata: %w", err)
	}

	var title, description *string
	if raw.Title != "" {
		title = &raw.Title
	}
	if raw.Description != "" {
		description = &raw.Description
	}
	return title, description, nil
}

// parseJSON3Transcript はjson3字幕をプレーンテキストに変換する
func parseJSON3Transcript(data []byte) (string, error) {
	var transcript json3Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return "", fmt.Errorf("failed to parse json3 transcript: %w", err)
	}

	var builder strings.Builder
	for _, event := range transcript.Events {
		for _, seg := range event.Segs {
			text := strings.TrimSpace(seg.UTF8)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(text)
		}
	}
	return builder.String(), nil
}
