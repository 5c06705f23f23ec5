package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jinford/vod-rag/internal/core/extract"
	"github.com/jinford/vod-rag/internal/core/indexing"
)

const (
	// DefaultEndpoint はHugging Face Inference APIのベースURL
	DefaultEndpoint = "https://api-inference.huggingface.co"
	// DefaultModel は固有表現抽出のデフォルトモデル
	DefaultModel = "dslim/bert-base-NER"
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
)

// Recognizer は Hugging Face Inference API のトークン分類エンドポイントを使用して
// 固有表現を抽出する
type Recognizer struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	model      string
}

type recognizerOptions struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// RecognizerOption は Recognizer のオプション設定
type RecognizerOption func(*recognizerOptions)

// WithEndpoint はAPIエンドポイントを上書きする
func WithEndpoint(endpoint string) RecognizerOption {
	return func(o *recognizerOptions) {
		o.endpoint = endpoint
	}
}

// WithModel はモデル名を上書きする
func WithModel(model string) RecognizerOption {
	return func(o *recognizerOptions) {
		o.model = model
	}
}

// WithHTTPClient はHTTPクライアントを差し替える
func WithHTTPClient(client *http.Client) RecognizerOption {
	return func(o *recognizerOptions) {
		o.httpClient = client
	}
}

// NewRecognizer は新しい Recognizer を作成する
func NewRecognizer(apiKey string, opts ...RecognizerOption) *Recognizer {
	options := recognizerOptions{
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Recognizer{
		httpClient: options.httpClient,
		apiKey:     apiKey,
		endpoint:   options.endpoint,
		model:      options.model,
	}
}

var _ extract.EntityRecognizer = (*Recognizer)(nil)

type inferenceRequest struct {
	Inputs  string                 `json:"inputs"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// apiEntity はInference APIのトークン分類レスポンスの1要素。
// aggregation有効時は entity_group、無効時は entity にラベルが入る。
type apiEntity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
}

// Recognize はテキストから固有表現を抽出する
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]extract.Entity, error) {
	payload, err := json.Marshal(inferenceRequest{
		Inputs:  text,
		Options: map[string]interface{}{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", r.endpoint, r.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call inference API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &indexing.ProviderError{
			Provider:   "huggingface",
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	entities, err := parseEntities(body)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// parseEntities はフラット形式とバッチ（ネスト）形式の両方を受け付ける
func parseEntities(body []byte) ([]extract.Entity, error) {
	var flat []apiEntity
	if err := json.Unmarshal(body, &flat); err == nil {
		return convertEntities(flat), nil
	}

	var nested [][]apiEntity
	if err := json.Unmarshal(body, &nested); err == nil {
		var all []apiEntity
		for _, group := range nested {
			all = append(all, group...)
		}
		return convertEntities(all), nil
	}

	return nil, fmt.Errorf("failed to parse inference response: unexpected format")
}

func convertEntities(raw []apiEntity) []extract.Entity {
	entities := make([]extract.Entity, 0, len(raw))
	for _, e := range raw {
		label := e.EntityGroup
		if label == "" {
			label = e.Entity
		}
		if e.Word == "" || label == "" {
			continue
		}
		entities = append(entities, extract.Entity{
			Word:       e.Word,
			EntityType: label,
			Score:      e.Score,
		})
	}
	return entities
}
