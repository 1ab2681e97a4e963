// Package inference は外部ML推論エンドポイントのクライアントを提供する。
// 推論サービス自体は外部コラボレーターであり、このパッケージはワイヤ契約のみを扱う。
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
)

// predictPath は推論APIのエンドポイントパス。
const predictPath = "/predict"

// Prediction は推論エンドポイントが返す診断結果。
type Prediction struct {
	PredictedClass string   `json:"predicted_class"`
	Confidence     float64  `json:"confidence"`
	Category       string   `json:"category"`
	PartScanned    string   `json:"part_scanned"`
	Symptoms       string   `json:"symptoms"`
	Treatment      []string `json:"treatment"`
	Prevention     []string `json:"prevention"`

	// Error は推論サービスが200で返すアプリケーションレベルのエラー。
	Error string `json:"error"`
}

// Client は推論エンドポイントのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは推論サービスのルートURL（例: "http://localhost:8000"）。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// Classify は画像を推論エンドポイントに送信し、診断結果を取得する。
// 推論サービスはmultipartのfileフィールドで画像を受け取る。
func (c *Client) Classify(ctx context.Context, filename string, image io.Reader) (*Prediction, error) {
	// multipartリクエストボディの構築
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to copy image data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("inference request failed",
			slog.String("error", err.Error()),
			slog.String("filename", filename),
		)
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("inference endpoint returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("filename", filename),
		)
		return nil, fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
	}

	prediction := &Prediction{}
	if err := json.NewDecoder(resp.Body).Decode(prediction); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	// 推論サービスは失敗を200 + errorフィールドで返すことがある
	if prediction.Error != "" {
		c.logger.Error("inference endpoint returned application error",
			slog.String("error", prediction.Error),
			slog.String("filename", filename),
		)
		return nil, fmt.Errorf("inference failed: %s", prediction.Error)
	}
	if prediction.PredictedClass == "" {
		return nil, fmt.Errorf("inference response missing predicted_class")
	}

	return prediction, nil
}
