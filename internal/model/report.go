package model

import "time"

// Report は作物画像の診断結果レポートを表す。
// 診断結果（PredictedClass以下）は外部推論エンドポイントの返却値をそのまま保持し、
// Notesのみユーザーが編集できる。
type Report struct {
	ID     string
	UserID string

	PredictedClass string
	Confidence     float64
	Category       string
	PartScanned    string
	Symptoms       string
	Treatment      []string
	Prevention     []string

	Notes string

	// ImagePath は診断対象画像の公開パス（/uploads/<name>）。
	ImagePath        string
	OriginalFilename string

	CreatedAt time.Time
	UpdatedAt time.Time
}
