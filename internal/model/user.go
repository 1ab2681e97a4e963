// Package model はドメインモデルを定義する。
package model

import "time"

// Address はユーザーの住所を表す。
// プロフィール更新リクエストではJSON文字列として届く。
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// User はサービス利用ユーザーを表す。
// PasswordHashはAPIレスポンスに含めてはならない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string

	// 任意のプロフィール属性。未設定の場合は空文字列。
	Phone    string
	Gender   string
	Language string
	DOB      string
	Address  Address

	// ImagePath はプロフィール画像への参照。
	// ローカル保存の場合は「/uploads/」で始まる公開パス、
	// 外部ホストやインライン参照の場合はそれ以外の文字列。
	ImagePath string

	CreatedAt time.Time
	UpdatedAt time.Time
}
