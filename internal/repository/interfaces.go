// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/ArunimaSaha23/AgriIQ/internal/model"
)

// ErrDuplicateEmail は登録済みメールアドレスでの作成・更新を示す。
// ストアのユニーク制約違反から変換される。
var ErrDuplicateEmail = errors.New("email already registered")

// ErrNotFound は操作対象のレコードが存在しないことを示す。
var ErrNotFound = errors.New("record not found")

// ProfileUpdate はプロフィールの部分更新内容を表す。
// nilのポインタフィールドは既存の値を維持する。
type ProfileUpdate struct {
	// 必須フィールド（バリデーション済みの値が入る）
	Name   string
	Phone  string
	Gender string

	// 任意フィールド
	Email    *string
	DOB      *string
	Language *string
	Address  *model.Address

	// ImagePath は新しい画像が保存された場合のみ設定される。
	ImagePath *string
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// メールアドレスが登録済みの場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// UpdateProfile は指定フィールドを既存レコードにマージし、更新後のユーザーを返す。
	// updated_atは常に更新される。idが存在しない場合はErrNotFoundを返す。
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error)
}

// ReportRepository は診断レポートの永続化インターフェース。
type ReportRepository interface {
	// Create はレポートを作成する。
	Create(ctx context.Context, report *model.Report) error

	// FindByID は指定IDのレポートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Report, error)

	// ListByUserID はユーザーのレポート一覧を作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Report, error)

	// UpdateNotes はレポートのメモを更新し、更新後のレポートを返す。
	// idが存在しない場合はErrNotFoundを返す。
	UpdateNotes(ctx context.Context, id, notes string) (*model.Report, error)

	// Delete は指定IDのレポートを削除する。
	// idが存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}
