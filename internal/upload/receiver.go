// Package upload はアップロードファイルの保存・削除・配信を提供する。
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix はローカル保存ファイルの公開パスの接頭辞。
// この接頭辞を持たない画像参照（外部URL・インライン参照）はこのパッケージの管理外。
const PublicPrefix = "/uploads/"

// Receiver はmultipartで受信したファイルをアップロードディレクトリに保存する。
type Receiver struct {
	dir    string
	logger *slog.Logger
}

// NewReceiver はReceiverを生成する。ディレクトリが存在しない場合は作成する。
func NewReceiver(dir string, logger *slog.Logger) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Receiver{dir: dir, logger: logger}, nil
}

// Dir はアップロードディレクトリのパスを返す。
func (r *Receiver) Dir() string {
	return r.dir
}

// Save はファイルを一意な名前で保存し、公開パス（/uploads/<name>）を返す。
// 名前は「ミリ秒タイムスタンプ-フィールド名-乱数断片+拡張子」。
// 同一ミリ秒内の並行アップロードでも乱数断片により衝突しない。
func (r *Receiver) Save(field, originalName string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("%d-%s-%s%s", time.Now().UnixMilli(), field, uuid.NewString()[:8], ext)

	dst, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		// 書き込み失敗時は中途半端なファイルを残さない
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	r.logger.Info("upload stored",
		slog.String("filename", name),
		slog.String("original_filename", originalName),
	)

	return PublicPrefix + name, nil
}

// Remove は公開パスに対応するローカルファイルを削除する。
// ローカル保存ファイル以外（外部URL等）は何もしない。
func (r *Receiver) Remove(publicPath string) error {
	if !IsLocal(publicPath) {
		return nil
	}

	name := strings.TrimPrefix(publicPath, PublicPrefix)
	if !validFilename(name) {
		return fmt.Errorf("invalid upload filename: %s", name)
	}

	return os.Remove(filepath.Join(r.dir, name))
}

// IsLocal は画像参照がこのパッケージの管理するローカル保存ファイルかどうかを返す。
func IsLocal(publicPath string) bool {
	return strings.HasPrefix(publicPath, PublicPrefix)
}

// validFilename はファイル名がディレクトリトラバーサルを含まないことを検証する。
func validFilename(name string) bool {
	if name == "" {
		return false
	}
	return !strings.Contains(name, "..") &&
		!strings.ContainsAny(name, `/\`)
}
