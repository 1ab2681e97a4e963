package upload

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// mediaTypes は拡張子からContent-Typeへの対応表。
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// ServeFile はアップロード済みファイルを配信するHTTPハンドラー。
// GET /uploads/{filename}
// ディレクトリトラバーサルを含むファイル名は400で拒否する。
func (r *Receiver) ServeFile(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "filename")
	if !validFilename(name) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, req)
		return
	}

	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		mediaType = "image/jpeg"
	}

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, req, path)
}
