package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ArunimaSaha23/AgriIQ/internal/middleware"
	"github.com/ArunimaSaha23/AgriIQ/internal/model"
)

// ReportServiceInterface はレポートハンドラーが必要とするサービスインターフェース。
type ReportServiceInterface interface {
	Create(ctx context.Context, userID, field, filename string, image io.Reader) (*model.Report, error)
	List(ctx context.Context, userID string) ([]*model.Report, error)
	Get(ctx context.Context, userID, reportID string) (*model.Report, error)
	UpdateNotes(ctx context.Context, userID, reportID, notes string) (*model.Report, error)
	Delete(ctx context.Context, userID, reportID string) error
}

// ReportHandler は診断レポート管理のHTTPハンドラー。
type ReportHandler struct {
	service       ReportServiceInterface
	maxUploadSize int64
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ReportServiceInterface, maxUploadSize int64) *ReportHandler {
	return &ReportHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// listEnvelope はレポート一覧のレスポンス。
// 一覧が空でもnullではなく空配列を返すため、専用の型を使う。
type listEnvelope struct {
	Success bool             `json:"success"`
	Reports []*reportPayload `json:"reports"`
}

// updateNotesRequest はメモ更新リクエストのボディ。
type updateNotesRequest struct {
	Notes string `json:"notes"`
}

// reportPayload はレポートのAPIレスポンス。
type reportPayload struct {
	ID               string        `json:"id"`
	PredictedClass   string        `json:"predicted_class"`
	Confidence       float64       `json:"confidence"`
	Category         string        `json:"category"`
	PartScanned      string        `json:"part_scanned"`
	Symptoms         string        `json:"symptoms"`
	Treatment        []string      `json:"treatment"`
	Prevention       []string      `json:"prevention"`
	Notes            string        `json:"notes"`
	Image            string        `json:"image"`
	OriginalFilename string        `json:"original_filename"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
}

// toReportPayload はmodel.Reportを外部表現に変換する。
func toReportPayload(r *model.Report) *reportPayload {
	return &reportPayload{
		ID:               r.ID,
		PredictedClass:   r.PredictedClass,
		Confidence:       r.Confidence,
		Category:         r.Category,
		PartScanned:      r.PartScanned,
		Symptoms:         r.Symptoms,
		Treatment:        r.Treatment,
		Prevention:       r.Prevention,
		Notes:            r.Notes,
		Image:            r.ImagePath,
		OriginalFilename: r.OriginalFilename,
		CreatedAt:        r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:        r.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeReportError はサービス層のエラーをエンベロープに変換する。
func writeReportError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadRequest
		switch apiErr.Code {
		case model.ErrCodeReportNotFound:
			status = http.StatusNotFound
		case model.ErrCodeInferenceFailed:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, envelope{Success: false, Message: apiErr.Message})
		return
	}

	slog.Error("report operation failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Internal server error"})
}

// Create は画像を受け取り診断レポートを作成する。
// POST /api/report（multipart/form-data、ファイルフィールド: image）
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid form data"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		apiErr := model.NewImageMissingError()
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: apiErr.Message})
		return
	}
	defer file.Close()

	report, err := h.service.Create(r.Context(), userID, "image", header.Filename, file)
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Success: true, Report: toReportPayload(report)})
}

// List は認証済みユーザーのレポート一覧を返す。
// GET /api/report
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	reports, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeReportError(w, err)
		return
	}

	payload := make([]*reportPayload, 0, len(reports))
	for _, report := range reports {
		payload = append(payload, toReportPayload(report))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(listEnvelope{Success: true, Reports: payload})
}

// Get は指定レポートを返す。
// GET /api/report/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	report, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Report: toReportPayload(report)})
}

// UpdateNotes はレポートのメモを更新する。
// PUT /api/report/{id}
func (h *ReportHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	var req updateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid request body"})
		return
	}

	report, err := h.service.UpdateNotes(r.Context(), userID, chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Report updated successfully",
		Report:  toReportPayload(report),
	})
}

// Delete はレポートを削除する。
// DELETE /api/report/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Deleted: true})
}
