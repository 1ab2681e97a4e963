// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ArunimaSaha23/AgriIQ/internal/middleware"
	"github.com/ArunimaSaha23/AgriIQ/internal/model"
	"github.com/ArunimaSaha23/AgriIQ/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, in user.UpdateProfileInput) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service       UserServiceInterface
	maxUploadSize int64
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, maxUploadSize int64) *UserHandler {
	return &UserHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// envelope は既存クライアントが期待するレスポンス形式。
// successとmessageは常に存在し、tokenとuserDataは操作に応じて付く。
type envelope struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Token    string         `json:"token,omitempty"`
	UserData *userResponse  `json:"userData,omitempty"`
	Report   *reportPayload `json:"report,omitempty"`
	Deleted  bool           `json:"deleted,omitempty"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Gender    string        `json:"gender"`
	Language  string        `json:"language"`
	DOB       string        `json:"dob"`
	Address   model.Address `json:"address"`
	Image     string        `json:"image"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// toUserResponse はmodel.Userを外部表現に変換する。
func toUserResponse(u *model.User) *userResponse {
	return &userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Gender:    u.Gender,
		Language:  u.Language,
		DOB:       u.DOB,
		Address:   u.Address,
		Image:     u.ImagePath,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: u.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON はエンベロープをJSONで書き込む。
func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Register はユーザー登録を処理する。
// POST /api/user/register
//
// 検証失敗・重複メールも既存クライアント互換のため200 + success:falseで返す。
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "Missing Details"})
		return
	}

	token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, http.StatusOK, envelope{Success: false, Message: apiErr.Message})
			return
		}
		slog.Error("register failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Token: token})
}

// Login はログインを処理する。
// POST /api/user/login
//
// 認証失敗も既存クライアント互換のため200 + success:falseで返す。
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: "Invalid Credentials"})
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, http.StatusOK, envelope{Success: false, Message: apiErr.Message})
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Token: token})
}

// GetProfile は認証済みユーザーのプロフィールを返す。
// GET /api/user/get-profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUserNotFound {
			writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: apiErr.Message})
			return
		}
		slog.Error("get profile failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, UserData: toUserResponse(u)})
}

// UpdateProfile はプロフィール更新を処理する。
// POST /api/user/update-profile（multipart/form-data）
//
// テキストフィールド: name, email, phone, address, dob, gender, language
// ファイルフィールド: image（任意）
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Not authorized: Token missing"})
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid form data"})
		return
	}

	in := user.UpdateProfileInput{
		Name:        r.FormValue("name"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		Gender:      r.FormValue("gender"),
		DOB:         r.FormValue("dob"),
		Language:    r.FormValue("language"),
		AddressJSON: r.FormValue("address"),
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		in.Image = &user.ImageUpload{
			Field:    "image",
			Filename: header.Filename,
			Data:     file,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid form data"})
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			status := http.StatusBadRequest
			if apiErr.Code == model.ErrCodeUserNotFound {
				status = http.StatusNotFound
			}
			writeJSON(w, status, envelope{Success: false, Message: apiErr.Message})
			return
		}
		slog.Error("update profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Profile Updated", UserData: toUserResponse(u)})
}
