// Package user はユーザー登録・認証・プロフィール管理のビジネスロジックを提供する。
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mcnijman/go-emailaddress"

	"github.com/ArunimaSaha23/AgriIQ/internal/auth"
	"github.com/ArunimaSaha23/AgriIQ/internal/model"
	"github.com/ArunimaSaha23/AgriIQ/internal/repository"
)

// minPasswordLength はパスワードの最低文字数。
const minPasswordLength = 8

// UploadStore はプロフィール画像の保存・削除を行うインターフェース。
type UploadStore interface {
	Save(field, originalName string, src io.Reader) (string, error)
	Remove(publicPath string) error
}

// Recorder はユーザー操作のメトリクスを記録するインターフェース。
// nilの場合は記録しない。
type Recorder interface {
	RecordRegistration()
	RecordLogin(success bool)
	RecordProfileUpdate()
	RecordStaleImageDeleteFailure()
}

// ImageUpload はmultipartで受信したプロフィール画像。
type ImageUpload struct {
	Field    string
	Filename string
	Data     io.Reader
}

// UpdateProfileInput はプロフィール更新の入力。
// 空文字列の任意フィールドは「変更しない」を意味する。
type UpdateProfileInput struct {
	Name        string
	Phone       string
	Gender      string
	Email       string
	DOB         string
	Language    string
	AddressJSON string
	Image       *ImageUpload
}

// Service はユーザードメインのサービス。
type Service struct {
	repo     repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
	uploads  UploadStore
	recorder Recorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。recorderはnil可。
func NewService(
	repo repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	uploads UploadStore,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		uploads:  uploads,
		recorder: recorder,
		logger:   logger,
	}
}

// Register は新規ユーザーを登録し、認証トークンを発行する。
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	if name == "" || email == "" || password == "" {
		return "", model.NewMissingDetailsError()
	}
	if _, err := emailaddress.Parse(email); err != nil {
		return "", model.NewInvalidEmailError()
	}
	if len(password) < minPasswordLength {
		return "", model.NewWeakPasswordError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", model.NewDuplicateEmailError()
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	if s.recorder != nil {
		s.recorder.RecordRegistration()
	}

	return token, nil
}

// Login はメールアドレスとパスワードを検証し、認証トークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		if s.recorder != nil {
			s.recorder.RecordLogin(false)
		}
		return "", model.NewInvalidCredentialsError("User does not exist")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn("login failed", slog.String("user_id", user.ID))
		if s.recorder != nil {
			s.recorder.RecordLogin(false)
		}
		return "", model.NewInvalidCredentialsError("Invalid Credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	if s.recorder != nil {
		s.recorder.RecordLogin(true)
	}

	return token, nil
}

// GetProfile は指定ユーザーのプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// UpdateProfile はプロフィールを更新し、更新後のユーザーを返す。
// 画像が添付されている場合は新しい画像を保存し、ローカル保存された旧画像を削除する。
// 旧画像の削除失敗は更新を妨げない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	if in.Name == "" || in.Phone == "" || in.Gender == "" {
		return nil, model.NewRequiredFieldsError()
	}

	var address *model.Address
	if in.AddressJSON != "" {
		address = &model.Address{}
		if err := json.Unmarshal([]byte(in.AddressJSON), address); err != nil {
			return nil, model.NewInvalidAddressError()
		}
	}

	var imagePath *string
	var staleImage string
	if in.Image != nil {
		current, err := s.repo.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if current == nil {
			return nil, model.NewUserNotFoundError()
		}

		saved, err := s.uploads.Save(in.Image.Field, in.Image.Filename, in.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to save profile image: %w", err)
		}
		imagePath = &saved
		staleImage = current.ImagePath
	}

	update := repository.ProfileUpdate{
		Name:      in.Name,
		Phone:     in.Phone,
		Gender:    in.Gender,
		Email:     optional(in.Email),
		DOB:       optional(in.DOB),
		Language:  optional(in.Language),
		Address:   address,
		ImagePath: imagePath,
	}

	user, err := s.repo.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// 新画像の保存に成功した後でのみ旧画像を削除する
	if imagePath != nil && staleImage != "" {
		if err := s.uploads.Remove(staleImage); err != nil {
			s.logger.Warn("failed to delete stale profile image",
				slog.String("user_id", userID),
				slog.String("image_path", staleImage),
				slog.String("error", err.Error()),
			)
			if s.recorder != nil {
				s.recorder.RecordStaleImageDeleteFailure()
			}
		}
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	if s.recorder != nil {
		s.recorder.RecordProfileUpdate()
	}

	return user, nil
}

// optional は空文字列をnilに変換する。
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
