package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ArunimaSaha23/AgriIQ/internal/auth"
	"github.com/ArunimaSaha23/AgriIQ/internal/model"
	"github.com/ArunimaSaha23/AgriIQ/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	createFn        func(ctx context.Context, user *model.User) error
	findByEmailFn   func(ctx context.Context, email string) (*model.User, error)
	findByIDFn      func(ctx context.Context, id string) (*model.User, error)
	updateProfileFn func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, update)
	}
	return nil, nil
}

type mockUploadStore struct {
	saveFn   func(field, originalName string, src io.Reader) (string, error)
	removeFn func(publicPath string) error
	removed  []string
}

func (m *mockUploadStore) Save(field, originalName string, src io.Reader) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(field, originalName, src)
	}
	return "/uploads/new-image.jpg", nil
}

func (m *mockUploadStore) Remove(publicPath string) error {
	m.removed = append(m.removed, publicPath)
	if m.removeFn != nil {
		return m.removeFn(publicPath)
	}
	return nil
}

func newTestService(repo repository.UserRepository, uploads UploadStore) *Service {
	return NewService(
		repo,
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewTokenService([]byte("test-secret"), time.Hour),
		uploads,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// --- Register ---

func TestService_Register_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	token, err := svc.Register(context.Background(), "Asha", "asha@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if token == "" {
		t.Error("Register() returned empty token")
	}

	if created == nil {
		t.Fatal("user was not persisted")
	}
	if created.ID == "" {
		t.Error("user ID is empty")
	}
	if created.PasswordHash == "password123" {
		t.Error("password stored in plaintext")
	}

	// 発行されたトークンは登録ユーザーのIDを運ぶ
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	userID, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != created.ID {
		t.Errorf("token userID = %q, want %q", userID, created.ID)
	}
}

func TestService_Register_ValidationErrors(t *testing.T) {
	repoCalled := false
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			repoCalled = true
			return nil
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	tests := []struct {
		name        string
		userName    string
		email       string
		password    string
		wantMessage string
	}{
		{"missing name", "", "a@example.com", "password123", "Missing Details"},
		{"missing email", "Asha", "", "password123", "Missing Details"},
		{"missing password", "Asha", "a@example.com", "", "Missing Details"},
		{"invalid email", "Asha", "not-an-email", "password123", "Enter a valid email"},
		{"short password", "Asha", "a@example.com", "short", "Enter a strong password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want APIError", err)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}

	if repoCalled {
		t.Error("repository was called despite validation failure")
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeEmailExists {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEmailExists)
	}
	if apiErr.Message != "Email already registered" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

// --- Login ---

func TestService_Login_Success(t *testing.T) {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	token, err := svc.Login(context.Background(), "asha@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Error("Login() returned empty token")
	}
}

func TestService_Login_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockUploadStore{})

	_, err := svc.Login(context.Background(), "nobody@example.com", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Message != "User does not exist" {
		t.Errorf("message = %q, want %q", apiErr.Message, "User does not exist")
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	hash, _ := hasher.Hash("password123")

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	_, err := svc.Login(context.Background(), "asha@example.com", "wrong-password")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Message != "Invalid Credentials" {
		t.Errorf("message = %q, want %q", apiErr.Message, "Invalid Credentials")
	}
}

// --- GetProfile ---

func TestService_GetProfile_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockUploadStore{})

	_, err := svc.GetProfile(context.Background(), "no-such-user")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// --- UpdateProfile ---

func TestService_UpdateProfile_RequiredFields(t *testing.T) {
	updateCalled := false
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
			updateCalled = true
			return &model.User{ID: id}, nil
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:  "Asha",
		Phone: "",
		// genderも空
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeRequiredFields {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeRequiredFields)
	}
	if updateCalled {
		t.Error("repository was called despite validation failure")
	}
}

func TestService_UpdateProfile_InvalidAddress(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockUploadStore{})

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:        "Asha",
		Phone:       "1234567890",
		Gender:      "female",
		AddressJSON: "{not json",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidAddress {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidAddress)
	}
}

func TestService_UpdateProfile_OptionalFieldsBecomeNil(t *testing.T) {
	var gotUpdate repository.ProfileUpdate
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
			gotUpdate = update
			return &model.User{ID: id, Name: update.Name}, nil
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:   "Asha",
		Phone:  "1234567890",
		Gender: "female",
		// email, dob, language, addressは未指定
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if gotUpdate.Email != nil {
		t.Errorf("Email = %v, want nil", *gotUpdate.Email)
	}
	if gotUpdate.DOB != nil {
		t.Errorf("DOB = %v, want nil", *gotUpdate.DOB)
	}
	if gotUpdate.Language != nil {
		t.Errorf("Language = %v, want nil", *gotUpdate.Language)
	}
	if gotUpdate.Address != nil {
		t.Errorf("Address = %v, want nil", *gotUpdate.Address)
	}
	if gotUpdate.ImagePath != nil {
		t.Errorf("ImagePath = %v, want nil", *gotUpdate.ImagePath)
	}
}

func TestService_UpdateProfile_ReplacesLocalImage(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, ImagePath: "/uploads/old-image.jpg"}, nil
		},
		updateProfileFn: func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
			return &model.User{ID: id, ImagePath: *update.ImagePath}, nil
		},
	}
	uploads := &mockUploadStore{
		saveFn: func(field, originalName string, src io.Reader) (string, error) {
			return "/uploads/new-image.jpg", nil
		},
	}
	svc := newTestService(repo, uploads)

	updated, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:   "Asha",
		Phone:  "1234567890",
		Gender: "female",
		Image: &ImageUpload{
			Field:    "image",
			Filename: "new.jpg",
			Data:     strings.NewReader("image bytes"),
		},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if updated.ImagePath != "/uploads/new-image.jpg" {
		t.Errorf("ImagePath = %q, want %q", updated.ImagePath, "/uploads/new-image.jpg")
	}

	// 旧画像は置き換え後に削除される
	if len(uploads.removed) != 1 || uploads.removed[0] != "/uploads/old-image.jpg" {
		t.Errorf("removed = %v, want [/uploads/old-image.jpg]", uploads.removed)
	}
}

func TestService_UpdateProfile_StaleImageDeleteFailureDoesNotFail(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, ImagePath: "/uploads/old-image.jpg"}, nil
		},
		updateProfileFn: func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	uploads := &mockUploadStore{
		removeFn: func(publicPath string) error {
			return errors.New("disk error")
		},
	}
	svc := newTestService(repo, uploads)

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:   "Asha",
		Phone:  "1234567890",
		Gender: "female",
		Image: &ImageUpload{
			Field:    "image",
			Filename: "new.jpg",
			Data:     strings.NewReader("image bytes"),
		},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v, want nil despite delete failure", err)
	}
}

func TestService_UpdateProfile_NoImageKeepsExisting(t *testing.T) {
	findCalled := false
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			findCalled = true
			return &model.User{ID: id}, nil
		},
		updateProfileFn: func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	uploads := &mockUploadStore{}
	svc := newTestService(repo, uploads)

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:   "Asha",
		Phone:  "1234567890",
		Gender: "female",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if findCalled {
		t.Error("FindByID called without image upload")
	}
	if len(uploads.removed) != 0 {
		t.Errorf("removed = %v, want empty", uploads.removed)
	}
}

func TestService_UpdateProfile_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, update repository.ProfileUpdate) (*model.User, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := newTestService(repo, &mockUploadStore{})

	_, err := svc.UpdateProfile(context.Background(), "no-such-user", UpdateProfileInput{
		Name:   "Asha",
		Phone:  "1234567890",
		Gender: "female",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}
