// Package report は病害診断レポートの作成・閲覧・管理のビジネスロジックを提供する。
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ArunimaSaha23/AgriIQ/internal/inference"
	"github.com/ArunimaSaha23/AgriIQ/internal/model"
	"github.com/ArunimaSaha23/AgriIQ/internal/repository"
	"github.com/ArunimaSaha23/AgriIQ/internal/upload"
)

// Classifier は画像から病害を診断するインターフェース。
type Classifier interface {
	Classify(ctx context.Context, filename string, image io.Reader) (*inference.Prediction, error)
}

// UploadStore は診断画像の保存・削除を行うインターフェース。
type UploadStore interface {
	Save(field, originalName string, src io.Reader) (string, error)
	Remove(publicPath string) error
}

// Recorder はレポート操作のメトリクスを記録するインターフェース。
// nilの場合は記録しない。
type Recorder interface {
	RecordReportCreated()
	RecordInferenceLatency(d time.Duration)
	RecordStaleImageDeleteFailure()
}

// Service はレポートドメインのサービス。
type Service struct {
	repo       repository.ReportRepository
	classifier Classifier
	uploads    UploadStore
	recorder   Recorder
	sanitizer  *bluemonday.Policy
	logger     *slog.Logger
}

// NewService はServiceを生成する。recorderはnil可。
func NewService(
	repo repository.ReportRepository,
	classifier Classifier,
	uploads UploadStore,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		uploads:    uploads,
		recorder:   recorder,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger,
	}
}

// Create は画像を保存して診断を実行し、結果をレポートとして永続化する。
// 診断に失敗した場合は保存済み画像を削除し、孤児ファイルを残さない。
func (s *Service) Create(ctx context.Context, userID, field, filename string, image io.Reader) (*model.Report, error) {
	// 保存と推論の両方で読むため、一旦メモリに取り込む
	data, err := io.ReadAll(image)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	imagePath, err := s.uploads.Save(field, filename, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save report image: %w", err)
	}

	start := time.Now()
	prediction, err := s.classifier.Classify(ctx, filename, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("inference failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if removeErr := s.uploads.Remove(imagePath); removeErr != nil {
			s.logger.Warn("failed to delete orphaned report image",
				slog.String("image_path", imagePath),
				slog.String("error", removeErr.Error()),
			)
		}
		return nil, model.NewInferenceFailedError()
	}
	if s.recorder != nil {
		s.recorder.RecordInferenceLatency(time.Since(start))
	}

	now := time.Now()
	report := &model.Report{
		ID:               uuid.NewString(),
		UserID:           userID,
		PredictedClass:   prediction.PredictedClass,
		Confidence:       prediction.Confidence,
		Category:         prediction.Category,
		PartScanned:      prediction.PartScanned,
		Symptoms:         prediction.Symptoms,
		Treatment:        prediction.Treatment,
		Prevention:       prediction.Prevention,
		ImagePath:        imagePath,
		OriginalFilename: filename,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info("report created",
		slog.String("report_id", report.ID),
		slog.String("user_id", userID),
		slog.String("predicted_class", report.PredictedClass),
	)
	if s.recorder != nil {
		s.recorder.RecordReportCreated()
	}

	return report, nil
}

// List はユーザーのレポート一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Report, error) {
	reports, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

// Get は指定レポートを取得する。他ユーザーのレポートは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, reportID string) (*model.Report, error) {
	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	if report == nil || report.UserID != userID {
		return nil, model.NewReportNotFoundError()
	}

	return report, nil
}

// UpdateNotes はレポートのメモを更新する。メモはHTMLタグを除去して保存する。
func (s *Service) UpdateNotes(ctx context.Context, userID, reportID, notes string) (*model.Report, error) {
	if _, err := s.Get(ctx, userID, reportID); err != nil {
		return nil, err
	}

	sanitized := s.sanitizer.Sanitize(notes)

	report, err := s.repo.UpdateNotes(ctx, reportID, sanitized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewReportNotFoundError()
		}
		return nil, fmt.Errorf("failed to update report notes: %w", err)
	}

	return report, nil
}

// Delete はレポートとそのローカル保存画像を削除する。
// 画像の削除失敗はレポートの削除を妨げない。
func (s *Service) Delete(ctx context.Context, userID, reportID string) error {
	report, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, reportID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReportNotFoundError()
		}
		return fmt.Errorf("failed to delete report: %w", err)
	}

	if upload.IsLocal(report.ImagePath) {
		if err := s.uploads.Remove(report.ImagePath); err != nil {
			s.logger.Warn("failed to delete report image",
				slog.String("report_id", reportID),
				slog.String("image_path", report.ImagePath),
				slog.String("error", err.Error()),
			)
			if s.recorder != nil {
				s.recorder.RecordStaleImageDeleteFailure()
			}
		}
	}

	s.logger.Info("report deleted",
		slog.String("report_id", reportID),
		slog.String("user_id", userID),
	)

	return nil
}
