package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ArunimaSaha23/AgriIQ/internal/model"
)

// reportColumns はSELECT/RETURNINGで取得するカラムの並び。scanReportと対応する。
const reportColumns = `id, user_id, predicted_class, confidence, category, part_scanned,
	symptoms, treatment, prevention, notes, image_path, original_filename,
	created_at, updated_at`

// PostgresReportRepo はPostgreSQLを使用した診断レポートリポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Create はレポートを作成する。
func (r *PostgresReportRepo) Create(ctx context.Context, report *model.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, user_id, predicted_class, confidence, category, part_scanned,
		                      symptoms, treatment, prevention, notes, image_path, original_filename,
		                      created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		report.ID, report.UserID, report.PredictedClass, report.Confidence,
		report.Category, report.PartScanned, report.Symptoms,
		pq.Array(report.Treatment), pq.Array(report.Prevention),
		report.Notes, report.ImagePath, report.OriginalFilename,
		report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

// FindByID は指定IDのレポートを取得する。見つからない場合はnilを返す。
func (r *PostgresReportRepo) FindByID(ctx context.Context, id string) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`,
		id,
	)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report by ID: %w", err)
	}

	return report, nil
}

// ListByUserID はユーザーのレポート一覧を作成日時の降順で返す。
func (r *PostgresReportRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		report := &model.Report{}
		err := rows.Scan(
			&report.ID, &report.UserID, &report.PredictedClass, &report.Confidence,
			&report.Category, &report.PartScanned, &report.Symptoms,
			pq.Array(&report.Treatment), pq.Array(&report.Prevention),
			&report.Notes, &report.ImagePath, &report.OriginalFilename,
			&report.CreatedAt, &report.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// UpdateNotes はレポートのメモを更新し、更新後のレポートを返す。
func (r *PostgresReportRepo) UpdateNotes(ctx context.Context, id, notes string) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE reports SET notes = $2, updated_at = now() WHERE id = $1 RETURNING `+reportColumns,
		id, notes,
	)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report notes: %w", err)
	}

	return report, nil
}

// Delete は指定IDのレポートを削除する。
func (r *PostgresReportRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reports WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// scanReport は1行分のレポートレコードを読み取る。
func scanReport(row *sql.Row) (*model.Report, error) {
	report := &model.Report{}
	err := row.Scan(
		&report.ID, &report.UserID, &report.PredictedClass, &report.Confidence,
		&report.Category, &report.PartScanned, &report.Symptoms,
		pq.Array(&report.Treatment), pq.Array(&report.Prevention),
		&report.Notes, &report.ImagePath, &report.OriginalFilename,
		&report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// compile-time interface check
var _ ReportRepository = (*PostgresReportRepo)(nil)
