package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ArunimaSaha23/AgriIQ/internal/model"
)

// uniqueViolation はPostgreSQLのunique制約違反を示すSQLSTATE。
const uniqueViolation = "23505"

// userColumns はSELECT/RETURNINGで取得するカラムの並び。scanUserと対応する。
const userColumns = `id, name, email, password_hash, phone, gender, language, dob,
	address_line1, address_line2, image_path, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create はユーザーを作成する。
// メールアドレスのunique制約違反はErrDuplicateEmailに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, phone, gender, language, dob,
		                    address_line1, address_line2, image_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Phone, user.Gender, user.Language, user.DOB,
		user.Address.Line1, user.Address.Line2, user.ImagePath,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// UpdateProfile は指定フィールドを既存レコードにマージし、更新後のユーザーを返す。
// nilの任意フィールドはCOALESCEにより既存値を維持する。updated_atは常に更新される。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error) {
	var line1, line2 *string
	if update.Address != nil {
		line1 = &update.Address.Line1
		line2 = &update.Address.Line2
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE users
		    SET name = $2,
		        phone = $3,
		        gender = $4,
		        email = COALESCE($5, email),
		        dob = COALESCE($6, dob),
		        language = COALESCE($7, language),
		        address_line1 = COALESCE($8, address_line1),
		        address_line2 = COALESCE($9, address_line2),
		        image_path = COALESCE($10, image_path),
		        updated_at = now()
		  WHERE id = $1
		 RETURNING `+userColumns,
		id, update.Name, update.Phone, update.Gender,
		update.Email, update.DOB, update.Language,
		line1, line2, update.ImagePath,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// scanUser は1行分のユーザーレコードを読み取る。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Phone, &user.Gender, &user.Language, &user.DOB,
		&user.Address.Line1, &user.Address.Line2, &user.ImagePath,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// isUniqueViolation はunique制約違反エラーかどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
