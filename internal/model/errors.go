package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// MessageはAPIレスポンスにそのまま載せるユーザー向け文言。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, report, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingDetails     = "MISSING_DETAILS"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeEmailExists        = "EMAIL_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeRequiredFields     = "REQUIRED_FIELDS_MISSING"
	ErrCodeInvalidAddress     = "INVALID_ADDRESS"
	ErrCodeImageMissing       = "IMAGE_MISSING"
	ErrCodeReportNotFound     = "REPORT_NOT_FOUND"
	ErrCodeInferenceFailed    = "INFERENCE_FAILED"
)

// NewMissingDetailsError は登録項目不足エラーを生成する。
func NewMissingDetailsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingDetails,
		Message:  "Missing Details",
		Category: "validation",
		Action:   "Provide name, email and password.",
	}
}

// NewInvalidEmailError はメールアドレス形式不正エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "Enter a valid email",
		Category: "validation",
		Action:   "Check the email address format.",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "Enter a strong password",
		Category: "validation",
		Action:   "Use a password of at least 8 characters.",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailExists,
		Message:  "Email already registered",
		Category: "validation",
		Action:   "Log in with this email or use another one.",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不在とパスワード不一致でメッセージが異なるため引数で受け取る。
func NewInvalidCredentialsError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  message,
		Category: "auth",
		Action:   "Check the email and password.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewRequiredFieldsError はプロフィール更新の必須項目不足エラーを生成する。
func NewRequiredFieldsError() *APIError {
	return &APIError{
		Code:     ErrCodeRequiredFields,
		Message:  "Required fields missing: name, phone, gender",
		Category: "validation",
		Action:   "Fill in name, phone and gender.",
	}
}

// NewInvalidAddressError は住所のパース失敗エラーを生成する。
func NewInvalidAddressError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAddress,
		Message:  "Invalid address format",
		Category: "validation",
		Action:   "Send the address as a JSON object with line1 and line2.",
	}
}

// NewImageMissingError は画像ファイル未添付エラーを生成する。
func NewImageMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeImageMissing,
		Message:  "Image file missing",
		Category: "validation",
		Action:   "Attach a crop photo to the request.",
	}
}

// NewReportNotFoundError はレポートが見つからない場合のエラーを生成する。
// 他ユーザーのレポートへのアクセスも存在を漏らさないため同じエラーになる。
func NewReportNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeReportNotFound,
		Message:  "Report not found",
		Category: "report",
		Action:   "Check the report id.",
	}
}

// NewInferenceFailedError は外部推論エンドポイント呼び出し失敗エラーを生成する。
func NewInferenceFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeInferenceFailed,
		Message:  "Diagnosis service is unavailable",
		Category: "system",
		Action:   "Try again in a few minutes.",
	}
}
