package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken は検証に失敗したトークンを示す。
// 形式不正・署名不一致・期限切れのいずれもこのエラーに正規化される。
var ErrInvalidToken = errors.New("invalid token")

// Claims はJWTのクレーム。標準クレームにユーザーIDを加えたもの。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenService は署名付きの時限トークンを発行・検証する。
// 秘密鍵はプロセス起動時に1回読み込む設定値であり、
// ローテーションすると発行済みトークンはすべて無効になる（失効リストは持たない）。
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService はTokenServiceを生成する。
// ttlはIssueで使用するデフォルトの有効期間。
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// Issue は指定ユーザーのトークンをデフォルトTTLで発行する。
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL は有効期間を指定してトークンを発行する。
func (s *TokenService) IssueWithTTL(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	return token.SignedString(s.secret)
}

// Verify はトークンを検証し、発行時のユーザーIDを返す。
// 検証失敗はすべてErrInvalidTokenとして返す。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
