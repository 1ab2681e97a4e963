// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// tokenHeaderName はトークンを運ぶリクエストヘッダー名。
// 標準のAuthorization: Bearerではなく、既存クライアントが送る素の「token」ヘッダーを使う。
const tokenHeaderName = "token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はトークン検証に必要なインターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// NewTokenAuthMiddleware はtokenヘッダーから署名付きトークンを読み取り検証する
// ミドルウェアを返す。認証済みユーザーIDをリクエストコンテキストに注入する。
// トークン欠落・検証失敗のリクエストには401を返す。
func NewTokenAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get(tokenHeaderName)
			if tokenString == "" {
				writeUnauthorized(w, "Not authorized: Token missing")
				return
			}

			userID, err := verifier.Verify(tokenString)
			if err != nil {
				slog.Warn("token verification failed",
					slog.String("error", err.Error()),
				)
				writeUnauthorized(w, "Not authorized: Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークン認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// writeUnauthorized は401レスポンスをレガシーAPIエンベロープで書き込む。
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
