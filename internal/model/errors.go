// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 外部プラットフォーム（IFTTT）向けのメッセージは英語で保持する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, integration, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeConnectDenied     = "CONNECT_DENIED"
	ErrCodeProviderError     = "PROVIDER_ERROR"
	ErrCodeCredentialInUse   = "CREDENTIAL_IN_USE"
	ErrCodeLinkNotFound      = "LINK_NOT_FOUND"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeSubNotFound       = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeInvalidProvider   = "INVALID_PROVIDER"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
)

// NewConnectDeniedError はユーザーが認可画面で拒否した場合のエラーを生成する。
func NewConnectDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeConnectDenied,
		Message:  "Denied! Try connecting again.",
		Category: "auth",
	}
}

// NewProviderError はプロバイダーとの通信失敗（タイムアウト、不正レスポンス等）を
// ユーザー向けのリトライ可能エラーに変換する。
func NewProviderError(provider Provider) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  fmt.Sprintf("%s has returned an error. Try connecting again.", provider.DisplayName()),
		Category: "integration",
	}
}

// NewCredentialInUseError は外部アカウントが別のローカルユーザーに
// 紐付け済みの場合のエラーを生成する。相手ユーザーの表示名を含む。
func NewCredentialInUseError(provider Provider, username, email string) *APIError {
	if email == "" {
		email = "no email"
	}
	return &APIError{
		Code: ErrCodeCredentialInUse,
		Message: fmt.Sprintf("Another user (%s, %s) has already connected with those %s credentials.",
			username, email, provider.DisplayName()),
		Category: "conflict",
	}
}

// NewLinkNotFoundError は切断対象のIdentityLinkが存在しない場合のエラーを生成する。
// 呼び出し側の誤用を示すため、握りつぶさず伝播させること。
func NewLinkNotFoundError(provider Provider) *APIError {
	return &APIError{
		Code:     ErrCodeLinkNotFound,
		Message:  fmt.Sprintf("No %s account is connected.", provider.DisplayName()),
		Category: "validation",
	}
}

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
func NewMissingFieldError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("Missing required field: %s", key),
		Category: "validation",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(feedID int64) *APIError {
	return &APIError{
		Code:     ErrCodeSubNotFound,
		Message:  fmt.Sprintf("You are not subscribed to feed %d.", feedID),
		Category: "validation",
	}
}

// NewInvalidProviderError は未対応プロバイダー指定エラーを生成する。
func NewInvalidProviderError(s string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProvider,
		Message:  fmt.Sprintf("Unsupported provider: %s", s),
		Category: "validation",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
	}
}
