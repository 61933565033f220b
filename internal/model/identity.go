package model

import (
	"fmt"
	"time"
)

// Provider は外部IDプロバイダーの種別を表す。
type Provider string

const (
	// ProviderTwitter はTwitter（OAuth 1.0a）。
	ProviderTwitter Provider = "twitter"
	// ProviderFacebook はFacebook（OAuth 2.0、form-encodedトークンレスポンス）。
	ProviderFacebook Provider = "facebook"
	// ProviderAppDotNet はApp.net（OAuth 2.0、JSONトークンレスポンス）。
	ProviderAppDotNet Provider = "appdotnet"
)

// ParseProvider は文字列をProviderに変換する。未対応の場合はエラーを返す。
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderTwitter, ProviderFacebook, ProviderAppDotNet:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unsupported provider: %q", s)
}

// DisplayName はユーザー向けエラーメッセージで使用するプロバイダー名を返す。
func (p Provider) DisplayName() string {
	switch p {
	case ProviderTwitter:
		return "Twitter"
	case ProviderFacebook:
		return "Facebook"
	case ProviderAppDotNet:
		return "App.net"
	}
	return string(p)
}

// Credential はプロバイダーから取得した長期アクセス資格情報を表す。
// OAuth 1.0aの場合はToken/Secretのペア、OAuth 2.0の場合はTokenのみ。
type Credential struct {
	Token  string
	Secret string
}

// IdentityLink はローカルユーザーと外部プロバイダーアカウントの紐付けを表す。
// (user_id, provider)ごとに最大1件、(provider, external_uid)は全体で一意。
type IdentityLink struct {
	ID          string
	UserID      int64
	Provider    Provider
	ExternalUID string
	Credential  Credential
	Syncing     bool // 友人同期ジョブが投入済みかどうか
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
