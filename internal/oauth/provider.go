// Package oauth は外部プロバイダーとのアカウント連携フローを提供する。
//
// 連携フローは2段階で構成される:
//  1. 初回アクセス時にプロバイダーの認可URLを生成してリダイレクト先を返す
//  2. コールバック時に認可コード（またはverifier）を長期資格情報に交換し、
//     IdentityLinkとして永続化する
package oauth

import (
	"context"

	"github.com/hitoshi/feedlink/internal/model"
)

// CallbackParams はプロバイダーからのコールバッククエリパラメータを表す。
// OAuth 2.0ではCode、OAuth 1.0aではOAuthToken/OAuthVerifierが渡される。
type CallbackParams struct {
	Code          string // OAuth 2.0 認可コード
	Denied        string // ユーザーが認可画面で拒否した場合に設定される
	OAuthToken    string // OAuth 1.0a リクエストトークン
	OAuthVerifier string // OAuth 1.0a verifier
}

// IsInitial はフローの起点（コールバックパラメータなし）かどうかを返す。
func (p CallbackParams) IsInitial() bool {
	return p.Code == "" && p.OAuthVerifier == ""
}

// ProviderAdapter は外部プロバイダーごとのOAuthフローの差異を吸収する。
// Twitter（OAuth 1.0a）、Facebook（OAuth 2.0 + form-encodedレスポンス）、
// App.net（OAuth 2.0 + JSONレスポンス）がそれぞれ実装する。
type ProviderAdapter interface {
	// Provider はこのアダプターが扱うプロバイダー種別を返す。
	Provider() model.Provider

	// BuildAuthURL はユーザーをリダイレクトさせる認可URLを生成する。
	// OAuth 1.0aではリクエストトークンの取得を伴うため通信が発生する。
	BuildAuthURL(ctx context.Context) (string, error)

	// Exchange はコールバックパラメータを長期資格情報に交換する。
	// 交換レスポンスに外部ユーザーIDが含まれる場合はそれも返す。
	// 含まれない場合はuidは空文字列となり、FetchProfileUIDで補完する。
	Exchange(ctx context.Context, params CallbackParams) (model.Credential, string, error)

	// FetchProfileUID は資格情報で外部プロバイダーのユーザーIDを取得する。
	// Exchangeの時点でuidが判明しているプロバイダーでは呼ばれない。
	FetchProfileUID(ctx context.Context, cred model.Credential) (string, error)
}
