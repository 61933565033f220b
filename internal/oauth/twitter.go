package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/hitoshi/feedlink/internal/model"
)

const (
	defaultTwitterRequestTokenURL = "https://api.twitter.com/oauth/request_token"
	defaultTwitterAuthorizeURL    = "https://api.twitter.com/oauth/authorize"
	defaultTwitterAccessTokenURL  = "https://api.twitter.com/oauth/access_token"
	defaultTwitterVerifyURL       = "https://api.twitter.com/1.1/account/verify_credentials.json"

	// requestSecretTTL はリクエストトークンシークレットの保持期間。
	// 認可画面からコールバックまでの猶予で、超過分はプルーニングされる。
	requestSecretTTL = 15 * time.Minute
)

// TwitterConfig はTwitterプロバイダーの設定。
type TwitterConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string

	// テスト用にオーバーライド可能なURL
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	VerifyURL       string
}

// TwitterAdapter はTwitter（OAuth 1.0a）との連携フローを実装する。
//
// OAuth 1.0aはアクセストークン交換時にリクエストトークンシークレットを
// 要求するため、認可URLの生成からコールバックまでの間シークレットを
// インメモリで保持する。複数インスタンス構成ではコールバックが
// 同一インスタンスに到達する必要がある。
type TwitterAdapter struct {
	config    oauth1.Config
	verifyURL string

	mu             sync.Mutex
	requestSecrets map[string]requestSecretEntry
}

type requestSecretEntry struct {
	secret   string
	issuedAt time.Time
}

// NewTwitterAdapter はTwitterAdapterを生成する。
func NewTwitterAdapter(cfg TwitterConfig) *TwitterAdapter {
	if cfg.RequestTokenURL == "" {
		cfg.RequestTokenURL = defaultTwitterRequestTokenURL
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = defaultTwitterAuthorizeURL
	}
	if cfg.AccessTokenURL == "" {
		cfg.AccessTokenURL = defaultTwitterAccessTokenURL
	}
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = defaultTwitterVerifyURL
	}

	return &TwitterAdapter{
		config: oauth1.Config{
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			CallbackURL:    cfg.CallbackURL,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: cfg.RequestTokenURL,
				AuthorizeURL:    cfg.AuthorizeURL,
				AccessTokenURL:  cfg.AccessTokenURL,
			},
		},
		verifyURL:      cfg.VerifyURL,
		requestSecrets: make(map[string]requestSecretEntry),
	}
}

// Provider はProviderTwitterを返す。
func (a *TwitterAdapter) Provider() model.Provider {
	return model.ProviderTwitter
}

// BuildAuthURL はリクエストトークンを取得して認可URLを生成する。
func (a *TwitterAdapter) BuildAuthURL(ctx context.Context) (string, error) {
	requestToken, requestSecret, err := a.config.RequestToken()
	if err != nil {
		return "", fmt.Errorf("failed to obtain request token: %w", err)
	}

	a.storeRequestSecret(requestToken, requestSecret)

	authURL, err := a.config.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("failed to build authorization URL: %w", err)
	}
	return authURL.String(), nil
}

// Exchange はverifierをアクセストークン・シークレットのペアに交換する。
// Twitterのレスポンスには外部ユーザーIDが含まれないため、uidは空で返す。
func (a *TwitterAdapter) Exchange(ctx context.Context, params CallbackParams) (model.Credential, string, error) {
	requestSecret, ok := a.takeRequestSecret(params.OAuthToken)
	if !ok {
		return model.Credential{}, "", fmt.Errorf("unknown or expired request token")
	}

	accessToken, accessSecret, err := a.config.AccessToken(params.OAuthToken, requestSecret, params.OAuthVerifier)
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("failed to exchange access token: %w", err)
	}

	return model.Credential{Token: accessToken, Secret: accessSecret}, "", nil
}

// twitterProfile はverify_credentialsのレスポンス。
type twitterProfile struct {
	IDStr string `json:"id_str"`
}

// FetchProfileUID は署名付きリクエストで外部ユーザーIDを取得する。
func (a *TwitterAdapter) FetchProfileUID(ctx context.Context, cred model.Credential) (string, error) {
	client := a.config.Client(ctx, oauth1.NewToken(cred.Token, cred.Secret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.verifyURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create profile request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile twitterProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	if profile.IDStr == "" {
		return "", fmt.Errorf("empty id_str in profile response")
	}

	return profile.IDStr, nil
}

// storeRequestSecret はリクエストトークンシークレットを保存し、期限切れを破棄する。
func (a *TwitterAdapter) storeRequestSecret(token, secret string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for t, entry := range a.requestSecrets {
		if now.Sub(entry.issuedAt) > requestSecretTTL {
			delete(a.requestSecrets, t)
		}
	}

	a.requestSecrets[token] = requestSecretEntry{secret: secret, issuedAt: now}
}

// takeRequestSecret はリクエストトークンシークレットを取り出して削除する。
func (a *TwitterAdapter) takeRequestSecret(token string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.requestSecrets[token]
	if !ok {
		return "", false
	}
	delete(a.requestSecrets, token)

	if time.Since(entry.issuedAt) > requestSecretTTL {
		return "", false
	}
	return entry.secret, true
}

// compile-time interface check
var _ ProviderAdapter = (*TwitterAdapter)(nil)
