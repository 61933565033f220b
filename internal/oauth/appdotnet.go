package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/feedlink/internal/model"
)

const (
	defaultAppDotNetAuthURL    = "https://account.app.net/oauth/authenticate"
	defaultAppDotNetTokenURL   = "https://account.app.net/oauth/access_token"
	defaultAppDotNetProfileURL = "https://alpha-api.app.net/stream/0/users/me"
)

// AppDotNetConfig はApp.netプロバイダーの設定。
type AppDotNetConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// AppDotNetAdapter はApp.net（OAuth 2.0）との連携フローを実装する。
// トークンエンドポイントのレスポンスはJSONで、外部ユーザーIDを含む。
type AppDotNetAdapter struct {
	config AppDotNetConfig
}

// NewAppDotNetAdapter はAppDotNetAdapterを生成する。
func NewAppDotNetAdapter(cfg AppDotNetConfig) *AppDotNetAdapter {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAppDotNetAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultAppDotNetTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultAppDotNetProfileURL
	}
	return &AppDotNetAdapter{config: cfg}
}

// Provider はProviderAppDotNetを返す。
func (a *AppDotNetAdapter) Provider() model.Provider {
	return model.ProviderAppDotNet
}

// BuildAuthURL はApp.netの認可URLを生成する。
func (a *AppDotNetAdapter) BuildAuthURL(_ context.Context) (string, error) {
	params := url.Values{
		"client_id":     {a.config.ClientID},
		"redirect_uri":  {a.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"basic stream write_post follow"},
	}
	return a.config.AuthURL + "?" + params.Encode(), nil
}

// appDotNetTokenResponse はトークンエンドポイントのJSONレスポンス。
type appDotNetTokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
}

// Exchange は認可コードをアクセストークンに交換する。
// レスポンスに外部ユーザーIDが含まれるため、FetchProfileUIDは不要。
func (a *AppDotNetAdapter) Exchange(ctx context.Context, params CallbackParams) (model.Credential, string, error) {
	data := url.Values{
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"redirect_uri":  {a.config.RedirectURL},
		"grant_type":    {"authorization_code"},
		"code":          {params.Code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return model.Credential{}, "", fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp appDotNetTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return model.Credential{}, "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return model.Credential{}, "", fmt.Errorf("empty access token in response")
	}
	if tokenResp.UserID == 0 {
		return model.Credential{}, "", fmt.Errorf("empty user_id in response")
	}

	return model.Credential{Token: tokenResp.AccessToken}, fmt.Sprintf("%d", tokenResp.UserID), nil
}

// appDotNetProfile は/users/meのレスポンス。
type appDotNetProfile struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// FetchProfileUID はストリームAPIで外部ユーザーIDを取得する。
// 通常はExchangeの時点でuidが判明しているため呼ばれない。
func (a *AppDotNetAdapter) FetchProfileUID(ctx context.Context, cred model.Credential) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.ProfileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := http.DefaultClient.Do(req)
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

	var profile appDotNetProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	if profile.Data.ID == "" {
		return "", fmt.Errorf("empty id in profile response")
	}

	return profile.Data.ID, nil
}

// compile-time interface check
var _ ProviderAdapter = (*AppDotNetAdapter)(nil)
