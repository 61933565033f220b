package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hitoshi/feedlink/internal/model"
)

const (
	defaultFacebookAuthURL    = "https://www.facebook.com/dialog/oauth"
	defaultFacebookTokenURL   = "https://graph.facebook.com/oauth/access_token"
	defaultFacebookProfileURL = "https://graph.facebook.com/me"
)

// FacebookConfig はFacebookプロバイダーの設定。
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string

	// テスト用にオーバーライド可能なURL
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// FacebookAdapter はFacebook（OAuth 2.0）との連携フローを実装する。
// トークンエンドポイントのレスポンスはform-encodedで返される。
type FacebookAdapter struct {
	config FacebookConfig
}

// NewFacebookAdapter はFacebookAdapterを生成する。
func NewFacebookAdapter(cfg FacebookConfig) *FacebookAdapter {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultFacebookAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultFacebookTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultFacebookProfileURL
	}
	return &FacebookAdapter{config: cfg}
}

// Provider はProviderFacebookを返す。
func (a *FacebookAdapter) Provider() model.Provider {
	return model.ProviderFacebook
}

// BuildAuthURL はFacebookの認可URLを生成する。
func (a *FacebookAdapter) BuildAuthURL(_ context.Context) (string, error) {
	params := url.Values{
		"client_id":    {a.config.AppID},
		"redirect_uri": {a.config.RedirectURL},
		"scope":        {"public_profile,user_friends"},
	}
	return a.config.AuthURL + "?" + params.Encode(), nil
}

// Exchange は認可コードをアクセストークンに交換する。
// レスポンスはJSONではなく "access_token=...&expires=..." 形式。
// uidはレスポンスに含まれないためFetchProfileUIDで補完する。
func (a *FacebookAdapter) Exchange(ctx context.Context, params CallbackParams) (model.Credential, string, error) {
	query := url.Values{
		"client_id":     {a.config.AppID},
		"client_secret": {a.config.AppSecret},
		"redirect_uri":  {a.config.RedirectURL},
		"code":          {params.Code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.TokenURL+"?"+query.Encode(), nil)
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("failed to create token request: %w", err)
	}

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

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return model.Credential{}, "", fmt.Errorf("failed to parse token response: %w", err)
	}

	accessToken := values.Get("access_token")
	if accessToken == "" {
		return model.Credential{}, "", fmt.Errorf("empty access token in response: %s", string(body))
	}

	return model.Credential{Token: accessToken}, "", nil
}

// facebookProfile はGraph APIの/meレスポンス。
type facebookProfile struct {
	ID string `json:"id"`
}

// FetchProfileUID はGraph APIで外部ユーザーIDを取得する。
func (a *FacebookAdapter) FetchProfileUID(ctx context.Context, cred model.Credential) (string, error) {
	query := url.Values{
		"access_token": {cred.Token},
		"fields":       {"id"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.ProfileURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create profile request: %w", err)
	}

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

	var profile facebookProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	if profile.ID == "" {
		return "", fmt.Errorf("empty id in profile response")
	}

	return profile.ID, nil
}

// compile-time interface check
var _ ProviderAdapter = (*FacebookAdapter)(nil)
