package oauth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	usernamesByIDsFn func(ctx context.Context, ids []int64) (map[int64]string, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) UsernamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	if m.usernamesByIDsFn != nil {
		return m.usernamesByIDsFn(ctx, ids)
	}
	return nil, nil
}

type mockLinkRepo struct {
	findByUserFn        func(ctx context.Context, userID int64, provider model.Provider) (*model.IdentityLink, error)
	findByExternalUIDFn func(ctx context.Context, provider model.Provider, uid string) (*model.IdentityLink, error)
	upsertFn            func(ctx context.Context, link *model.IdentityLink) error
	deleteFn            func(ctx context.Context, userID int64, provider model.Provider) error
	deleteByIDFn        func(ctx context.Context, id string) error
}

func (m *mockLinkRepo) FindByUser(ctx context.Context, userID int64, provider model.Provider) (*model.IdentityLink, error) {
	if m.findByUserFn != nil {
		return m.findByUserFn(ctx, userID, provider)
	}
	return nil, nil
}

func (m *mockLinkRepo) FindByExternalUID(ctx context.Context, provider model.Provider, uid string) (*model.IdentityLink, error) {
	if m.findByExternalUIDFn != nil {
		return m.findByExternalUIDFn(ctx, provider, uid)
	}
	return nil, nil
}

func (m *mockLinkRepo) Upsert(ctx context.Context, link *model.IdentityLink) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepo) Delete(ctx context.Context, userID int64, provider model.Provider) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, provider)
	}
	return nil
}

func (m *mockLinkRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockAdapter struct {
	provider          model.Provider
	buildAuthURLFn    func(ctx context.Context) (string, error)
	exchangeFn        func(ctx context.Context, params CallbackParams) (model.Credential, string, error)
	fetchProfileUIDFn func(ctx context.Context, cred model.Credential) (string, error)
}

func (m *mockAdapter) Provider() model.Provider {
	return m.provider
}

func (m *mockAdapter) BuildAuthURL(ctx context.Context) (string, error) {
	if m.buildAuthURLFn != nil {
		return m.buildAuthURLFn(ctx)
	}
	return "", nil
}

func (m *mockAdapter) Exchange(ctx context.Context, params CallbackParams) (model.Credential, string, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, params)
	}
	return model.Credential{}, "", nil
}

func (m *mockAdapter) FetchProfileUID(ctx context.Context, cred model.Credential) (string, error) {
	if m.fetchProfileUIDFn != nil {
		return m.fetchProfileUIDFn(ctx, cred)
	}
	return "", nil
}

type mockQueue struct {
	enqueueFriendSyncFn func(ctx context.Context, userID int64, provider model.Provider) error
	calls               int
}

func (m *mockQueue) EnqueueFriendSync(ctx context.Context, userID int64, provider model.Provider) error {
	m.calls++
	if m.enqueueFriendSyncFn != nil {
		return m.enqueueFriendSyncFn(ctx, userID, provider)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityLinkRepository = (*mockLinkRepo)(nil)
var _ ProviderAdapter = (*mockAdapter)(nil)
var _ JobQueue = (*mockQueue)(nil)

// --- ヘルパー ---

func newTestService(adapter *mockAdapter, userRepo *mockUserRepo, linkRepo *mockLinkRepo, queue *mockQueue) *ConnectService {
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	if linkRepo == nil {
		linkRepo = &mockLinkRepo{}
	}
	if queue == nil {
		queue = &mockQueue{}
	}
	return NewConnectService(
		[]ProviderAdapter{adapter},
		linkRepo,
		NewConflictResolver(userRepo, linkRepo),
		queue,
	)
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

// --- テスト ---

// 初回アクセスでは認可URLへのリダイレクトが返ることを検証
func TestConnect_Initial_ReturnsAuthURL(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderTwitter,
		buildAuthURLFn: func(_ context.Context) (string, error) {
			return "https://api.twitter.com/oauth/authorize?oauth_token=req-1", nil
		},
	}
	svc := newTestService(adapter, nil, nil, nil)

	result, err := svc.Connect(context.Background(), 42, model.ProviderTwitter, CallbackParams{})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if result.NextURL != "https://api.twitter.com/oauth/authorize?oauth_token=req-1" {
		t.Errorf("NextURL = %q", result.NextURL)
	}
}

// ユーザーが認可画面で拒否した場合はConnectDeniedエラーになることを検証
func TestConnect_Denied(t *testing.T) {
	adapter := &mockAdapter{provider: model.ProviderFacebook}
	svc := newTestService(adapter, nil, nil, nil)

	_, err := svc.Connect(context.Background(), 42, model.ProviderFacebook, CallbackParams{Denied: "true"})
	if code := apiErrorCode(t, err); code != model.ErrCodeConnectDenied {
		t.Errorf("code = %q, want %q", code, model.ErrCodeConnectDenied)
	}
}

// 未対応プロバイダーはInvalidProviderエラーになることを検証
func TestConnect_InvalidProvider(t *testing.T) {
	adapter := &mockAdapter{provider: model.ProviderTwitter}
	svc := newTestService(adapter, nil, nil, nil)

	_, err := svc.Connect(context.Background(), 42, model.Provider("myspace"), CallbackParams{})
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidProvider {
		t.Errorf("code = %q, want %q", code, model.ErrCodeInvalidProvider)
	}
}

// コールバック成功時に連携が永続化され、友人同期ジョブが投入されることを検証
func TestConnect_Callback_Success(t *testing.T) {
	var saved *model.IdentityLink
	adapter := &mockAdapter{
		provider: model.ProviderAppDotNet,
		exchangeFn: func(_ context.Context, params CallbackParams) (model.Credential, string, error) {
			if params.Code != "auth-code" {
				t.Errorf("code = %q, want auth-code", params.Code)
			}
			return model.Credential{Token: "tok"}, "adn-7", nil
		},
	}
	linkRepo := &mockLinkRepo{
		upsertFn: func(_ context.Context, link *model.IdentityLink) error {
			saved = link
			return nil
		},
	}
	queue := &mockQueue{}
	svc := newTestService(adapter, nil, linkRepo, queue)

	result, err := svc.Connect(context.Background(), 42, model.ProviderAppDotNet, CallbackParams{Code: "auth-code"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if result.NextURL != "" {
		t.Errorf("NextURL = %q, want empty", result.NextURL)
	}

	if saved == nil {
		t.Fatal("expected link to be persisted")
	}
	if saved.UserID != 42 || saved.Provider != model.ProviderAppDotNet || saved.ExternalUID != "adn-7" {
		t.Errorf("saved link = %+v", saved)
	}
	if !saved.Syncing {
		t.Error("expected Syncing to be true")
	}
	if saved.ID == "" {
		t.Error("expected link ID to be assigned")
	}

	if queue.calls != 1 {
		t.Errorf("friend sync enqueued %d times, want 1", queue.calls)
	}
}

// 交換レスポンスにuidが含まれない場合、プロフィール取得で補完されることを検証
func TestConnect_Callback_FetchesUIDWhenMissing(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderFacebook,
		exchangeFn: func(_ context.Context, _ CallbackParams) (model.Credential, string, error) {
			return model.Credential{Token: "tok"}, "", nil
		},
		fetchProfileUIDFn: func(_ context.Context, cred model.Credential) (string, error) {
			if cred.Token != "tok" {
				t.Errorf("cred.Token = %q", cred.Token)
			}
			return "fb-123", nil
		},
	}
	var saved *model.IdentityLink
	linkRepo := &mockLinkRepo{
		upsertFn: func(_ context.Context, link *model.IdentityLink) error {
			saved = link
			return nil
		},
	}
	svc := newTestService(adapter, nil, linkRepo, nil)

	if _, err := svc.Connect(context.Background(), 42, model.ProviderFacebook, CallbackParams{Code: "c"}); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if saved == nil || saved.ExternalUID != "fb-123" {
		t.Errorf("saved = %+v, want ExternalUID fb-123", saved)
	}
}

// プロバイダー通信失敗がリトライ可能なProviderErrorに変換されることを検証
func TestConnect_Callback_ProviderFailure(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderTwitter,
		exchangeFn: func(_ context.Context, _ CallbackParams) (model.Credential, string, error) {
			return model.Credential{}, "", errors.New("connection reset")
		},
	}
	svc := newTestService(adapter, nil, nil, nil)

	_, err := svc.Connect(context.Background(), 42, model.ProviderTwitter, CallbackParams{OAuthToken: "t", OAuthVerifier: "v"})
	if code := apiErrorCode(t, err); code != model.ErrCodeProviderError {
		t.Errorf("code = %q, want %q", code, model.ErrCodeProviderError)
	}
}

// 外部アカウントが別の有効なユーザーに連携済みの場合はCredentialInUseになることを検証
func TestConnect_Callback_CredentialInUse(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderTwitter,
		exchangeFn: func(_ context.Context, _ CallbackParams) (model.Credential, string, error) {
			return model.Credential{Token: "tok", Secret: "sec"}, "", nil
		},
		fetchProfileUIDFn: func(_ context.Context, _ model.Credential) (string, error) {
			return "tw-1", nil
		},
	}
	linkRepo := &mockLinkRepo{
		findByExternalUIDFn: func(_ context.Context, _ model.Provider, _ string) (*model.IdentityLink, error) {
			return &model.IdentityLink{ID: "link-other", UserID: 7}, nil
		},
		upsertFn: func(_ context.Context, _ *model.IdentityLink) error {
			t.Error("Upsert should not be called on conflict")
			return nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "alice", Email: "alice@example.com"}, nil
		},
	}
	svc := newTestService(adapter, userRepo, linkRepo, nil)

	_, err := svc.Connect(context.Background(), 42, model.ProviderTwitter, CallbackParams{OAuthToken: "t", OAuthVerifier: "v"})
	if code := apiErrorCode(t, err); code != model.ErrCodeCredentialInUse {
		t.Errorf("code = %q, want %q", code, model.ErrCodeCredentialInUse)
	}
}

// 所有者が削除済みの孤児リンクは取り除かれて連携が成立することを検証
func TestConnect_Callback_OrphanedLinkIsReplaced(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderTwitter,
		exchangeFn: func(_ context.Context, _ CallbackParams) (model.Credential, string, error) {
			return model.Credential{Token: "tok", Secret: "sec"}, "", nil
		},
		fetchProfileUIDFn: func(_ context.Context, _ model.Credential) (string, error) {
			return "tw-1", nil
		},
	}
	var deletedID string
	var saved *model.IdentityLink
	linkRepo := &mockLinkRepo{
		findByExternalUIDFn: func(_ context.Context, _ model.Provider, _ string) (*model.IdentityLink, error) {
			return &model.IdentityLink{ID: "stale-link", UserID: 999}, nil
		},
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
		upsertFn: func(_ context.Context, link *model.IdentityLink) error {
			saved = link
			return nil
		},
	}
	// 所有者ユーザーは存在しない
	userRepo := &mockUserRepo{}
	svc := newTestService(adapter, userRepo, linkRepo, nil)

	if _, err := svc.Connect(context.Background(), 42, model.ProviderTwitter, CallbackParams{OAuthToken: "t", OAuthVerifier: "v"}); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if deletedID != "stale-link" {
		t.Errorf("deleted link = %q, want stale-link", deletedID)
	}
	if saved == nil || saved.UserID != 42 {
		t.Errorf("saved = %+v, want UserID 42", saved)
	}
}

// 自分自身の再連携は競合にならず資格情報が更新されることを検証
func TestConnect_Callback_Reconnect(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderAppDotNet,
		exchangeFn: func(_ context.Context, _ CallbackParams) (model.Credential, string, error) {
			return model.Credential{Token: "new-tok"}, "adn-7", nil
		},
	}
	var saved *model.IdentityLink
	linkRepo := &mockLinkRepo{
		findByExternalUIDFn: func(_ context.Context, _ model.Provider, _ string) (*model.IdentityLink, error) {
			return &model.IdentityLink{ID: "link-mine", UserID: 42}, nil
		},
		upsertFn: func(_ context.Context, link *model.IdentityLink) error {
			saved = link
			return nil
		},
	}
	svc := newTestService(adapter, nil, linkRepo, nil)

	if _, err := svc.Connect(context.Background(), 42, model.ProviderAppDotNet, CallbackParams{Code: "c"}); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if saved == nil || saved.Credential.Token != "new-tok" {
		t.Errorf("saved = %+v, want new-tok", saved)
	}
}

// ジョブ投入の失敗で連携が失敗しないことを検証
func TestConnect_Callback_QueueFailureIsNonFatal(t *testing.T) {
	adapter := &mockAdapter{
		provider: model.ProviderAppDotNet,
		exchangeFn: func(_ context.Context, _ CallbackParams) (model.Credential, string, error) {
			return model.Credential{Token: "tok"}, "adn-7", nil
		},
	}
	queue := &mockQueue{
		enqueueFriendSyncFn: func(_ context.Context, _ int64, _ model.Provider) error {
			return errors.New("nats unavailable")
		},
	}
	svc := newTestService(adapter, nil, nil, queue)

	result, err := svc.Connect(context.Background(), 42, model.ProviderAppDotNet, CallbackParams{Code: "c"})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if result.NextURL != "" {
		t.Errorf("NextURL = %q, want empty", result.NextURL)
	}
}

// Disconnectが連携を削除することを検証
func TestDisconnect(t *testing.T) {
	adapter := &mockAdapter{provider: model.ProviderTwitter}
	var deleted bool
	linkRepo := &mockLinkRepo{
		findByUserFn: func(_ context.Context, userID int64, provider model.Provider) (*model.IdentityLink, error) {
			return &model.IdentityLink{ID: "link-1", UserID: userID, Provider: provider}, nil
		},
		deleteFn: func(_ context.Context, userID int64, provider model.Provider) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(adapter, nil, linkRepo, nil)

	if err := svc.Disconnect(context.Background(), 42, model.ProviderTwitter); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}
	if !deleted {
		t.Error("expected Delete to be called")
	}
}

// 連携が存在しない場合のDisconnectがLinkNotFoundを返すことを検証
func TestDisconnect_NoLink(t *testing.T) {
	adapter := &mockAdapter{provider: model.ProviderFacebook}
	svc := newTestService(adapter, nil, &mockLinkRepo{}, nil)

	err := svc.Disconnect(context.Background(), 42, model.ProviderFacebook)
	if code := apiErrorCode(t, err); code != model.ErrCodeLinkNotFound {
		t.Errorf("code = %q, want %q", code, model.ErrCodeLinkNotFound)
	}
}
