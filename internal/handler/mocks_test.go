package handler

import (
	"context"
	"time"

	"github.com/hitoshi/feedlink/internal/action"
	"github.com/hitoshi/feedlink/internal/metrics"
	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/oauth"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/trigger"
)

// --- モック定義 ---

type mockConnectService struct {
	connectFn    func(ctx context.Context, userID int64, provider model.Provider, params oauth.CallbackParams) (*oauth.ConnectResult, error)
	disconnectFn func(ctx context.Context, userID int64, provider model.Provider) error
}

func (m *mockConnectService) Connect(ctx context.Context, userID int64, provider model.Provider, params oauth.CallbackParams) (*oauth.ConnectResult, error) {
	if m.connectFn != nil {
		return m.connectFn(ctx, userID, provider, params)
	}
	return &oauth.ConnectResult{}, nil
}

func (m *mockConnectService) Disconnect(ctx context.Context, userID int64, provider model.Provider) error {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx, userID, provider)
	}
	return nil
}

type mockTriggerService struct {
	unreadFn            func(ctx context.Context, userID int64, req trigger.Request, focus bool) ([]trigger.UnreadItem, error)
	savedFn             func(ctx context.Context, userID int64, req trigger.Request) ([]trigger.SavedItem, error)
	sharedFn            func(ctx context.Context, userID int64, req trigger.Request) ([]trigger.SharedItem, error)
	feedFolderOptionsFn func(ctx context.Context, userID int64) ([]trigger.Option, error)
	savedTagOptionsFn   func(ctx context.Context, userID int64) ([]trigger.Option, error)
	sharerOptionsFn     func(ctx context.Context, userID int64) ([]trigger.Option, error)
}

func (m *mockTriggerService) UnreadStories(ctx context.Context, userID int64, req trigger.Request, focus bool) ([]trigger.UnreadItem, error) {
	if m.unreadFn != nil {
		return m.unreadFn(ctx, userID, req, focus)
	}
	return nil, nil
}

func (m *mockTriggerService) SavedStories(ctx context.Context, userID int64, req trigger.Request) ([]trigger.SavedItem, error) {
	if m.savedFn != nil {
		return m.savedFn(ctx, userID, req)
	}
	return nil, nil
}

func (m *mockTriggerService) SharedStories(ctx context.Context, userID int64, req trigger.Request) ([]trigger.SharedItem, error) {
	if m.sharedFn != nil {
		return m.sharedFn(ctx, userID, req)
	}
	return nil, nil
}

func (m *mockTriggerService) FeedFolderOptions(ctx context.Context, userID int64) ([]trigger.Option, error) {
	if m.feedFolderOptionsFn != nil {
		return m.feedFolderOptionsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTriggerService) SavedTagOptions(ctx context.Context, userID int64) ([]trigger.Option, error) {
	if m.savedTagOptionsFn != nil {
		return m.savedTagOptionsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockTriggerService) SharerOptions(ctx context.Context, userID int64) ([]trigger.Option, error) {
	if m.sharerOptionsFn != nil {
		return m.sharerOptionsFn(ctx, userID)
	}
	return nil, nil
}

type mockShareService struct {
	shareFn func(ctx context.Context, userID int64, input action.ShareInput) (*action.ShareResult, error)
}

func (m *mockShareService) Share(ctx context.Context, userID int64, input action.ShareInput) (*action.ShareResult, error) {
	if m.shareFn != nil {
		return m.shareFn(ctx, userID, input)
	}
	return &action.ShareResult{}, nil
}

type mockSaveService struct {
	saveFn func(ctx context.Context, userID int64, input action.SaveInput) (*action.SaveResult, error)
}

func (m *mockSaveService) Save(ctx context.Context, userID int64, input action.SaveInput) (*action.SaveResult, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, input)
	}
	return &action.SaveResult{}, nil
}

type mockSubscribeService struct {
	subscribeFn func(ctx context.Context, userID int64, input action.SubscribeInput) (*action.SubscribeResult, error)
}

func (m *mockSubscribeService) Subscribe(ctx context.Context, userID int64, input action.SubscribeInput) (*action.SubscribeResult, error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, userID, input)
	}
	return &action.SubscribeResult{}, nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) UsernamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	return nil, nil
}

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// recordingCollector はテスト用のメトリクスコレクター。呼び出しを記録するだけ。
type recordingCollector struct {
	connectAttempts  []string
	connectSuccesses []string
	connectFailures  []string
	triggers         map[string]int
	actions          []string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{triggers: make(map[string]int)}
}

func (c *recordingCollector) RecordConnectAttempt(provider string) {
	c.connectAttempts = append(c.connectAttempts, provider)
}

func (c *recordingCollector) RecordConnectSuccess(provider string) {
	c.connectSuccesses = append(c.connectSuccesses, provider)
}

func (c *recordingCollector) RecordConnectFailure(provider string, reason string) {
	c.connectFailures = append(c.connectFailures, provider+":"+reason)
}

func (c *recordingCollector) RecordTrigger(trigger string, items int) {
	c.triggers[trigger] += items
}

func (c *recordingCollector) RecordAction(action string, duplicate bool) {
	c.actions = append(c.actions, action)
}

func (c *recordingCollector) RecordHTTPStatus(statusCode int) {}

func (c *recordingCollector) RecordProviderLatency(provider string, duration time.Duration) {}

// --- compile-time interface checks ---

var (
	_ ConnectServiceInterface   = (*mockConnectService)(nil)
	_ TriggerServiceInterface   = (*mockTriggerService)(nil)
	_ ShareServiceInterface     = (*mockShareService)(nil)
	_ SaveServiceInterface      = (*mockSaveService)(nil)
	_ SubscribeServiceInterface = (*mockSubscribeService)(nil)
	_ metrics.MetricsCollector  = (*recordingCollector)(nil)
	_ repository.UserRepository = (*mockUserRepo)(nil)
	_ middleware.SessionFinder  = (*mockSessionFinder)(nil)
)
