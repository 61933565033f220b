package action

import (
	"context"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/readstate"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/security"
)

// --- モック定義 ---

type mockResolver struct {
	lookupFn      func(ctx context.Context, feedURL string) (*model.Feed, error)
	getOrCreateFn func(ctx context.Context, feedURL string) (*model.Feed, error)
}

func (m *mockResolver) Lookup(ctx context.Context, feedURL string) (*model.Feed, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, feedURL)
	}
	return nil, nil
}

func (m *mockResolver) GetOrCreate(ctx context.Context, feedURL string) (*model.Feed, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, feedURL)
	}
	return nil, nil
}

type mockSharedRepo struct {
	findByUserFeedGUIDFn func(ctx context.Context, userID, feedID int64, guid string) (*model.SharedStory, error)
	createFn             func(ctx context.Context, story *model.SharedStory) error
	listBySharersFn      func(ctx context.Context, sharerIDs []int64, limit int) ([]*model.SharedStory, error)
}

func (m *mockSharedRepo) FindByUserFeedGUID(ctx context.Context, userID, feedID int64, guid string) (*model.SharedStory, error) {
	if m.findByUserFeedGUIDFn != nil {
		return m.findByUserFeedGUIDFn(ctx, userID, feedID, guid)
	}
	return nil, nil
}

func (m *mockSharedRepo) Create(ctx context.Context, story *model.SharedStory) error {
	if m.createFn != nil {
		return m.createFn(ctx, story)
	}
	return nil
}

func (m *mockSharedRepo) ListBySharers(ctx context.Context, sharerIDs []int64, limit int) ([]*model.SharedStory, error) {
	if m.listBySharersFn != nil {
		return m.listBySharersFn(ctx, sharerIDs, limit)
	}
	return nil, nil
}

type mockSocialRepo struct {
	findByUserAndSharerFn    func(ctx context.Context, userID, sharerID int64) (*model.SocialSubscription, error)
	listSharerIDsByUserFn    func(ctx context.Context, userID int64) ([]int64, error)
	listSharersWithCountsFn  func(ctx context.Context, userID int64) ([]model.SharerInfo, error)
	flagNeedsUnreadRecalcFn  func(ctx context.Context, sharerID int64) error
	clearNeedsUnreadRecalcFn func(ctx context.Context, id string) error
}

func (m *mockSocialRepo) FindByUserAndSharer(ctx context.Context, userID, sharerID int64) (*model.SocialSubscription, error) {
	if m.findByUserAndSharerFn != nil {
		return m.findByUserAndSharerFn(ctx, userID, sharerID)
	}
	return nil, nil
}

func (m *mockSocialRepo) ListSharerIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	if m.listSharerIDsByUserFn != nil {
		return m.listSharerIDsByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSocialRepo) ListSharersWithCounts(ctx context.Context, userID int64) ([]model.SharerInfo, error) {
	if m.listSharersWithCountsFn != nil {
		return m.listSharersWithCountsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSocialRepo) FlagNeedsUnreadRecalc(ctx context.Context, sharerID int64) error {
	if m.flagNeedsUnreadRecalcFn != nil {
		return m.flagNeedsUnreadRecalcFn(ctx, sharerID)
	}
	return nil
}

func (m *mockSocialRepo) ClearNeedsUnreadRecalc(ctx context.Context, id string) error {
	if m.clearNeedsUnreadRecalcFn != nil {
		return m.clearNeedsUnreadRecalcFn(ctx, id)
	}
	return nil
}

type mockStarredRepo struct {
	createFn           func(ctx context.Context, story *model.StarredStory) error
	listByUserAndTagFn func(ctx context.Context, userID int64, tag string, limit int) ([]*model.StarredStory, error)
	countTagsFn        func(ctx context.Context, userID int64) ([]model.TagCount, error)
	recountTagsFn      func(ctx context.Context, userID int64) error
}

func (m *mockStarredRepo) Create(ctx context.Context, story *model.StarredStory) error {
	if m.createFn != nil {
		return m.createFn(ctx, story)
	}
	return nil
}

func (m *mockStarredRepo) ListByUserAndTag(ctx context.Context, userID int64, tag string, limit int) ([]*model.StarredStory, error) {
	if m.listByUserAndTagFn != nil {
		return m.listByUserAndTagFn(ctx, userID, tag, limit)
	}
	return nil, nil
}

func (m *mockStarredRepo) CountTags(ctx context.Context, userID int64) ([]model.TagCount, error) {
	if m.countTagsFn != nil {
		return m.countTagsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStarredRepo) RecountTags(ctx context.Context, userID int64) error {
	if m.recountTagsFn != nil {
		return m.recountTagsFn(ctx, userID)
	}
	return nil
}

type mockSubRepo struct {
	findByUserAndFeedFn func(ctx context.Context, userID, feedID int64) (*model.Subscription, error)
	listActiveByUserFn  func(ctx context.Context, userID int64) ([]*model.Subscription, error)
	createFn            func(ctx context.Context, sub *model.Subscription) error
}

func (m *mockSubRepo) FindByUserAndFeed(ctx context.Context, userID, feedID int64) (*model.Subscription, error) {
	if m.findByUserAndFeedFn != nil {
		return m.findByUserAndFeedFn(ctx, userID, feedID)
	}
	return nil, nil
}

func (m *mockSubRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	if m.listActiveByUserFn != nil {
		return m.listActiveByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSubRepo) Create(ctx context.Context, sub *model.Subscription) error {
	if m.createFn != nil {
		return m.createFn(ctx, sub)
	}
	return nil
}

type mockFolderRepo struct {
	findByUserFn func(ctx context.Context, userID int64) (*model.Folders, error)
	addFeedFn    func(ctx context.Context, userID int64, folderTitle string, feedID int64) error
}

func (m *mockFolderRepo) FindByUser(ctx context.Context, userID int64) (*model.Folders, error) {
	if m.findByUserFn != nil {
		return m.findByUserFn(ctx, userID)
	}
	return &model.Folders{UserID: userID}, nil
}

func (m *mockFolderRepo) AddFeed(ctx context.Context, userID int64, folderTitle string, feedID int64) error {
	if m.addFeedFn != nil {
		return m.addFeedFn(ctx, userID, folderTitle, feedID)
	}
	return nil
}

type mockReadStore struct {
	markReadCalls []string
	markReadFn    func(ctx context.Context, userID, feedID int64, storyHash string) error
}

func (m *mockReadStore) MarkRead(ctx context.Context, userID, feedID int64, storyHash string) error {
	m.markReadCalls = append(m.markReadCalls, storyHash)
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, feedID, storyHash)
	}
	return nil
}

func (m *mockReadStore) IsRead(ctx context.Context, userID, feedID int64, storyHash string) (bool, error) {
	return false, nil
}

func (m *mockReadStore) FilterRead(ctx context.Context, userID, feedID int64, storyHashes []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

// passthroughSanitizer はサニタイズ呼び出しを記録しつつ入力をそのまま返す。
type passthroughSanitizer struct {
	sanitizedWithBase []string
}

func (s *passthroughSanitizer) Sanitize(rawHTML string) string {
	return rawHTML
}

func (s *passthroughSanitizer) SanitizeWithBase(rawHTML, baseURL string) string {
	s.sanitizedWithBase = append(s.sanitizedWithBase, baseURL)
	return rawHTML
}

type mockNotifier struct {
	notified []*model.SharedStory
	err      error
}

func (m *mockNotifier) NotifySubscribers(ctx context.Context, story *model.SharedStory) error {
	m.notified = append(m.notified, story)
	return m.err
}

// インターフェース実装の検証
var (
	_ FeedResolver                            = (*mockResolver)(nil)
	_ repository.SharedStoryRepository        = (*mockSharedRepo)(nil)
	_ repository.SocialSubscriptionRepository = (*mockSocialRepo)(nil)
	_ repository.StarredStoryRepository       = (*mockStarredRepo)(nil)
	_ repository.SubscriptionRepository       = (*mockSubRepo)(nil)
	_ repository.FolderRepository             = (*mockFolderRepo)(nil)
	_ readstate.Store                         = (*mockReadStore)(nil)
	_ security.ContentSanitizerService        = (*passthroughSanitizer)(nil)
	_ Notifier                                = (*mockNotifier)(nil)
)
