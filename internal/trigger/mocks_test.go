package trigger

import (
	"context"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/readstate"
	"github.com/hitoshi/feedlink/internal/repository"
)

// --- モック定義 ---

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

type mockFeedRepo struct {
	findByIDFn      func(ctx context.Context, id int64) (*model.Feed, error)
	findByFeedURLFn func(ctx context.Context, feedURL string) (*model.Feed, error)
	listByIDsFn     func(ctx context.Context, ids []int64) (map[int64]*model.Feed, error)
	createFn        func(ctx context.Context, feed *model.Feed) error
}

func (m *mockFeedRepo) FindByID(ctx context.Context, id int64) (*model.Feed, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockFeedRepo) FindByFeedURL(ctx context.Context, feedURL string) (*model.Feed, error) {
	if m.findByFeedURLFn != nil {
		return m.findByFeedURLFn(ctx, feedURL)
	}
	return nil, nil
}

func (m *mockFeedRepo) ListByIDs(ctx context.Context, ids []int64) (map[int64]*model.Feed, error) {
	if m.listByIDsFn != nil {
		return m.listByIDsFn(ctx, ids)
	}
	return map[int64]*model.Feed{}, nil
}

func (m *mockFeedRepo) Create(ctx context.Context, feed *model.Feed) error {
	if m.createFn != nil {
		return m.createFn(ctx, feed)
	}
	return nil
}

type mockStoryRepo struct {
	listByFeedsFn func(ctx context.Context, feedIDs []int64, limit int) ([]*model.Story, error)
}

func (m *mockStoryRepo) ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*model.Story, error) {
	if m.listByFeedsFn != nil {
		return m.listByFeedsFn(ctx, feedIDs, limit)
	}
	return nil, nil
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

type mockClassifierRepo struct {
	listByUserAndFeedsFn   func(ctx context.Context, userID int64, feedIDs []int64) ([]model.ClassifierRule, error)
	listByUserAndSharersFn func(ctx context.Context, userID int64, sharerIDs []int64) ([]model.ClassifierRule, error)
}

func (m *mockClassifierRepo) ListByUserAndFeeds(ctx context.Context, userID int64, feedIDs []int64) ([]model.ClassifierRule, error) {
	if m.listByUserAndFeedsFn != nil {
		return m.listByUserAndFeedsFn(ctx, userID, feedIDs)
	}
	return nil, nil
}

func (m *mockClassifierRepo) ListByUserAndSharers(ctx context.Context, userID int64, sharerIDs []int64) ([]model.ClassifierRule, error) {
	if m.listByUserAndSharersFn != nil {
		return m.listByUserAndSharersFn(ctx, userID, sharerIDs)
	}
	return nil, nil
}

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
	return map[int64]string{}, nil
}

type mockReadStore struct {
	markReadFn   func(ctx context.Context, userID, feedID int64, storyHash string) error
	isReadFn     func(ctx context.Context, userID, feedID int64, storyHash string) (bool, error)
	filterReadFn func(ctx context.Context, userID, feedID int64, storyHashes []string) (map[string]bool, error)
}

func (m *mockReadStore) MarkRead(ctx context.Context, userID, feedID int64, storyHash string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, feedID, storyHash)
	}
	return nil
}

func (m *mockReadStore) IsRead(ctx context.Context, userID, feedID int64, storyHash string) (bool, error) {
	if m.isReadFn != nil {
		return m.isReadFn(ctx, userID, feedID, storyHash)
	}
	return false, nil
}

func (m *mockReadStore) FilterRead(ctx context.Context, userID, feedID int64, storyHashes []string) (map[string]bool, error) {
	if m.filterReadFn != nil {
		return m.filterReadFn(ctx, userID, feedID, storyHashes)
	}
	flags := make(map[string]bool, len(storyHashes))
	for _, h := range storyHashes {
		flags[h] = false
	}
	return flags, nil
}

// インターフェース実装の検証
var (
	_ repository.SubscriptionRepository       = (*mockSubRepo)(nil)
	_ repository.FolderRepository             = (*mockFolderRepo)(nil)
	_ repository.FeedRepository               = (*mockFeedRepo)(nil)
	_ repository.StoryRepository              = (*mockStoryRepo)(nil)
	_ repository.StarredStoryRepository       = (*mockStarredRepo)(nil)
	_ repository.SharedStoryRepository        = (*mockSharedRepo)(nil)
	_ repository.SocialSubscriptionRepository = (*mockSocialRepo)(nil)
	_ repository.ClassifierRepository         = (*mockClassifierRepo)(nil)
	_ repository.UserRepository               = (*mockUserRepo)(nil)
	_ readstate.Store                         = (*mockReadStore)(nil)
)

// deps は全依存のモック一式。newService経由でServiceを組み立てる。
type deps struct {
	subs       *mockSubRepo
	folders    *mockFolderRepo
	feeds      *mockFeedRepo
	stories    *mockStoryRepo
	starred    *mockStarredRepo
	shared     *mockSharedRepo
	social     *mockSocialRepo
	classifier *mockClassifierRepo
	users      *mockUserRepo
	reads      *mockReadStore
}

func newDeps() *deps {
	return &deps{
		subs:       &mockSubRepo{},
		folders:    &mockFolderRepo{},
		feeds:      &mockFeedRepo{},
		stories:    &mockStoryRepo{},
		starred:    &mockStarredRepo{},
		shared:     &mockSharedRepo{},
		social:     &mockSocialRepo{},
		classifier: &mockClassifierRepo{},
		users:      &mockUserRepo{},
		reads:      &mockReadStore{},
	}
}

func (d *deps) service() *Service {
	return NewService(
		d.subs, d.folders, d.feeds, d.stories, d.starred,
		d.shared, d.social, d.classifier, d.users, d.reads,
	)
}
