// Package trigger はトリガーリクエストに対する記事の検索・フィルタリングを提供する。
// スコープ解決、時間窓フィルタ、分類器によるスコアリングを組み合わせて
// 外部プラットフォーム向けの記事一覧を組み立てる。
package trigger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/readstate"
	"github.com/hitoshi/feedlink/internal/repository"
)

// DefaultLimit はlimit未指定時の取得件数。
const DefaultLimit = 50

// ScopeAll は全購読・全タグ・全シェアラーを対象とするスコープ指定。
const ScopeAll = "all"

// TopLevelFolder はトップレベルフォルダの外部向け表記。
const TopLevelFolder = "Top Level"

// Window は時間窓フィルタを表す。エポック秒で両端を含む。0は未指定。
type Window struct {
	After  int64
	Before int64
}

// Contains はエポック秒tsが窓の内側（境界含む）にあるかを返す。
func (w Window) Contains(ts int64) bool {
	if w.Before != 0 && ts > w.Before {
		return false
	}
	if w.After != 0 && ts < w.After {
		return false
	}
	return true
}

// Request はトリガーリクエストの共通パラメータ。
type Request struct {
	Scope  string // フィードID、フォルダ名、タグ、シェアラーID、または"all"
	Window Window
	Limit  int
}

func (r Request) limit() int {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

// UnreadItem は未読トリガーの結果1件を表す。
type UnreadItem struct {
	Story *model.Story
	Feed  *model.Feed
	Score int
}

// SavedItem は保存トリガーの結果1件を表す。
type SavedItem struct {
	Story *model.StarredStory
	Feed  *model.Feed
}

// SharedItem は共有トリガーの結果1件を表す。
type SharedItem struct {
	Story          *model.SharedStory
	Feed           *model.Feed
	SharerUsername string
	Score          int
}

// Service は記事検索・フィルタリングエンジン。
type Service struct {
	subRepo        repository.SubscriptionRepository
	folderRepo     repository.FolderRepository
	feedRepo       repository.FeedRepository
	storyRepo      repository.StoryRepository
	starredRepo    repository.StarredStoryRepository
	sharedRepo     repository.SharedStoryRepository
	socialRepo     repository.SocialSubscriptionRepository
	classifierRepo repository.ClassifierRepository
	userRepo       repository.UserRepository
	readStore      readstate.Store
}

// NewService はServiceを生成する。
func NewService(
	subRepo repository.SubscriptionRepository,
	folderRepo repository.FolderRepository,
	feedRepo repository.FeedRepository,
	storyRepo repository.StoryRepository,
	starredRepo repository.StarredStoryRepository,
	sharedRepo repository.SharedStoryRepository,
	socialRepo repository.SocialSubscriptionRepository,
	classifierRepo repository.ClassifierRepository,
	userRepo repository.UserRepository,
	readStore readstate.Store,
) *Service {
	return &Service{
		subRepo:        subRepo,
		folderRepo:     folderRepo,
		feedRepo:       feedRepo,
		storyRepo:      storyRepo,
		starredRepo:    starredRepo,
		sharedRepo:     sharedRepo,
		socialRepo:     socialRepo,
		classifierRepo: classifierRepo,
		userRepo:       userRepo,
		readStore:      readStore,
	}
}

// UnreadStories は未読トリガーの結果を返す。
// focusがtrueの場合、スコア1以上の記事のみを返す。
func (s *Service) UnreadStories(ctx context.Context, userID int64, req Request, focus bool) ([]UnreadItem, error) {
	feedIDs, trained, err := s.resolveFeedScope(ctx, userID, req.Scope)
	if err != nil {
		return nil, err
	}
	if len(feedIDs) == 0 {
		return []UnreadItem{}, nil
	}

	limit := req.limit()
	stories, err := s.storyRepo.ListByFeeds(ctx, feedIDs, limit)
	if err != nil {
		return nil, err
	}

	stories, err = s.dropRead(ctx, userID, stories)
	if err != nil {
		return nil, err
	}

	rules, err := s.classifierRepo.ListByUserAndFeeds(ctx, userID, feedIDs)
	if err != nil {
		return nil, err
	}

	feeds, err := s.feedRepo.ListByIDs(ctx, feedIDs)
	if err != nil {
		return nil, err
	}

	items := make([]UnreadItem, 0, len(stories))
	for _, story := range stories {
		if !req.Window.Contains(story.PublishedAt.Unix()) {
			continue
		}

		score := 0
		if trained[story.FeedID] {
			score = scoreStory(storyFacts{
				Title:  story.Title,
				Author: story.Author,
				Tags:   story.Tags,
				FeedID: story.FeedID,
			}, rules)
		}
		if score < 0 {
			continue
		}
		if focus && score < 1 {
			continue
		}

		items = append(items, UnreadItem{Story: story, Feed: feeds[story.FeedID], Score: score})
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// SavedStories は保存トリガーの結果を返す。スコアリングは行わない。
// スコープはタグで、"all"または空文字列は全タグを対象とする。
func (s *Service) SavedStories(ctx context.Context, userID int64, req Request) ([]SavedItem, error) {
	tag := req.Scope
	if tag == ScopeAll {
		tag = ""
	}

	stories, err := s.starredRepo.ListByUserAndTag(ctx, userID, tag, req.limit())
	if err != nil {
		return nil, err
	}

	feeds, err := s.feedRepo.ListByIDs(ctx, feedIDsOfStarred(stories))
	if err != nil {
		return nil, err
	}

	items := make([]SavedItem, 0, len(stories))
	for _, story := range stories {
		if !req.Window.Contains(story.StarredAt.Unix()) {
			continue
		}
		items = append(items, SavedItem{Story: story, Feed: feeds[story.FeedID]})
	}
	return items, nil
}

// SharedStories は共有トリガーの結果を返す。
// スコープは数値のシェアラーIDまたは"all"（購読中の全シェアラー）。
func (s *Service) SharedStories(ctx context.Context, userID int64, req Request) ([]SharedItem, error) {
	sharerIDs, err := s.resolveSharerScope(ctx, userID, req.Scope)
	if err != nil {
		return nil, err
	}
	if len(sharerIDs) == 0 {
		return []SharedItem{}, nil
	}

	stories, err := s.sharedRepo.ListBySharers(ctx, sharerIDs, req.limit())
	if err != nil {
		return nil, err
	}

	rules, err := s.mergedSharedRules(ctx, userID, sharerIDs, stories)
	if err != nil {
		return nil, err
	}

	feeds, err := s.feedRepo.ListByIDs(ctx, feedIDsOfShared(stories))
	if err != nil {
		return nil, err
	}

	usernames, err := s.userRepo.UsernamesByIDs(ctx, sharerIDs)
	if err != nil {
		return nil, err
	}

	items := make([]SharedItem, 0, len(stories))
	for _, story := range stories {
		if !req.Window.Contains(story.SharedAt.Unix()) {
			continue
		}

		score := scoreStory(storyFacts{
			Title:    story.Title,
			Author:   story.Author,
			FeedID:   story.FeedID,
			SharerID: story.UserID,
		}, rules)
		if score < 0 {
			continue
		}

		items = append(items, SharedItem{
			Story:          story,
			Feed:           feeds[story.FeedID],
			SharerUsername: usernames[story.UserID],
			Score:          score,
		})
	}
	return items, nil
}

// resolveFeedScope はfeed_or_folderスコープをフィードID集合に解決する。
// 戻り値の2番目はスコアリング対象（トレーニング済み購読）のフィード集合。
func (s *Service) resolveFeedScope(ctx context.Context, userID int64, scope string) ([]int64, map[int64]bool, error) {
	if feedID, err := strconv.ParseInt(scope, 10, 64); err == nil {
		trained := make(map[int64]bool, 1)
		sub, err := s.subRepo.FindByUserAndFeed(ctx, userID, feedID)
		if err != nil {
			return nil, nil, err
		}
		if sub != nil {
			trained[feedID] = sub.Trained
		}
		return []int64{feedID}, trained, nil
	}

	subs, err := s.subRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	trained := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		trained[sub.FeedID] = sub.Trained
	}

	if scope == ScopeAll || scope == "" {
		feedIDs := make([]int64, 0, len(subs))
		for _, sub := range subs {
			feedIDs = append(feedIDs, sub.FeedID)
		}
		return feedIDs, trained, nil
	}

	// フォルダ名スコープ
	title := scope
	if title == TopLevelFolder {
		title = model.RootFolderTitle
	}
	folders, err := s.folderRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return folders.Flatten()[title], trained, nil
}

// resolveSharerScope はblurblog_userスコープをシェアラーID集合に解決する。
func (s *Service) resolveSharerScope(ctx context.Context, userID int64, scope string) ([]int64, error) {
	if sharerID, err := strconv.ParseInt(scope, 10, 64); err == nil {
		return []int64{sharerID}, nil
	}
	return s.socialRepo.ListSharerIDsByUser(ctx, userID)
}

// dropRead は既読の記事を取り除く。既読判定はフィード単位の既読集合に対して行う。
func (s *Service) dropRead(ctx context.Context, userID int64, stories []*model.Story) ([]*model.Story, error) {
	byFeed := make(map[int64][]string)
	for _, story := range stories {
		byFeed[story.FeedID] = append(byFeed[story.FeedID], story.Hash())
	}

	read := make(map[string]bool)
	for feedID, hashes := range byFeed {
		flags, err := s.readStore.FilterRead(ctx, userID, feedID, hashes)
		if err != nil {
			return nil, fmt.Errorf("既読フィルタに失敗しました: %w", err)
		}
		for hash, isRead := range flags {
			if isRead {
				read[hash] = true
			}
		}
	}

	unread := stories[:0]
	for _, story := range stories {
		if !read[story.Hash()] {
			unread = append(unread, story)
		}
	}
	return unread, nil
}

// mergedSharedRules はシェアラースコープとフィードスコープの分類器ルールを統合する。
func (s *Service) mergedSharedRules(ctx context.Context, userID int64, sharerIDs []int64, stories []*model.SharedStory) ([]model.ClassifierRule, error) {
	rules, err := s.classifierRepo.ListByUserAndSharers(ctx, userID, sharerIDs)
	if err != nil {
		return nil, err
	}

	feedIDs := feedIDsOfShared(stories)
	if len(feedIDs) > 0 {
		feedRules, err := s.classifierRepo.ListByUserAndFeeds(ctx, userID, feedIDs)
		if err != nil {
			return nil, err
		}
		rules = append(rules, feedRules...)
	}
	return rules, nil
}

func feedIDsOfStarred(stories []*model.StarredStory) []int64 {
	return dedupeIDs(len(stories), func(i int) int64 { return stories[i].FeedID })
}

func feedIDsOfShared(stories []*model.SharedStory) []int64 {
	return dedupeIDs(len(stories), func(i int) int64 { return stories[i].FeedID })
}

// dedupeIDs はインデックス関数から非ゼロのIDを重複なく集める。
func dedupeIDs(n int, idAt func(int) int64) []int64 {
	seen := make(map[int64]bool, n)
	var ids []int64
	for i := 0; i < n; i++ {
		id := idAt(i)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
