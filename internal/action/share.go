// Package action は外部プラットフォームからのアクション（共有・保存・購読追加）を
// 冪等に処理する。外部プラットフォームは同一リクエストをリトライするため、
// 全アクションは重複実行で同じ結果を返さなければならない。
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/readstate"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/security"
)

// FeedResolver は記事URLからフィードを解決するインターフェース。
type FeedResolver interface {
	// Lookup は登録済みフィードを検索する。見つからない場合はnilを返す。
	Lookup(ctx context.Context, feedURL string) (*model.Feed, error)

	// GetOrCreate はフィードを検索し、未登録の場合は取得・登録する。
	GetOrCreate(ctx context.Context, feedURL string) (*model.Feed, error)
}

// Notifier は共有記事の購読者への通知インターフェース。
// 通知はベストエフォートで、失敗しても共有自体は成立する。
type Notifier interface {
	NotifySubscribers(ctx context.Context, story *model.SharedStory) error
}

// ShareInput は共有アクションの入力。
type ShareInput struct {
	URL      string
	Title    string
	Content  string
	Author   string
	Comments string
}

// ShareResult は共有アクションの結果。重複実行でも同じIDとURLを返す。
type ShareResult struct {
	ID  string
	URL string
}

// ShareService は記事の共有アクションを処理する。
type ShareService struct {
	resolver   FeedResolver
	sharedRepo repository.SharedStoryRepository
	socialRepo repository.SocialSubscriptionRepository
	readStore  readstate.Store
	sanitizer  security.ContentSanitizerService
	notifier   Notifier
	baseURL    string
}

// NewShareService はShareServiceを生成する。
func NewShareService(
	resolver FeedResolver,
	sharedRepo repository.SharedStoryRepository,
	socialRepo repository.SocialSubscriptionRepository,
	readStore readstate.Store,
	sanitizer security.ContentSanitizerService,
	notifier Notifier,
	baseURL string,
) *ShareService {
	return &ShareService{
		resolver:   resolver,
		sharedRepo: sharedRepo,
		socialRepo: socialRepo,
		readStore:  readStore,
		sanitizer:  sanitizer,
		notifier:   notifier,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Share は記事を共有する。既に共有済みの場合は既存レコードを返す（冪等）。
func (s *ShareService) Share(ctx context.Context, userID int64, input ShareInput) (*ShareResult, error) {
	if input.URL == "" {
		return nil, model.NewMissingFieldError("story_url")
	}

	// 元フィードの解決は失敗しても共有を妨げない。未解決はフィードID 0。
	var feedID int64
	feed, err := s.resolver.GetOrCreate(ctx, input.URL)
	if err != nil {
		slog.WarnContext(ctx, "feed resolution failed for shared story",
			"url", input.URL, "error", err)
	} else if feed != nil {
		feedID = feed.ID
	}

	existing, err := s.sharedRepo.FindByUserFeedGUID(ctx, userID, feedID, input.URL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.result(existing), nil
	}

	now := time.Now().UTC()
	story := &model.SharedStory{
		ID:          uuid.New().String(),
		UserID:      userID,
		FeedID:      feedID,
		GUID:        input.URL,
		Title:       storyTitle(input.Title),
		Content:     s.sanitizer.SanitizeWithBase(input.Content, input.URL),
		Author:      input.Author,
		Permalink:   input.URL,
		Comments:    input.Comments,
		HasComments: input.Comments != "",
		StoryDate:   now,
		SharedAt:    now,
	}

	if err := s.sharedRepo.Create(ctx, story); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// リトライとの競合。勝者のレコードを返す。
			winner, ferr := s.sharedRepo.FindByUserFeedGUID(ctx, userID, feedID, input.URL)
			if ferr != nil {
				return nil, ferr
			}
			if winner != nil {
				return s.result(winner), nil
			}
		}
		return nil, err
	}

	if err := s.socialRepo.FlagNeedsUnreadRecalc(ctx, userID); err != nil {
		return nil, fmt.Errorf("購読者の未読数再計算フラグの設定に失敗しました: %w", err)
	}
	if err := s.markReadByAuthor(ctx, userID, story); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifySubscribers(ctx, story); err != nil {
		slog.WarnContext(ctx, "subscriber notification failed",
			"story_id", story.ID, "error", err)
	}

	slog.InfoContext(ctx, "story shared",
		"user_id", userID, "story_id", story.ID, "feed_id", feedID)
	return s.result(story), nil
}

// markReadByAuthor は共有した本人にとって記事を既読にする。
// 自分自身のブログを購読している場合はその未読数再計算フラグも下ろす。
func (s *ShareService) markReadByAuthor(ctx context.Context, userID int64, story *model.SharedStory) error {
	ownSub, err := s.socialRepo.FindByUserAndSharer(ctx, userID, userID)
	if err != nil {
		return err
	}
	if ownSub != nil {
		if err := s.socialRepo.ClearNeedsUnreadRecalc(ctx, ownSub.ID); err != nil {
			return err
		}
	}
	if err := s.readStore.MarkRead(ctx, userID, story.FeedID, story.Hash()); err != nil {
		return fmt.Errorf("共有記事の既読化に失敗しました: %w", err)
	}
	return nil
}

func (s *ShareService) result(story *model.SharedStory) *ShareResult {
	return &ShareResult{
		ID:  story.ID,
		URL: fmt.Sprintf("%s/story/%s", s.baseURL, story.ID),
	}
}

// untitledStory は題名が指定されなかった記事の既定タイトル。
const untitledStory = "[Untitled]"

func storyTitle(title string) string {
	if title != "" {
		return title
	}
	return untitledStory
}
