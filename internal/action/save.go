package action

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/security"
)

// SaveInput は保存アクションの入力。Tagsはカンマ区切り。
type SaveInput struct {
	URL     string
	Title   string
	Content string
	Author  string
	Tags    string
}

// SaveResult は保存アクションの結果。
// 重複保存の場合はIDとURLが空（外部プラットフォームにはnullとして返る）。
type SaveResult struct {
	ID  string
	URL string
}

// SaveService は記事の保存（スター）アクションを処理する。
type SaveService struct {
	resolver    FeedResolver
	starredRepo repository.StarredStoryRepository
	sanitizer   security.ContentSanitizerService
}

// NewSaveService はSaveServiceを生成する。
func NewSaveService(
	resolver FeedResolver,
	starredRepo repository.StarredStoryRepository,
	sanitizer security.ContentSanitizerService,
) *SaveService {
	return &SaveService{
		resolver:    resolver,
		starredRepo: starredRepo,
		sanitizer:   sanitizer,
	}
}

// Save は記事を保存する。同一記事の重複保存はエラーにせず、
// 空の結果を返す（冪等）。
func (s *SaveService) Save(ctx context.Context, userID int64, input SaveInput) (*SaveResult, error) {
	if input.URL == "" {
		return nil, model.NewMissingFieldError("story_url")
	}

	// 保存ではフィードを新規登録しない。未登録ならフィードID 0のまま保存する。
	var feedID int64
	feed, err := s.resolver.Lookup(ctx, input.URL)
	if err != nil {
		return nil, err
	}
	if feed != nil {
		feedID = feed.ID
	}

	now := time.Now().UTC()
	story := &model.StarredStory{
		ID:        uuid.New().String(),
		UserID:    userID,
		FeedID:    feedID,
		GUID:      input.URL,
		Title:     storyTitle(input.Title),
		Content:   s.sanitizer.SanitizeWithBase(input.Content, input.URL),
		Author:    input.Author,
		Permalink: input.URL,
		UserTags:  splitTags(input.Tags),
		StoryDate: now,
		StarredAt: now,
	}

	if err := s.starredRepo.Create(ctx, story); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			slog.InfoContext(ctx, "story already saved",
				"user_id", userID, "url", input.URL)
			return &SaveResult{}, nil
		}
		return nil, err
	}

	if err := s.starredRepo.RecountTags(ctx, userID); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "story saved",
		"user_id", userID, "story_id", story.ID, "tags", story.UserTags)
	return &SaveResult{ID: story.ID, URL: story.Permalink}, nil
}

// splitTags はカンマ区切りのタグ指定を正規化する。空要素は捨てる。
func splitTags(tags string) []string {
	var result []string
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			result = append(result, tag)
		}
	}
	return result
}
