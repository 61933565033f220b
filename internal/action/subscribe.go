package action

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/trigger"
)

// SubscribeInput は購読追加アクションの入力。
type SubscribeInput struct {
	URL    string
	Folder string // "Top Level"はトップレベルフォルダを指す

	// Bookmarklet は軽量モード。外部プラットフォーム経由の追加では常にtrueで、
	// 購読を即座にアクティブにする。
	Bookmarklet bool
}

// SubscribeResult は購読追加アクションの結果。
type SubscribeResult struct {
	FeedID      int64
	FeedAddress string
}

// SubscribeService はフィード購読の追加アクションを処理する。
type SubscribeService struct {
	resolver   FeedResolver
	subRepo    repository.SubscriptionRepository
	folderRepo repository.FolderRepository
}

// NewSubscribeService はSubscribeServiceを生成する。
func NewSubscribeService(
	resolver FeedResolver,
	subRepo repository.SubscriptionRepository,
	folderRepo repository.FolderRepository,
) *SubscribeService {
	return &SubscribeService{
		resolver:   resolver,
		subRepo:    subRepo,
		folderRepo: folderRepo,
	}
}

// Subscribe はフィードを購読する。既に購読済みの場合は既存の購読を返す（冪等）。
func (s *SubscribeService) Subscribe(ctx context.Context, userID int64, input SubscribeInput) (*SubscribeResult, error) {
	if input.URL == "" {
		return nil, model.NewMissingFieldError("url")
	}

	// フィードの解決に失敗しても購読アクション自体は成功として扱い、
	// 入力URLをそのまま返す。外部プラットフォーム側のリトライを打ち切るため。
	feed, err := s.resolver.GetOrCreate(ctx, input.URL)
	if err != nil {
		slog.WarnContext(ctx, "feed resolution failed for new subscription",
			"url", input.URL, "error", err)
		return &SubscribeResult{FeedAddress: input.URL}, nil
	}
	if feed == nil {
		return &SubscribeResult{FeedAddress: input.URL}, nil
	}

	existing, err := s.subRepo.FindByUserAndFeed(ctx, userID, feed.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &SubscribeResult{FeedID: feed.ID, FeedAddress: feed.FeedURL}, nil
	}

	sub := &model.Subscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		FeedID:    feed.ID,
		Active:    input.Bookmarklet,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	folder := input.Folder
	if folder == trigger.TopLevelFolder {
		folder = model.RootFolderTitle
	}
	if err := s.folderRepo.AddFeed(ctx, userID, folder, feed.ID); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "subscription added",
		"user_id", userID, "feed_id", feed.ID, "folder", folder)
	return &SubscribeResult{FeedID: feed.ID, FeedAddress: feed.FeedURL}, nil
}
