// Package feedresolver はフィードURLからフィードレコードへの解決を提供する。
package feedresolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/security"
)

// Resolver はフィードURLを既存または新規のフィードレコードに解決する。
//
// 共有アクションではURLが未知でもレコードを作らず参照のみ行い（lookup）、
// 購読アクションでは未知のURLを実際にフェッチ・パースして登録する
// （get-or-create）。
type Resolver struct {
	feedRepo     repository.FeedRepository
	ssrfGuard    security.SSRFGuardService
	fetchTimeout time.Duration

	// テスト用に差し替え可能なパーサーファクトリ
	newParser func() *gofeed.Parser
}

// NewResolver はResolverを生成する。
func NewResolver(feedRepo repository.FeedRepository, ssrfGuard security.SSRFGuardService, fetchTimeout time.Duration) *Resolver {
	return &Resolver{
		feedRepo:     feedRepo,
		ssrfGuard:    ssrfGuard,
		fetchTimeout: fetchTimeout,
		newParser:    gofeed.NewParser,
	}
}

// Lookup はフィードURLで既存フィードを検索する。見つからない場合はnilを返す。
// 外部との通信は行わない。
func (r *Resolver) Lookup(ctx context.Context, feedURL string) (*model.Feed, error) {
	feed, err := r.feedRepo.FindByFeedURL(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの検索に失敗しました: %w", err)
	}
	return feed, nil
}

// GetOrCreate はフィードURLを既存フィードに解決するか、フェッチして新規登録する。
// URLはユーザー入力由来のため、フェッチ前にSSRF検証を行い、
// 取得にはSSRF防止機能付きクライアントを使用する。
func (r *Resolver) GetOrCreate(ctx context.Context, feedURL string) (*model.Feed, error) {
	existing, err := r.Lookup(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := r.ssrfGuard.ValidateURL(feedURL); err != nil {
		return nil, fmt.Errorf("フィードURLの検証に失敗しました: %w", err)
	}

	parsed, err := r.fetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	title := parsed.Title
	if title == "" {
		title = feedURL
	}

	feed := &model.Feed{
		Title:     title,
		SiteURL:   parsed.Link,
		FeedURL:   feedURL,
		CreatedAt: time.Now(),
	}
	if err := r.feedRepo.Create(ctx, feed); err != nil {
		return nil, fmt.Errorf("フィードの登録に失敗しました: %w", err)
	}

	slog.Info("feed registered",
		slog.Int64("feed_id", feed.ID),
		slog.String("feed_url", feed.FeedURL),
		slog.String("title", feed.Title),
	)
	return feed, nil
}

// fetchAndParse はSSRF防止付きクライアントでフィードを取得・パースする。
func (r *Resolver) fetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	client := r.ssrfGuard.NewSafeClient(r.fetchTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "feedlink/1.0 (+https://feedlink.example.com)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	parser := r.newParser()
	parsedFeed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return parsedFeed, nil
}
