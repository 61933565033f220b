package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresFeedRepo はPostgreSQLを使用したフィードリポジトリ。
type PostgresFeedRepo struct {
	db *sql.DB
}

// NewPostgresFeedRepo はPostgresFeedRepoを生成する。
func NewPostgresFeedRepo(db *sql.DB) *PostgresFeedRepo {
	return &PostgresFeedRepo{db: db}
}

// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByID(ctx context.Context, id int64) (*model.Feed, error) {
	feed := &model.Feed{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, site_url, feed_url, created_at FROM feeds WHERE id = $1`,
		id,
	).Scan(&feed.ID, &feed.Title, &feed.SiteURL, &feed.FeedURL, &feed.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	return feed, nil
}

// FindByFeedURL はフィードURLでフィードを検索する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByFeedURL(ctx context.Context, feedURL string) (*model.Feed, error) {
	feed := &model.Feed{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, site_url, feed_url, created_at FROM feeds WHERE feed_url = $1`,
		feedURL,
	).Scan(&feed.ID, &feed.Title, &feed.SiteURL, &feed.FeedURL, &feed.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードURLによる検索に失敗しました: %w", err)
	}

	return feed, nil
}

// ListByIDs は指定IDのフィードをまとめて取得する。
func (r *PostgresFeedRepo) ListByIDs(ctx context.Context, ids []int64) (map[int64]*model.Feed, error) {
	feeds := make(map[int64]*model.Feed, len(ids))
	if len(ids) == 0 {
		return feeds, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, site_url, feed_url, created_at FROM feeds WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("フィード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		feed := &model.Feed{}
		if err := rows.Scan(&feed.ID, &feed.Title, &feed.SiteURL, &feed.FeedURL, &feed.CreatedAt); err != nil {
			return nil, fmt.Errorf("フィードの読み取りに失敗しました: %w", err)
		}
		feeds[feed.ID] = feed
	}

	return feeds, rows.Err()
}

// Create はフィードを作成し、採番されたIDをfeed.IDに設定する。
func (r *PostgresFeedRepo) Create(ctx context.Context, feed *model.Feed) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO feeds (title, site_url, feed_url, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		feed.Title, feed.SiteURL, feed.FeedURL, feed.CreatedAt,
	).Scan(&feed.ID)
	if err != nil {
		return fmt.Errorf("フィードの保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FeedRepository = (*PostgresFeedRepo)(nil)
