package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresStoryRepo はPostgreSQLを使用した記事リポジトリ。
// 記事の取り込み・更新はフィード取得パイプラインが行い、ここでは読み取りのみ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

// ListByFeeds は指定フィード群の記事を公開日時の新しい順に取得する。
func (r *PostgresStoryRepo) ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*model.Story, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, feed_id, guid, title, content, author, permalink, tags, published_at, created_at
		 FROM stories
		 WHERE feed_id = ANY($1)
		 ORDER BY published_at DESC
		 LIMIT $2`,
		pq.Array(feedIDs), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stories []*model.Story
	for rows.Next() {
		story := &model.Story{}
		var content, author sql.NullString
		var tags pq.StringArray
		if err := rows.Scan(
			&story.ID, &story.FeedID, &story.GUID, &story.Title,
			&content, &author, &story.Permalink, &tags, &story.PublishedAt, &story.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("記事の読み取りに失敗しました: %w", err)
		}
		story.Content = content.String
		story.Author = author.String
		story.Tags = tags
		stories = append(stories, story)
	}

	return stories, rows.Err()
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
