package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresStarredStoryRepo はPostgreSQLを使用した保存記事リポジトリ。
type PostgresStarredStoryRepo struct {
	db *sql.DB
}

// NewPostgresStarredStoryRepo はPostgresStarredStoryRepoを生成する。
func NewPostgresStarredStoryRepo(db *sql.DB) *PostgresStarredStoryRepo {
	return &PostgresStarredStoryRepo{db: db}
}

// Create は保存記事を作成する。一意制約違反（同一URLの再保存）の場合はErrDuplicateを返す。
func (r *PostgresStarredStoryRepo) Create(ctx context.Context, story *model.StarredStory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO starred_stories
		   (id, user_id, story_feed_id, story_guid, title, content, author,
		    permalink, user_tags, story_date, starred_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		story.ID, story.UserID, story.FeedID, story.GUID,
		story.Title, story.Content, story.Author, story.Permalink,
		pq.Array(story.UserTags), story.StoryDate, story.StarredAt, story.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("保存記事の保存に失敗しました: %w", err)
	}
	return nil
}

// ListByUserAndTag はユーザーの保存記事をタグ含有一致で検索する。
// tagが空文字列の場合は全件が対象。保存日時の新しい順に最大limit件。
func (r *PostgresStarredStoryRepo) ListByUserAndTag(ctx context.Context, userID int64, tag string, limit int) ([]*model.StarredStory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, story_feed_id, story_guid, title, content, author,
		        permalink, user_tags, story_date, starred_at, created_at
		 FROM starred_stories
		 WHERE user_id = $1 AND ($2 = '' OR $2 = ANY(user_tags))
		 ORDER BY starred_at DESC
		 LIMIT $3`,
		userID, tag, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("保存記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stories []*model.StarredStory
	for rows.Next() {
		story := &model.StarredStory{}
		var content, author sql.NullString
		var tags pq.StringArray
		if err := rows.Scan(
			&story.ID, &story.UserID, &story.FeedID, &story.GUID,
			&story.Title, &content, &author, &story.Permalink,
			&tags, &story.StoryDate, &story.StarredAt, &story.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("保存記事の読み取りに失敗しました: %w", err)
		}
		story.Content = content.String
		story.Author = author.String
		story.UserTags = tags
		stories = append(stories, story)
	}

	return stories, rows.Err()
}

// CountTags はユーザーのタグ別保存記事数を返す。
func (r *PostgresStarredStoryRepo) CountTags(ctx context.Context, userID int64) ([]model.TagCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tag, count FROM starred_story_counts WHERE user_id = $1 ORDER BY tag`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ集計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var counts []model.TagCount
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("タグ集計の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, tc)
	}

	return counts, rows.Err()
}

// RecountTags はユーザーのタグ別集計インデックスを再構築する。
// 削除と再集計を同一トランザクションで行う。
func (r *PostgresStarredStoryRepo) RecountTags(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM starred_story_counts WHERE user_id = $1`,
		userID,
	); err != nil {
		return fmt.Errorf("タグ集計の削除に失敗しました: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO starred_story_counts (user_id, tag, count)
		 SELECT user_id, t.tag, COUNT(*)
		 FROM starred_stories, unnest(user_tags) AS t(tag)
		 WHERE user_id = $1 AND t.tag <> ''
		 GROUP BY user_id, t.tag`,
		userID,
	); err != nil {
		return fmt.Errorf("タグ集計の再構築に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("タグ集計のコミットに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StarredStoryRepository = (*PostgresStarredStoryRepo)(nil)
