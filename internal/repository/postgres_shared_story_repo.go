package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresSharedStoryRepo はPostgreSQLを使用した共有記事リポジトリ。
type PostgresSharedStoryRepo struct {
	db *sql.DB
}

// NewPostgresSharedStoryRepo はPostgresSharedStoryRepoを生成する。
func NewPostgresSharedStoryRepo(db *sql.DB) *PostgresSharedStoryRepo {
	return &PostgresSharedStoryRepo{db: db}
}

const sharedStoryColumns = `id, user_id, story_feed_id, story_guid, title, content, author,
	permalink, comments, has_comments, story_date, shared_at, created_at`

// scanSharedStory は1行分のSharedStoryを読み取る。
func scanSharedStory(scan func(dest ...any) error) (*model.SharedStory, error) {
	story := &model.SharedStory{}
	var content, author, comments sql.NullString

	err := scan(
		&story.ID, &story.UserID, &story.FeedID, &story.GUID,
		&story.Title, &content, &author, &story.Permalink,
		&comments, &story.HasComments, &story.StoryDate, &story.SharedAt, &story.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	story.Content = content.String
	story.Author = author.String
	story.Comments = comments.String
	return story, nil
}

// FindByUserFeedGUID は(user_id, story_feed_id, story_guid)で共有記事を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresSharedStoryRepo) FindByUserFeedGUID(ctx context.Context, userID, feedID int64, guid string) (*model.SharedStory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sharedStoryColumns+` FROM shared_stories
		 WHERE user_id = $1 AND story_feed_id = $2 AND story_guid = $3`,
		userID, feedID, guid,
	)

	story, err := scanSharedStory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("共有記事の検索に失敗しました: %w", err)
	}

	return story, nil
}

// Create は共有記事を作成する。一意制約違反の場合はErrDuplicateを返す。
func (r *PostgresSharedStoryRepo) Create(ctx context.Context, story *model.SharedStory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shared_stories
		   (id, user_id, story_feed_id, story_guid, title, content, author,
		    permalink, comments, has_comments, story_date, shared_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		story.ID, story.UserID, story.FeedID, story.GUID,
		story.Title, story.Content, story.Author, story.Permalink,
		story.Comments, story.HasComments, story.StoryDate, story.SharedAt, story.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("共有記事の保存に失敗しました: %w", err)
	}
	return nil
}

// ListBySharers は指定シェアラー群の共有記事を共有日時の新しい順に取得する。
// 件数はlimitでデータ取得層において打ち切られる。
func (r *PostgresSharedStoryRepo) ListBySharers(ctx context.Context, sharerIDs []int64, limit int) ([]*model.SharedStory, error) {
	if len(sharerIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sharedStoryColumns+` FROM shared_stories
		 WHERE user_id = ANY($1)
		 ORDER BY shared_at DESC
		 LIMIT $2`,
		pq.Array(sharerIDs), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("共有記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stories []*model.SharedStory
	for rows.Next() {
		story, err := scanSharedStory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("共有記事の読み取りに失敗しました: %w", err)
		}
		stories = append(stories, story)
	}

	return stories, rows.Err()
}

// compile-time interface check
var _ SharedStoryRepository = (*PostgresSharedStoryRepo)(nil)
