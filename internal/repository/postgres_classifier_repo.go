package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresClassifierRepo はPostgreSQLを使用した分類器ルールリポジトリ。
// ルールの学習・更新は外部コラボレーターが行い、ここでは読み取りのみ。
type PostgresClassifierRepo struct {
	db *sql.DB
}

// NewPostgresClassifierRepo はPostgresClassifierRepoを生成する。
func NewPostgresClassifierRepo(db *sql.DB) *PostgresClassifierRepo {
	return &PostgresClassifierRepo{db: db}
}

// ListByUserAndFeeds は指定フィードスコープのルールを全カテゴリ分取得する。
func (r *PostgresClassifierRepo) ListByUserAndFeeds(ctx context.Context, userID int64, feedIDs []int64) ([]model.ClassifierRule, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}
	return r.listRules(ctx,
		`SELECT id, user_id, category, COALESCE(feed_id, 0), COALESCE(social_user_id, 0), target, score
		 FROM classifier_rules
		 WHERE user_id = $1 AND feed_id = ANY($2)`,
		userID, pq.Array(feedIDs),
	)
}

// ListByUserAndSharers は指定シェアラースコープのルールを全カテゴリ分取得する。
func (r *PostgresClassifierRepo) ListByUserAndSharers(ctx context.Context, userID int64, sharerIDs []int64) ([]model.ClassifierRule, error) {
	if len(sharerIDs) == 0 {
		return nil, nil
	}
	return r.listRules(ctx,
		`SELECT id, user_id, category, COALESCE(feed_id, 0), COALESCE(social_user_id, 0), target, score
		 FROM classifier_rules
		 WHERE user_id = $1 AND social_user_id = ANY($2)`,
		userID, pq.Array(sharerIDs),
	)
}

// listRules はルール検索クエリを実行して結果を読み取る。
func (r *PostgresClassifierRepo) listRules(ctx context.Context, query string, args ...any) ([]model.ClassifierRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("分類器ルールの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var rules []model.ClassifierRule
	for rows.Next() {
		var rule model.ClassifierRule
		if err := rows.Scan(
			&rule.ID, &rule.UserID, &rule.Category,
			&rule.FeedID, &rule.SocialUserID, &rule.Target, &rule.Score,
		); err != nil {
			return nil, fmt.Errorf("分類器ルールの読み取りに失敗しました: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// compile-time interface check
var _ ClassifierRepository = (*PostgresClassifierRepo)(nil)
