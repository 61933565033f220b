package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindByUserAndFeed はユーザーIDとフィードIDで購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByUserAndFeed(ctx context.Context, userID, feedID int64) (*model.Subscription, error) {
	sub := &model.Subscription{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, feed_id, active, trained, created_at
		 FROM subscriptions
		 WHERE user_id = $1 AND feed_id = $2`,
		userID, feedID,
	).Scan(&sub.ID, &sub.UserID, &sub.FeedID, &sub.Active, &sub.Trained, &sub.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の検索に失敗しました: %w", err)
	}

	return sub, nil
}

// ListActiveByUser はユーザーのアクティブな購読一覧を返す。
func (r *PostgresSubscriptionRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, feed_id, active, trained, created_at
		 FROM subscriptions
		 WHERE user_id = $1 AND active = true`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		sub := &model.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.FeedID, &sub.Active, &sub.Trained, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("購読の読み取りに失敗しました: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// Create は購読を作成する。一意制約違反の場合はErrDuplicateを返す。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, user_id, feed_id, active, trained, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.UserID, sub.FeedID, sub.Active, sub.Trained, sub.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("購読の保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
