package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresSocialSubRepo はPostgreSQLを使用した共有ユーザー購読リポジトリ。
type PostgresSocialSubRepo struct {
	db *sql.DB
}

// NewPostgresSocialSubRepo はPostgresSocialSubRepoを生成する。
func NewPostgresSocialSubRepo(db *sql.DB) *PostgresSocialSubRepo {
	return &PostgresSocialSubRepo{db: db}
}

// FindByUserAndSharer は(購読者, シェアラー)で購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSocialSubRepo) FindByUserAndSharer(ctx context.Context, userID, sharerID int64) (*model.SocialSubscription, error) {
	sub := &model.SocialSubscription{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, subscription_user_id, needs_unread_recalc, created_at
		 FROM social_subscriptions
		 WHERE user_id = $1 AND subscription_user_id = $2`,
		userID, sharerID,
	).Scan(&sub.ID, &sub.UserID, &sub.SubscriptionUserID, &sub.NeedsUnreadRecalc, &sub.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("共有ユーザー購読の検索に失敗しました: %w", err)
	}

	return sub, nil
}

// ListSharerIDsByUser はユーザーが購読している全シェアラーのIDを返す。
func (r *PostgresSocialSubRepo) ListSharerIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subscription_user_id FROM social_subscriptions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("シェアラー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("シェアラーIDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListSharersWithCounts はユーザーが購読しているシェアラーを共有記事数付きで返す。
func (r *PostgresSocialSubRepo) ListSharersWithCounts(ctx context.Context, userID int64) ([]model.SharerInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ss.subscription_user_id, u.username, COUNT(sh.id)
		 FROM social_subscriptions ss
		 JOIN users u ON u.id = ss.subscription_user_id
		 LEFT JOIN shared_stories sh ON sh.user_id = ss.subscription_user_id
		 WHERE ss.user_id = $1
		 GROUP BY ss.subscription_user_id, u.username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("シェアラー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sharers []model.SharerInfo
	for rows.Next() {
		var info model.SharerInfo
		if err := rows.Scan(&info.UserID, &info.Username, &info.SharedStoryCount); err != nil {
			return nil, fmt.Errorf("シェアラー情報の読み取りに失敗しました: %w", err)
		}
		sharers = append(sharers, info)
	}

	return sharers, rows.Err()
}

// FlagNeedsUnreadRecalc はシェアラーの全購読者に未読数再計算フラグを立てる。
func (r *PostgresSocialSubRepo) FlagNeedsUnreadRecalc(ctx context.Context, sharerID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE social_subscriptions SET needs_unread_recalc = true
		 WHERE subscription_user_id = $1`,
		sharerID,
	)
	if err != nil {
		return fmt.Errorf("未読数再計算フラグの設定に失敗しました: %w", err)
	}
	return nil
}

// ClearNeedsUnreadRecalc は指定購読の未読数再計算フラグを下ろす。
func (r *PostgresSocialSubRepo) ClearNeedsUnreadRecalc(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE social_subscriptions SET needs_unread_recalc = false WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("未読数再計算フラグの解除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SocialSubscriptionRepository = (*PostgresSocialSubRepo)(nil)
