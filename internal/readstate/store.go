// Package readstate はストーリーの既読状態を管理する。
// 既読集合はRedisのSetとして保持され、一定期間後に自動で失効する。
package readstate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// readStateTTL は既読集合の保持期間。期限を過ぎた既読情報は失われ、
// 該当ストーリーは再び未読として扱われる。
const readStateTTL = 30 * 24 * time.Hour

// Store は既読状態の読み書きを提供するインターフェース。
type Store interface {
	MarkRead(ctx context.Context, userID, feedID int64, storyHash string) error
	IsRead(ctx context.Context, userID, feedID int64, storyHash string) (bool, error)
	FilterRead(ctx context.Context, userID, feedID int64, storyHashes []string) (map[string]bool, error)
}

// RedisStore はRedisを使用したStoreの実装。
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// readKey は(ユーザー, フィード)ごとの既読集合のキーを返す。
func readKey(userID, feedID int64) string {
	return fmt.Sprintf("read:%d:%d", userID, feedID)
}

// MarkRead はストーリーを既読として記録する。
func (s *RedisStore) MarkRead(ctx context.Context, userID, feedID int64, storyHash string) error {
	key := readKey(userID, feedID)

	if err := s.client.SAdd(ctx, key, storyHash).Err(); err != nil {
		return fmt.Errorf("既読状態の記録に失敗しました: %w", err)
	}
	// 既読のたびにTTLを更新する。アクティブな購読の既読集合は失効しない。
	if err := s.client.Expire(ctx, key, readStateTTL).Err(); err != nil {
		return fmt.Errorf("既読集合のTTL設定に失敗しました: %w", err)
	}
	return nil
}

// IsRead はストーリーが既読かどうかを返す。
func (s *RedisStore) IsRead(ctx context.Context, userID, feedID int64, storyHash string) (bool, error) {
	read, err := s.client.SIsMember(ctx, readKey(userID, feedID), storyHash).Result()
	if err != nil {
		return false, fmt.Errorf("既読状態の取得に失敗しました: %w", err)
	}
	return read, nil
}

// FilterRead は複数ストーリーの既読状態を一括で取得する。
// 戻り値のマップはstoryHashesの各要素をキーに持つ。
func (s *RedisStore) FilterRead(ctx context.Context, userID, feedID int64, storyHashes []string) (map[string]bool, error) {
	result := make(map[string]bool, len(storyHashes))
	if len(storyHashes) == 0 {
		return result, nil
	}

	members := make([]interface{}, len(storyHashes))
	for i, h := range storyHashes {
		members[i] = h
	}

	flags, err := s.client.SMIsMember(ctx, readKey(userID, feedID), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("既読状態の一括取得に失敗しました: %w", err)
	}
	for i, h := range storyHashes {
		result[h] = flags[i]
	}
	return result, nil
}
