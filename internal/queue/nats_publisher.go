// Package queue はバックグラウンドジョブとイベントのNATSへの発行を提供する。
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hitoshi/feedlink/internal/action"
	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/oauth"
)

var (
	_ oauth.JobQueue  = (*NatsPublisher)(nil)
	_ action.Notifier = (*NatsPublisher)(nil)
)

// NATSサブジェクト。コンシューマー側との暗黙の契約になる。
const (
	SubjectFriendSync  = "feedlink.jobs.friend-sync"
	SubjectStoryShared = "feedlink.social.story-shared"
)

// FriendSyncJob は友人同期ジョブのペイロード。
type FriendSyncJob struct {
	UserID     int64          `json:"user_id"`
	Provider   model.Provider `json:"provider"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// StorySharedEvent は記事共有イベントのペイロード。
// 購読者の未読数再計算とソーシャルフィード更新のトリガーになる。
type StorySharedEvent struct {
	SharedStoryID string    `json:"shared_story_id"`
	UserID        int64     `json:"user_id"`
	FeedID        int64     `json:"feed_id"`
	StoryHash     string    `json:"story_hash"`
	Title         string    `json:"title"`
	Permalink     string    `json:"permalink"`
	SharedAt      time.Time `json:"shared_at"`
}

// PublishConn はNATS接続のうち発行に使用する最小のインターフェース。
type PublishConn interface {
	Publish(subject string, data []byte) error
}

var _ PublishConn = (*nats.Conn)(nil)

// NatsPublisher はNATSを使用したジョブ・イベント発行の実装。
type NatsPublisher struct {
	nc PublishConn
}

// NewNatsPublisher はNatsPublisherを生成する。
func NewNatsPublisher(nc PublishConn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// EnqueueFriendSync は友人同期ジョブを投入する。
func (p *NatsPublisher) EnqueueFriendSync(ctx context.Context, userID int64, provider model.Provider) error {
	job := FriendSyncJob{
		UserID:     userID,
		Provider:   provider,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("ジョブのシリアライズに失敗しました: %w", err)
	}
	if err := p.nc.Publish(SubjectFriendSync, data); err != nil {
		return fmt.Errorf("ジョブの発行に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "friend sync job enqueued",
		"subject", SubjectFriendSync,
		"user_id", userID,
		"provider", provider,
	)
	return nil
}

// NotifySubscribers は記事共有イベントを発行する。
func (p *NatsPublisher) NotifySubscribers(ctx context.Context, story *model.SharedStory) error {
	event := StorySharedEvent{
		SharedStoryID: story.ID,
		UserID:        story.UserID,
		FeedID:        story.FeedID,
		StoryHash:     story.Hash(),
		Title:         story.Title,
		Permalink:     story.Permalink,
		SharedAt:      story.SharedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗しました: %w", err)
	}
	if err := p.nc.Publish(SubjectStoryShared, data); err != nil {
		return fmt.Errorf("イベントの発行に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "story shared event published",
		"subject", SubjectStoryShared,
		"user_id", story.UserID,
		"story_hash", event.StoryHash,
	)
	return nil
}
