package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Story はフィードから取り込まれた記事を表す。
// 未読トリガーの候補となる。
type Story struct {
	ID          string
	FeedID      int64
	GUID        string
	Title       string
	Content     string // サニタイズ済みHTML
	Author      string
	Permalink   string
	Tags        []string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Hash は記事の安定したフィンガープリントを返す。
func (s *Story) Hash() string {
	return StoryHash(s.FeedID, s.GUID)
}

// SharedStory はユーザーが共有した記事を表す。
// (user_id, story_feed_id, story_guid)で一意。
type SharedStory struct {
	ID          string
	UserID      int64
	FeedID      int64 // 元フィードが解決できない場合は0
	GUID        string
	Title       string
	Content     string
	Author      string
	Permalink   string
	Comments    string
	HasComments bool
	StoryDate   time.Time
	SharedAt    time.Time
	CreatedAt   time.Time
}

// Hash は共有記事の安定したフィンガープリントを返す。
func (s *SharedStory) Hash() string {
	return StoryHash(s.FeedID, s.GUID)
}

// StarredStory はユーザーが保存（スター）した記事を表す。
// (user_id, story_guid)で一意。
type StarredStory struct {
	ID        string
	UserID    int64
	FeedID    int64 // 元フィードが解決できない場合は0
	GUID      string
	Title     string
	Content   string
	Author    string
	Permalink string
	UserTags  []string
	StoryDate time.Time
	StarredAt time.Time
	CreatedAt time.Time
}

// Hash は保存記事の安定したフィンガープリントを返す。
func (s *StarredStory) Hash() string {
	return StoryHash(s.FeedID, s.GUID)
}

// TagCount は保存記事のタグごとの件数を表す。
type TagCount struct {
	Tag   string
	Count int
}

// StoryHash はfeed_idとGUIDから安定した記事フィンガープリントを計算する。
// 同一記事は常に同一のハッシュを持つ（外部プラットフォームの重複排除に使用される）。
func StoryHash(feedID int64, guid string) string {
	sum := md5.Sum([]byte(guid))
	return fmt.Sprintf("%d:%s", feedID, hex.EncodeToString(sum[:])[:6])
}
