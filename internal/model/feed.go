package model

import "time"

// Feed は外部コンテンツソース（RSS/Atomフィード）を表す。
// 取得・パースのパイプラインは外部コラボレーターが所有し、
// 本サービスではget_or_create時の最小限のメタデータのみを扱う。
type Feed struct {
	ID        int64
	Title     string
	SiteURL   string
	FeedURL   string
	CreatedAt time.Time
}

// Subscription はユーザーとフィードの購読関係を表す。
type Subscription struct {
	ID        string
	UserID    int64
	FeedID    int64
	Active    bool
	Trained   bool // 分類器トレーニング済みかどうか（スコアリング対象）
	CreatedAt time.Time
}

// SocialSubscription はユーザーから共有ユーザー（シェアラー）への購読関係を表す。
type SocialSubscription struct {
	ID                 string
	UserID             int64 // 購読する側
	SubscriptionUserID int64 // 購読される側（シェアラー）
	NeedsUnreadRecalc  bool
	CreatedAt          time.Time
}

// SharerInfo はシェアラー一覧表示用の結合結果。
type SharerInfo struct {
	UserID           int64
	Username         string
	SharedStoryCount int
}
