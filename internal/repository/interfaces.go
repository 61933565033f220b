// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/feedlink/internal/model"
)

// ErrDuplicate は一意制約違反を表すセンチネルエラー。
// 冪等なアクションハンドラーが「既に存在する」ことを検知するために使用する。
var ErrDuplicate = errors.New("repository: duplicate record")

// UserRepository はユーザーデータの読み取りインターフェース。
// アカウントのライフサイクルは外部コラボレーターが所有する。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// UsernamesByIDs は指定IDのユーザー名をまとめて取得する。
	UsernamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

// IdentityLinkRepository は外部プロバイダー紐付けの永続化インターフェース。
// 全操作はレコード単位でアトミック。(provider, external_uid)の一意性の事前検証は
// 呼び出し側（ConflictResolver）の責務。
type IdentityLinkRepository interface {
	// FindByUser は(user_id, provider)でIdentityLinkを検索する。見つからない場合はnilを返す。
	FindByUser(ctx context.Context, userID int64, provider model.Provider) (*model.IdentityLink, error)

	// FindByExternalUID は(provider, external_uid)でIdentityLinkを検索する。見つからない場合はnilを返す。
	FindByExternalUID(ctx context.Context, provider model.Provider, uid string) (*model.IdentityLink, error)

	// Upsert は(user_id, provider)をキーにIdentityLinkを作成または更新する。
	Upsert(ctx context.Context, link *model.IdentityLink) error

	// Delete は(user_id, provider)のIdentityLinkを削除する。
	Delete(ctx context.Context, userID int64, provider model.Provider) error

	// DeleteByID は指定IDのIdentityLinkを削除する。孤児リンクの自己修復に使用する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの読み取りインターフェース。
// セッションの発行はリーダーアプリ側が行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// FeedRepository はフィードメタデータの永続化インターフェース。
type FeedRepository interface {
	// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Feed, error)

	// FindByFeedURL はフィードURLでフィードを検索する。見つからない場合はnilを返す。
	FindByFeedURL(ctx context.Context, feedURL string) (*model.Feed, error)

	// ListByIDs は指定IDのフィードをまとめて取得する。
	ListByIDs(ctx context.Context, ids []int64) (map[int64]*model.Feed, error)

	// Create はフィードを作成し、採番されたIDをfeed.IDに設定する。
	Create(ctx context.Context, feed *model.Feed) error
}

// StoryRepository はフィード記事の読み取りインターフェース。
// 記事の取り込みは外部コラボレーターが所有する。
type StoryRepository interface {
	// ListByFeeds は指定フィード群の記事を公開日時の新しい順に取得する。
	ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*model.Story, error)
}

// SubscriptionRepository は購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// FindByUserAndFeed はユーザーIDとフィードIDで購読を検索する。見つからない場合はnilを返す。
	FindByUserAndFeed(ctx context.Context, userID, feedID int64) (*model.Subscription, error)

	// ListActiveByUser はユーザーのアクティブな購読一覧を返す。
	ListActiveByUser(ctx context.Context, userID int64) ([]*model.Subscription, error)

	// Create は購読を作成する。
	Create(ctx context.Context, sub *model.Subscription) error
}

// FolderRepository はユーザーのフォルダ階層の永続化インターフェース。
type FolderRepository interface {
	// FindByUser はユーザーのフォルダ階層を取得する。
	// レコードが存在しない場合は空のFoldersを返す。
	FindByUser(ctx context.Context, userID int64) (*model.Folders, error)

	// AddFeed は指定フォルダにフィードIDを追加する。
	// folderTitleがRootFolderTitleの場合はトップレベルに追加する。
	AddFeed(ctx context.Context, userID int64, folderTitle string, feedID int64) error
}

// SocialSubscriptionRepository は共有ユーザー購読の永続化インターフェース。
type SocialSubscriptionRepository interface {
	// FindByUserAndSharer は(購読者, シェアラー)で購読を検索する。見つからない場合はnilを返す。
	FindByUserAndSharer(ctx context.Context, userID, sharerID int64) (*model.SocialSubscription, error)

	// ListSharerIDsByUser はユーザーが購読している全シェアラーのIDを返す。
	ListSharerIDsByUser(ctx context.Context, userID int64) ([]int64, error)

	// ListSharersWithCounts はユーザーが購読しているシェアラーを共有記事数付きで返す。
	ListSharersWithCounts(ctx context.Context, userID int64) ([]model.SharerInfo, error)

	// FlagNeedsUnreadRecalc はシェアラーの全購読者に未読数再計算フラグを立てる。
	FlagNeedsUnreadRecalc(ctx context.Context, sharerID int64) error

	// ClearNeedsUnreadRecalc は指定購読の未読数再計算フラグを下ろす。
	ClearNeedsUnreadRecalc(ctx context.Context, id string) error
}

// SharedStoryRepository は共有記事の永続化インターフェース。
type SharedStoryRepository interface {
	// FindByUserFeedGUID は(user_id, story_feed_id, story_guid)で共有記事を検索する。
	// 見つからない場合はnilを返す。共有アクションの冪等性判定に使用する。
	FindByUserFeedGUID(ctx context.Context, userID, feedID int64, guid string) (*model.SharedStory, error)

	// Create は共有記事を作成する。一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, story *model.SharedStory) error

	// ListBySharers は指定シェアラー群の共有記事を共有日時の新しい順に取得する。
	ListBySharers(ctx context.Context, sharerIDs []int64, limit int) ([]*model.SharedStory, error)
}

// StarredStoryRepository は保存記事の永続化インターフェース。
type StarredStoryRepository interface {
	// Create は保存記事を作成する。一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, story *model.StarredStory) error

	// ListByUserAndTag はユーザーの保存記事をタグ含有一致で検索する。
	// tagが空文字列の場合は全件が対象。保存日時の新しい順に最大limit件。
	ListByUserAndTag(ctx context.Context, userID int64, tag string, limit int) ([]*model.StarredStory, error)

	// CountTags はユーザーのタグ別保存記事数を返す。
	CountTags(ctx context.Context, userID int64) ([]model.TagCount, error)

	// RecountTags はユーザーのタグ別集計インデックスを再構築する。
	RecountTags(ctx context.Context, userID int64) error
}

// ClassifierRepository は分類器ルールの読み取りインターフェース。
// ルールの学習は外部コラボレーターが所有する。
type ClassifierRepository interface {
	// ListByUserAndFeeds は指定フィードスコープのルールを全カテゴリ分取得する。
	ListByUserAndFeeds(ctx context.Context, userID int64, feedIDs []int64) ([]model.ClassifierRule, error)

	// ListByUserAndSharers は指定シェアラースコープのルールを全カテゴリ分取得する。
	ListByUserAndSharers(ctx context.Context, userID int64, sharerIDs []int64) ([]model.ClassifierRule, error)
}
