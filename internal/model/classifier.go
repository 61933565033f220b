package model

// ClassifierCategory は分類器ルールのカテゴリを表す。
type ClassifierCategory string

const (
	// ClassifierTitle は記事タイトルの部分一致ルール。
	ClassifierTitle ClassifierCategory = "title"
	// ClassifierAuthor は著者名の完全一致ルール。
	ClassifierAuthor ClassifierCategory = "author"
	// ClassifierTag は記事タグの含有ルール。
	ClassifierTag ClassifierCategory = "tag"
	// ClassifierFeed はフィード単位のルール。
	ClassifierFeed ClassifierCategory = "feed"
)

// ClassifierRule はユーザーが登録したスコアリングルールを表す。
// (user, feed)スコープまたは(user, 共有ユーザー)スコープのいずれかを持つ。
// ルールの学習・管理は外部コラボレーターが所有し、ここでは読み取り専用。
type ClassifierRule struct {
	ID           string
	UserID       int64
	Category     ClassifierCategory
	FeedID       int64 // フィードスコープの場合のみ非ゼロ
	SocialUserID int64 // 共有ユーザースコープの場合のみ非ゼロ
	Target       string
	Score        int // +1（好み）または -1（非表示）
}
