// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// アカウントの作成・削除は本サービスの外側で行われ、ここでは読み取り専用。
type User struct {
	ID        int64
	Username  string
	Email     string // 未設定の場合は空文字列
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
