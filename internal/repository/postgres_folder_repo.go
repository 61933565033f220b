package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresFolderRepo はPostgreSQLを使用したフォルダ階層リポジトリ。
// フォルダ階層は1ユーザー1レコードのJSONとして保持される。
type PostgresFolderRepo struct {
	db *sql.DB
}

// NewPostgresFolderRepo はPostgresFolderRepoを生成する。
func NewPostgresFolderRepo(db *sql.DB) *PostgresFolderRepo {
	return &PostgresFolderRepo{db: db}
}

// FindByUser はユーザーのフォルダ階層を取得する。
// レコードが存在しない場合は空のFoldersを返す。
func (r *PostgresFolderRepo) FindByUser(ctx context.Context, userID int64) (*model.Folders, error) {
	folders := &model.Folders{UserID: userID}
	var raw []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT folders FROM user_folders WHERE user_id = $1`,
		userID,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return folders, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フォルダ階層の取得に失敗しました: %w", err)
	}

	folders.Raw = json.RawMessage(raw)
	return folders, nil
}

// AddFeed は指定フォルダにフィードIDを追加する。
// folderTitleがRootFolderTitleの場合はトップレベル、それ以外は該当フォルダの末尾に追加する。
// 該当フォルダが存在しない場合はトップレベルに新しいフォルダとして作成する。
// 読み取り→書き換え→UPSERTの2段階で行う（フォルダ編集は同一ユーザーの操作のみのため競合は実質起きない）。
func (r *PostgresFolderRepo) AddFeed(ctx context.Context, userID int64, folderTitle string, feedID int64) error {
	folders, err := r.FindByUser(ctx, userID)
	if err != nil {
		return err
	}

	updated, err := insertFeedIntoFolders(folders.Raw, folderTitle, feedID)
	if err != nil {
		return fmt.Errorf("フォルダ階層の更新に失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_folders (user_id, folders)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET folders = EXCLUDED.folders`,
		userID, []byte(updated),
	)
	if err != nil {
		return fmt.Errorf("フォルダ階層の保存に失敗しました: %w", err)
	}
	return nil
}

// insertFeedIntoFolders はJSONフォルダ階層の指定フォルダにフィードIDを挿入して返す。
func insertFeedIntoFolders(raw json.RawMessage, folderTitle string, feedID int64) (json.RawMessage, error) {
	var root []any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &root); err != nil {
			return nil, err
		}
	}

	if folderTitle == model.RootFolderTitle {
		root = append(root, feedID)
	} else if !appendToFolder(root, folderTitle, feedID) {
		// 該当フォルダが無い場合はトップレベルに新規作成
		root = append(root, map[string]any{folderTitle: []any{feedID}})
	}

	return json.Marshal(root)
}

// appendToFolder は階層内のfolderTitleを探してフィードIDを追加する。
// 見つかった場合はtrueを返す。
func appendToFolder(items []any, folderTitle string, feedID int64) bool {
	for _, item := range items {
		folder, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for title, childRaw := range folder {
			children, ok := childRaw.([]any)
			if !ok {
				continue
			}
			if title == folderTitle {
				folder[title] = append(children, feedID)
				return true
			}
			if appendToFolder(children, folderTitle, feedID) {
				return true
			}
		}
	}
	return false
}

// compile-time interface check
var _ FolderRepository = (*PostgresFolderRepo)(nil)
