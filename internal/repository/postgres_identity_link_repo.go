package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedlink/internal/model"
)

// PostgresIdentityLinkRepo はPostgreSQLを使用したIdentityLinkリポジトリ。
type PostgresIdentityLinkRepo struct {
	db *sql.DB
}

// NewPostgresIdentityLinkRepo はPostgresIdentityLinkRepoを生成する。
func NewPostgresIdentityLinkRepo(db *sql.DB) *PostgresIdentityLinkRepo {
	return &PostgresIdentityLinkRepo{db: db}
}

const identityLinkColumns = `id, user_id, provider, external_uid, access_token, access_secret, syncing, created_at, updated_at`

// scanIdentityLink は1行分のIdentityLinkを読み取る。
func scanIdentityLink(row *sql.Row) (*model.IdentityLink, error) {
	link := &model.IdentityLink{}
	var secret sql.NullString

	err := row.Scan(
		&link.ID, &link.UserID, &link.Provider, &link.ExternalUID,
		&link.Credential.Token, &secret, &link.Syncing,
		&link.CreatedAt, &link.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	link.Credential.Secret = secret.String
	return link, nil
}

// FindByUser は(user_id, provider)でIdentityLinkを検索する。見つからない場合はnilを返す。
func (r *PostgresIdentityLinkRepo) FindByUser(ctx context.Context, userID int64, provider model.Provider) (*model.IdentityLink, error) {
	link, err := scanIdentityLink(r.db.QueryRowContext(ctx,
		`SELECT `+identityLinkColumns+` FROM identity_links
		 WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	))
	if err != nil {
		return nil, fmt.Errorf("IdentityLinkの検索に失敗しました: %w", err)
	}
	return link, nil
}

// FindByExternalUID は(provider, external_uid)でIdentityLinkを検索する。見つからない場合はnilを返す。
func (r *PostgresIdentityLinkRepo) FindByExternalUID(ctx context.Context, provider model.Provider, uid string) (*model.IdentityLink, error) {
	link, err := scanIdentityLink(r.db.QueryRowContext(ctx,
		`SELECT `+identityLinkColumns+` FROM identity_links
		 WHERE provider = $1 AND external_uid = $2`,
		provider, uid,
	))
	if err != nil {
		return nil, fmt.Errorf("external_uidによるIdentityLinkの検索に失敗しました: %w", err)
	}
	return link, nil
}

// Upsert は(user_id, provider)をキーにIdentityLinkを作成または更新する。
func (r *PostgresIdentityLinkRepo) Upsert(ctx context.Context, link *model.IdentityLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identity_links
		   (id, user_id, provider, external_uid, access_token, access_secret, syncing, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, provider) DO UPDATE SET
		   external_uid = EXCLUDED.external_uid,
		   access_token = EXCLUDED.access_token,
		   access_secret = EXCLUDED.access_secret,
		   syncing = EXCLUDED.syncing,
		   updated_at = EXCLUDED.updated_at`,
		link.ID, link.UserID, link.Provider, link.ExternalUID,
		link.Credential.Token, link.Credential.Secret, link.Syncing,
		link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("IdentityLinkの保存に失敗しました: %w", err)
	}
	return nil
}

// Delete は(user_id, provider)のIdentityLinkを削除する。
func (r *PostgresIdentityLinkRepo) Delete(ctx context.Context, userID int64, provider model.Provider) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM identity_links WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("IdentityLinkの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのIdentityLinkを削除する。
func (r *PostgresIdentityLinkRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM identity_links WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("IdentityLinkの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ IdentityLinkRepository = (*PostgresIdentityLinkRepo)(nil)
