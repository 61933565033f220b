package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
)

// ConflictResolver は外部アカウントと既存連携の競合を解決する。
// 同一の外部アカウントを複数のローカルユーザーに紐付けることはできない。
type ConflictResolver struct {
	userRepo repository.UserRepository
	linkRepo repository.IdentityLinkRepository
}

// NewConflictResolver はConflictResolverを生成する。
func NewConflictResolver(userRepo repository.UserRepository, linkRepo repository.IdentityLinkRepository) *ConflictResolver {
	return &ConflictResolver{
		userRepo: userRepo,
		linkRepo: linkRepo,
	}
}

// Resolve は外部アカウント(provider, uid)をuserIDに紐付けられるかを判定する。
//
//   - 既存の連携がない、または自分自身の連携 → nil（紐付け可）
//   - 既存連携の所有者ユーザーが削除済み → 孤児リンクを削除して紐付け可
//   - 既存連携の所有者が別の有効なユーザー → CredentialInUseエラー
//
// 判定と紐付けの間に別リクエストが同じ外部アカウントを取り込む競合は
// DBの一意制約が最終的に防ぐ。その場合の勝者はDB到達順となる。
func (r *ConflictResolver) Resolve(ctx context.Context, userID int64, provider model.Provider, uid string) error {
	existing, err := r.linkRepo.FindByExternalUID(ctx, provider, uid)
	if err != nil {
		return fmt.Errorf("failed to find existing link: %w", err)
	}
	if existing == nil || existing.UserID == userID {
		return nil
	}

	owner, err := r.userRepo.FindByID(ctx, existing.UserID)
	if err != nil {
		return fmt.Errorf("failed to find link owner: %w", err)
	}

	if owner == nil {
		// 所有者が消えた孤児リンクは自己修復として削除する
		if err := r.linkRepo.DeleteByID(ctx, existing.ID); err != nil {
			return fmt.Errorf("failed to delete orphaned link: %w", err)
		}
		slog.Info("orphaned identity link removed",
			slog.String("link_id", existing.ID),
			slog.String("provider", string(provider)),
			slog.Int64("missing_owner", existing.UserID),
		)
		return nil
	}

	return model.NewCredentialInUseError(provider, owner.Username, owner.Email)
}
