package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
)

// JobQueue は友人同期ジョブの投入インターフェース。
// 投入はベストエフォートで、失敗しても連携自体は成立する。
type JobQueue interface {
	// EnqueueFriendSync は連携完了後の友人リスト同期ジョブを投入する。
	EnqueueFriendSync(ctx context.Context, userID int64, provider model.Provider) error
}

// ConnectResult は連携フローの1ステップの結果を表す。
type ConnectResult struct {
	// NextURL が非空の場合、呼び出し側はユーザーをこのURLへリダイレクトさせる。
	// 空の場合は連携が完了している。
	NextURL string
}

// ConnectService は外部プロバイダーとのアカウント連携・切断を提供する。
type ConnectService struct {
	adapters map[model.Provider]ProviderAdapter
	linkRepo repository.IdentityLinkRepository
	conflict *ConflictResolver
	queue    JobQueue
}

// NewConnectService はConnectServiceを生成する。
func NewConnectService(
	adapters []ProviderAdapter,
	linkRepo repository.IdentityLinkRepository,
	conflict *ConflictResolver,
	queue JobQueue,
) *ConnectService {
	byProvider := make(map[model.Provider]ProviderAdapter, len(adapters))
	for _, adapter := range adapters {
		byProvider[adapter.Provider()] = adapter
	}
	return &ConnectService{
		adapters: byProvider,
		linkRepo: linkRepo,
		conflict: conflict,
		queue:    queue,
	}
}

// Connect は連携フローの1ステップを処理する。
//
//   - ユーザーが認可画面で拒否した場合はConnectDeniedエラー
//   - コールバックパラメータがない初回アクセスでは認可URLを返す
//   - コールバックでは資格情報への交換・競合解決・永続化を行い、
//     完了後に友人同期ジョブを投入する
//
// プロバイダーとの通信失敗はリトライ可能なProviderErrorに変換される。
// 詳細な原因はログにのみ残す。
func (s *ConnectService) Connect(ctx context.Context, userID int64, provider model.Provider, params CallbackParams) (*ConnectResult, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return nil, model.NewInvalidProviderError(string(provider))
	}

	if params.Denied != "" {
		return nil, model.NewConnectDeniedError()
	}

	if params.IsInitial() {
		authURL, err := adapter.BuildAuthURL(ctx)
		if err != nil {
			slog.Error("failed to build auth URL",
				slog.String("provider", string(provider)),
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewProviderError(provider)
		}
		return &ConnectResult{NextURL: authURL}, nil
	}

	cred, uid, err := adapter.Exchange(ctx, params)
	if err != nil {
		slog.Error("failed to exchange credentials",
			slog.String("provider", string(provider)),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProviderError(provider)
	}

	if uid == "" {
		uid, err = adapter.FetchProfileUID(ctx, cred)
		if err != nil {
			slog.Error("failed to fetch profile uid",
				slog.String("provider", string(provider)),
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewProviderError(provider)
		}
	}

	if err := s.conflict.Resolve(ctx, userID, provider, uid); err != nil {
		return nil, err
	}

	now := time.Now()
	link := &model.IdentityLink{
		ID:          uuid.New().String(),
		UserID:      userID,
		Provider:    provider,
		ExternalUID: uid,
		Credential:  cred,
		Syncing:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.linkRepo.Upsert(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to persist identity link: %w", err)
	}

	slog.Info("identity linked",
		slog.Int64("user_id", userID),
		slog.String("provider", string(provider)),
		slog.String("external_uid", uid),
	)

	// ジョブ投入の失敗で連携を巻き戻さない
	if err := s.queue.EnqueueFriendSync(ctx, userID, provider); err != nil {
		slog.Warn("failed to enqueue friend sync",
			slog.Int64("user_id", userID),
			slog.String("provider", string(provider)),
			slog.String("error", err.Error()),
		)
	}

	return &ConnectResult{}, nil
}

// Disconnect は連携を切断する。
// 連携が存在しない場合はLinkNotFoundエラーを返す（握りつぶさない）。
func (s *ConnectService) Disconnect(ctx context.Context, userID int64, provider model.Provider) error {
	if _, ok := s.adapters[provider]; !ok {
		return model.NewInvalidProviderError(string(provider))
	}

	link, err := s.linkRepo.FindByUser(ctx, userID, provider)
	if err != nil {
		return fmt.Errorf("failed to find identity link: %w", err)
	}
	if link == nil {
		return model.NewLinkNotFoundError(provider)
	}

	if err := s.linkRepo.Delete(ctx, userID, provider); err != nil {
		return fmt.Errorf("failed to delete identity link: %w", err)
	}

	slog.Info("identity disconnected",
		slog.Int64("user_id", userID),
		slog.String("provider", string(provider)),
	)
	return nil
}
