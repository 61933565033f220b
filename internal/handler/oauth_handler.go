package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedlink/internal/metrics"
	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/oauth"
)

// ConnectServiceInterface はOAuthハンドラーが必要とするサービスインターフェース。
type ConnectServiceInterface interface {
	// Connect は連携フローの1ステップを処理する。
	Connect(ctx context.Context, userID int64, provider model.Provider, params oauth.CallbackParams) (*oauth.ConnectResult, error)
	// Disconnect はプロバイダーとの連携を解除する。
	Disconnect(ctx context.Context, userID int64, provider model.Provider) error
}

// OAuthHandler は外部プロバイダー連携のHTTPハンドラー。
type OAuthHandler struct {
	service ConnectServiceInterface
	metrics metrics.MetricsCollector
}

// NewOAuthHandler はOAuthHandlerを生成する。
func NewOAuthHandler(service ConnectServiceInterface, collector metrics.MetricsCollector) *OAuthHandler {
	return &OAuthHandler{
		service: service,
		metrics: collector,
	}
}

// Connect は連携フローのエントリポイント兼コールバック。
// GET /oauth/{provider}/connect
//
// レスポンスは3形態:
//   - {"next": <認可URL>} プロバイダーへのリダイレクトが必要
//   - {}                  連携完了
//   - {"error": <メッセージ>} ユーザー向けエラー（拒否・通信失敗・競合）
func (h *OAuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	provider, err := model.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidProviderError(chi.URLParam(r, "provider")))
		return
	}

	h.metrics.RecordConnectAttempt(string(provider))

	query := r.URL.Query()
	params := oauth.CallbackParams{
		Code:          query.Get("code"),
		Denied:        query.Get("denied"),
		OAuthToken:    query.Get("oauth_token"),
		OAuthVerifier: query.Get("oauth_verifier"),
	}

	result, err := h.service.Connect(r.Context(), userID, provider, params)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			// 連携フローのユーザー向けエラーはステータス200の
			// {"error": ...}として返す。呼び出し元の画面がそのまま表示する。
			h.metrics.RecordConnectFailure(string(provider), apiErr.Code)
			writeJSONResponse(w, http.StatusOK, map[string]string{"error": apiErr.Message})
			return
		}
		slog.Error("connect flow failed",
			slog.String("provider", string(provider)),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordConnectFailure(string(provider), "internal")
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "An internal error occurred. Try again later.",
			Category: "system",
		})
		return
	}

	if result.NextURL != "" {
		writeJSONResponse(w, http.StatusOK, map[string]string{"next": result.NextURL})
		return
	}

	h.metrics.RecordConnectSuccess(string(provider))
	writeJSONResponse(w, http.StatusOK, map[string]string{})
}

// Disconnect はプロバイダーとの連携を解除する。
// POST /oauth/{provider}/disconnect
//
// 連携が存在しない場合は404を返す。呼び出し側の誤用を示すため握りつぶさない。
func (h *OAuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	provider, err := model.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidProviderError(chi.URLParam(r, "provider")))
		return
	}

	if err := h.service.Disconnect(r.Context(), userID, provider); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{})
}
