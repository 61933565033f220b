package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
)

// StatusHandler はステータス・ユーザー情報のHTTPハンドラー。
type StatusHandler struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(userRepo repository.UserRepository) *StatusHandler {
	return &StatusHandler{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// Status は外部プラットフォームの疎通確認エンドポイント。認証不要。
// GET /ifttt/v1/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeDataResponse(w, map[string]string{
		"status": "OK",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

// UserInfo は認証済みユーザーの表示名とIDを返す。
// GET /ifttt/v1/user/info
func (h *StatusHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeDataResponse(w, map[string]any{
		"name": user.Username,
		"id":   user.ID,
	})
}

// Health は稼働確認エンドポイント。ロードバランサーのヘルスチェック用。
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
