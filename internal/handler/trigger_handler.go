package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/feedlink/internal/metrics"
	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/trigger"
)

// トリガーフィールドのキー名。外部プラットフォームの契約で固定。
const (
	fieldFeedOrFolder = "feed_or_folder"
	fieldStoryTag     = "story_tag"
	fieldBlurblogUser = "blurblog_user"
)

// TriggerServiceInterface はトリガーハンドラーが必要とするサービスインターフェース。
type TriggerServiceInterface interface {
	UnreadStories(ctx context.Context, userID int64, req trigger.Request, focus bool) ([]trigger.UnreadItem, error)
	SavedStories(ctx context.Context, userID int64, req trigger.Request) ([]trigger.SavedItem, error)
	SharedStories(ctx context.Context, userID int64, req trigger.Request) ([]trigger.SharedItem, error)

	FeedFolderOptions(ctx context.Context, userID int64) ([]trigger.Option, error)
	SavedTagOptions(ctx context.Context, userID int64) ([]trigger.Option, error)
	SharerOptions(ctx context.Context, userID int64) ([]trigger.Option, error)
}

// TriggerHandler はトリガーAPIのHTTPハンドラー。
type TriggerHandler struct {
	service TriggerServiceInterface
	metrics metrics.MetricsCollector
}

// NewTriggerHandler はTriggerHandlerを生成する。
func NewTriggerHandler(service TriggerServiceInterface, collector metrics.MetricsCollector) *TriggerHandler {
	return &TriggerHandler{
		service: service,
		metrics: collector,
	}
}

// triggerRequestBody はトリガーリクエストのボディ。
type triggerRequestBody struct {
	After         int64             `json:"after"`
	Before        int64             `json:"before"`
	Limit         int               `json:"limit"`
	TriggerFields map[string]string `json:"triggerFields"`
}

// parseTriggerRequest はリクエストボディからトリガーパラメータを組み立てる。
// fieldKeyに対応するtriggerFieldsのキーが欠けている場合はMissingFieldエラーを返す。
func parseTriggerRequest(r *http.Request, fieldKey string) (trigger.Request, *model.APIError) {
	var body triggerRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return trigger.Request{}, model.NewMissingFieldError("triggerFields")
	}

	scope, ok := body.TriggerFields[fieldKey]
	if !ok {
		return trigger.Request{}, model.NewMissingFieldError(fieldKey)
	}

	return trigger.Request{
		Scope: scope,
		Window: trigger.Window{
			After:  body.After,
			Before: body.Before,
		},
		Limit: body.Limit,
	}, nil
}

// NewUnreadStory は未読記事トリガー。
// POST /ifttt/v1/triggers/new-unread-story
func (h *TriggerHandler) NewUnreadStory(w http.ResponseWriter, r *http.Request) {
	h.unreadStories(w, r, "new-unread-story", false)
}

// NewUnreadFocusStory はフォーカス記事（スコア1以上）トリガー。
// POST /ifttt/v1/triggers/new-unread-focus-story
func (h *TriggerHandler) NewUnreadFocusStory(w http.ResponseWriter, r *http.Request) {
	h.unreadStories(w, r, "new-unread-focus-story", true)
}

func (h *TriggerHandler) unreadStories(w http.ResponseWriter, r *http.Request, name string, focus bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	req, apiErr := parseTriggerRequest(r, fieldFeedOrFolder)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	items, err := h.service.UnreadStories(r.Context(), userID, req, focus)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entries := make([]trigger.UnreadEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, trigger.NewUnreadEntry(item))
	}

	h.metrics.RecordTrigger(name, len(entries))
	writeDataResponse(w, entries)
}

// NewSavedStory は保存記事トリガー。
// POST /ifttt/v1/triggers/new-saved-story
func (h *TriggerHandler) NewSavedStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	req, apiErr := parseTriggerRequest(r, fieldStoryTag)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	items, err := h.service.SavedStories(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entries := make([]trigger.SavedEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, trigger.NewSavedEntry(item))
	}

	h.metrics.RecordTrigger("new-saved-story", len(entries))
	writeDataResponse(w, entries)
}

// NewSharedStory は共有記事トリガー。
// POST /ifttt/v1/triggers/new-shared-story
func (h *TriggerHandler) NewSharedStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	req, apiErr := parseTriggerRequest(r, fieldBlurblogUser)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	items, err := h.service.SharedStories(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entries := make([]trigger.SharedEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, trigger.NewSharedEntry(item))
	}

	h.metrics.RecordTrigger("new-shared-story", len(entries))
	writeDataResponse(w, entries)
}

// FeedOrFolderOptions はfeed_or_folderフィールドの選択肢一覧。
// POST /ifttt/v1/triggers/{trigger}/fields/feed_or_folder/options
func (h *TriggerHandler) FeedOrFolderOptions(w http.ResponseWriter, r *http.Request) {
	h.fieldOptions(w, r, h.service.FeedFolderOptions)
}

// StoryTagOptions はstory_tagフィールドの選択肢一覧。
// POST /ifttt/v1/triggers/{trigger}/fields/story_tag/options
func (h *TriggerHandler) StoryTagOptions(w http.ResponseWriter, r *http.Request) {
	h.fieldOptions(w, r, h.service.SavedTagOptions)
}

// BlurblogUserOptions はblurblog_userフィールドの選択肢一覧。
// POST /ifttt/v1/triggers/{trigger}/fields/blurblog_user/options
func (h *TriggerHandler) BlurblogUserOptions(w http.ResponseWriter, r *http.Request) {
	h.fieldOptions(w, r, h.service.SharerOptions)
}

func (h *TriggerHandler) fieldOptions(w http.ResponseWriter, r *http.Request, list func(context.Context, int64) ([]trigger.Option, error)) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	options, err := list(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataResponse(w, options)
}
