package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/feedlink/internal/action"
	"github.com/hitoshi/feedlink/internal/metrics"
	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/model"
)

// ShareServiceInterface は共有アクションのサービスインターフェース。
type ShareServiceInterface interface {
	Share(ctx context.Context, userID int64, input action.ShareInput) (*action.ShareResult, error)
}

// SaveServiceInterface は保存アクションのサービスインターフェース。
type SaveServiceInterface interface {
	Save(ctx context.Context, userID int64, input action.SaveInput) (*action.SaveResult, error)
}

// SubscribeServiceInterface は購読追加アクションのサービスインターフェース。
type SubscribeServiceInterface interface {
	Subscribe(ctx context.Context, userID int64, input action.SubscribeInput) (*action.SubscribeResult, error)
}

// ActionHandler はアクションAPIのHTTPハンドラー。
// すべてのアクションは外部プラットフォームのリトライに対して冪等。
type ActionHandler struct {
	shareService     ShareServiceInterface
	saveService      SaveServiceInterface
	subscribeService SubscribeServiceInterface
	metrics          metrics.MetricsCollector
}

// NewActionHandler はActionHandlerを生成する。
func NewActionHandler(
	shareService ShareServiceInterface,
	saveService SaveServiceInterface,
	subscribeService SubscribeServiceInterface,
	collector metrics.MetricsCollector,
) *ActionHandler {
	return &ActionHandler{
		shareService:     shareService,
		saveService:      saveService,
		subscribeService: subscribeService,
		metrics:          collector,
	}
}

// actionRequestBody はアクションリクエストのボディ。
type actionRequestBody struct {
	ActionFields map[string]string `json:"actionFields"`
}

// actionEntry はアクションレスポンスの1件。作成できなかった場合はnullフィールド。
type actionEntry struct {
	ID  any `json:"id"`
	URL any `json:"url"`
}

// parseActionFields はリクエストボディからactionFieldsを取り出す。
// requiredに挙げたキーの欠落はMissingFieldエラーとする。
func parseActionFields(r *http.Request, required ...string) (map[string]string, *model.APIError) {
	var body actionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ActionFields == nil {
		return nil, model.NewMissingFieldError("actionFields")
	}

	for _, key := range required {
		if _, ok := body.ActionFields[key]; !ok {
			return nil, model.NewMissingFieldError(key)
		}
	}
	return body.ActionFields, nil
}

// ShareNewStory は記事を共有する。
// POST /ifttt/v1/actions/share-new-story
func (h *ActionHandler) ShareNewStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	fields, apiErr := parseActionFields(r, "story_url")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.shareService.Share(r.Context(), userID, action.ShareInput{
		URL:      fields["story_url"],
		Title:    fields["story_title"],
		Content:  fields["story_content"],
		Author:   fields["story_author"],
		Comments: fields["comments"],
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordAction("share-new-story", false)
	writeDataResponse(w, []actionEntry{{
		ID:  nullableString(result.ID),
		URL: nullableString(result.URL),
	}})
}

// SaveNewStory は記事を保存する。重複保存はnull id/urlの成功として返す。
// POST /ifttt/v1/actions/save-new-story
func (h *ActionHandler) SaveNewStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	fields, apiErr := parseActionFields(r, "story_url")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.saveService.Save(r.Context(), userID, action.SaveInput{
		URL:     fields["story_url"],
		Title:   fields["story_title"],
		Content: fields["story_content"],
		Author:  fields["story_author"],
		Tags:    fields["user_tags"],
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordAction("save-new-story", result.ID == "")
	writeDataResponse(w, []actionEntry{{
		ID:  nullableString(result.ID),
		URL: nullableString(result.URL),
	}})
}

// AddNewSubscription はフィードを購読する。
// POST /ifttt/v1/actions/add-new-subscription
func (h *ActionHandler) AddNewSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	fields, apiErr := parseActionFields(r, "url", "folder")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.subscribeService.Subscribe(r.Context(), userID, action.SubscribeInput{
		URL:         fields["url"],
		Folder:      fields["folder"],
		Bookmarklet: true,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var feedID any
	if result.FeedID != 0 {
		feedID = strconv.FormatInt(result.FeedID, 10)
	}

	h.metrics.RecordAction("add-new-subscription", false)
	writeDataResponse(w, []actionEntry{{
		ID:  feedID,
		URL: nullableString(result.FeedAddress),
	}})
}

// nullableString は空文字列をJSONのnullとして出力するための変換。
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
