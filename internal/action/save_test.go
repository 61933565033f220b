package action

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hitoshi/feedlink/internal/model"
	"github.com/hitoshi/feedlink/internal/repository"
)

func newSaveService(t *testing.T) (*SaveService, *mockResolver, *mockStarredRepo, *passthroughSanitizer) {
	t.Helper()
	resolver := &mockResolver{}
	starred := &mockStarredRepo{}
	sanitizer := &passthroughSanitizer{}
	return NewSaveService(resolver, starred, sanitizer), resolver, starred, sanitizer
}

func TestSave_CreatesStarredStory(t *testing.T) {
	svc, resolver, starred, _ := newSaveService(t)
	resolver.lookupFn = func(ctx context.Context, feedURL string) (*model.Feed, error) {
		return &model.Feed{ID: 42}, nil
	}
	var created *model.StarredStory
	starred.createFn = func(ctx context.Context, story *model.StarredStory) error {
		created = story
		return nil
	}
	recounted := false
	starred.recountTagsFn = func(ctx context.Context, userID int64) error {
		recounted = true
		return nil
	}

	result, err := svc.Save(context.Background(), 1, SaveInput{
		URL:  "https://example.com/story/1",
		Tags: "golang, news, ,golang news",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if created == nil {
		t.Fatal("story was not created")
	}
	if created.FeedID != 42 {
		t.Errorf("FeedID = %d, want 42", created.FeedID)
	}
	if want := []string{"golang", "news", "golang news"}; !reflect.DeepEqual(created.UserTags, want) {
		t.Errorf("UserTags = %v, want %v", created.UserTags, want)
	}
	if !recounted {
		t.Error("tag counts must be rebuilt after a save")
	}
	if result.ID != created.ID || result.URL != "https://example.com/story/1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSave_DuplicateIsNoOp(t *testing.T) {
	svc, _, starred, _ := newSaveService(t)
	starred.createFn = func(ctx context.Context, story *model.StarredStory) error {
		return repository.ErrDuplicate
	}
	recounted := false
	starred.recountTagsFn = func(ctx context.Context, userID int64) error {
		recounted = true
		return nil
	}

	result, err := svc.Save(context.Background(), 1, SaveInput{URL: "https://example.com/story/1"})
	if err != nil {
		t.Fatalf("duplicate save must not error: %v", err)
	}
	if result.ID != "" || result.URL != "" {
		t.Errorf("duplicate save must return empty id/url: %+v", result)
	}
	if recounted {
		t.Error("duplicate save must not rebuild tag counts")
	}
}

func TestSave_UnknownFeedSavesWithZeroID(t *testing.T) {
	svc, _, starred, _ := newSaveService(t)
	var created *model.StarredStory
	starred.createFn = func(ctx context.Context, story *model.StarredStory) error {
		created = story
		return nil
	}

	if _, err := svc.Save(context.Background(), 1, SaveInput{URL: "https://example.com/story/1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if created == nil || created.FeedID != 0 {
		t.Errorf("story must be saved with feed id 0: %+v", created)
	}
}

func TestSave_EmptyTitleDefaultsToUntitled(t *testing.T) {
	svc, _, starred, _ := newSaveService(t)
	var created *model.StarredStory
	starred.createFn = func(ctx context.Context, story *model.StarredStory) error {
		created = story
		return nil
	}

	if _, err := svc.Save(context.Background(), 1, SaveInput{URL: "https://example.com/story/1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if created == nil || created.Title != "[Untitled]" {
		t.Errorf("title = %+v, want [Untitled]", created)
	}
}

func TestSave_ContentSanitized(t *testing.T) {
	svc, _, _, sanitizer := newSaveService(t)

	if _, err := svc.Save(context.Background(), 1, SaveInput{
		URL:     "https://example.com/story/1",
		Content: `<p>body</p>`,
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(sanitizer.sanitizedWithBase) != 1 {
		t.Error("content must pass through the sanitizer")
	}
}

func TestSave_MissingURL(t *testing.T) {
	svc, _, _, _ := newSaveService(t)

	_, err := svc.Save(context.Background(), 1, SaveInput{})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingField {
		t.Fatalf("err = %v, want MISSING_FIELD", err)
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"golang", []string{"golang"}},
		{"golang,news", []string{"golang", "news"}},
		{" golang , news ", []string{"golang", "news"}},
		{",,", nil},
	}
	for _, tt := range tests {
		if got := splitTags(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitTags(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
