package trigger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Option はトリガーフィールドの選択肢1件を表す。
// 外部プラットフォームのドロップダウンに表示される。
type Option struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Optgroup bool   `json:"optgroup,omitempty"`
}

// FeedFolderOptions は未読トリガーのfeed_or_folderフィールドの選択肢を返す。
// 先頭に全購読のキャッチオール、続いてフォルダ見出しとその所属フィードを
// フォルダタイトル順・フィードタイトル順で並べる。
func (s *Service) FeedFolderOptions(ctx context.Context, userID int64) ([]Option, error) {
	folders, err := s.folderRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォルダ階層の取得に失敗しました: %w", err)
	}

	subs, err := s.subRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	feedIDs := make([]int64, 0, len(subs))
	subscribed := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		feedIDs = append(feedIDs, sub.FeedID)
		subscribed[sub.FeedID] = true
	}

	feeds, err := s.feedRepo.ListByIDs(ctx, feedIDs)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	options := []Option{{Label: " - Folder: All Site Stories", Value: ScopeAll}}

	flat := folders.Flatten()
	titles := make([]string, 0, len(flat))
	for title := range flat {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		header := Option{Label: " - Folder: " + title, Value: title, Optgroup: true}
		if title == "" {
			header.Label = " - Folder: " + TopLevelFolder
			header.Value = TopLevelFolder
		}
		options = append(options, header)

		members := make([]Option, 0, len(flat[title]))
		for _, feedID := range flat[title] {
			if !subscribed[feedID] {
				continue
			}
			feed, ok := feeds[feedID]
			if !ok {
				continue
			}
			members = append(members, Option{
				Label: feed.Title,
				Value: strconv.FormatInt(feedID, 10),
			})
		}
		sort.Slice(members, func(i, j int) bool {
			return strings.ToLower(members[i].Label) < strings.ToLower(members[j].Label)
		})
		options = append(options, members...)
	}

	return options, nil
}

// SavedTagOptions は保存トリガーのstory_tagフィールドの選択肢を返す。
// 各タグの保存記事数をラベルに含め、先頭に全保存記事のキャッチオールを置く。
func (s *Service) SavedTagOptions(ctx context.Context, userID int64) ([]Option, error) {
	counts, err := s.starredRepo.CountTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("タグ別集計の取得に失敗しました: %w", err)
	}

	total := 0
	options := make([]Option, 0, len(counts)+1)
	for _, tc := range counts {
		total += tc.Count
		if tc.Tag == "" {
			continue
		}
		options = append(options, Option{
			Label: fmt.Sprintf("%s (%d %s)", tc.Tag, tc.Count, pluralStories(tc.Count)),
			Value: tc.Tag,
		})
	}
	sort.Slice(options, func(i, j int) bool {
		return strings.ToLower(options[i].Value) < strings.ToLower(options[j].Value)
	})

	catchall := Option{
		Label: fmt.Sprintf("All Saved Stories (%d %s)", total, pluralStories(total)),
		Value: ScopeAll,
	}
	return append([]Option{catchall}, options...), nil
}

// SharerOptions は共有トリガーのblurblog_userフィールドの選択肢を返す。
// 共有記事を持たないシェアラーは除外する。
func (s *Service) SharerOptions(ctx context.Context, userID int64) ([]Option, error) {
	sharers, err := s.socialRepo.ListSharersWithCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("シェアラー一覧の取得に失敗しました: %w", err)
	}

	options := make([]Option, 0, len(sharers)+1)
	for _, sharer := range sharers {
		if sharer.SharedStoryCount == 0 {
			continue
		}
		options = append(options, Option{
			Label: fmt.Sprintf("%s (%d %s)", sharer.Username, sharer.SharedStoryCount, pluralStories(sharer.SharedStoryCount)),
			Value: strconv.FormatInt(sharer.UserID, 10),
		})
	}
	sort.Slice(options, func(i, j int) bool {
		return strings.ToLower(options[i].Label) < strings.ToLower(options[j].Label)
	})

	return append([]Option{{Label: "All Shared Stories", Value: ScopeAll}}, options...), nil
}

func pluralStories(n int) string {
	if n == 1 {
		return "story"
	}
	return "stories"
}
