package trigger

import (
	"strings"
	"time"

	"github.com/hitoshi/feedlink/internal/model"
)

// Meta は外部プラットフォームの重複排除用フィンガープリント。
// idは記事の安定ハッシュ、timestampは該当日時のエポック秒。
type Meta struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// UnreadEntry は未読トリガーの出力1件。キー名は外部プラットフォームの契約。
type UnreadEntry struct {
	StoryTitle      string `json:"StoryTitle"`
	StoryContent    string `json:"StoryContent"`
	StoryURL        string `json:"StoryUrl"`
	StoryAuthor     string `json:"StoryAuthor"`
	StoryDate       string `json:"StoryDate"`
	StoryScore      int    `json:"StoryScore"`
	SiteTitle       string `json:"SiteTitle"`
	SiteWebsite     string `json:"SiteWebsite"`
	SiteFeedAddress string `json:"SiteFeedAddress"`
	Meta            Meta   `json:"ifttt"`
}

// SavedEntry は保存トリガーの出力1件。
type SavedEntry struct {
	StoryTitle      string `json:"StoryTitle"`
	StoryContent    string `json:"StoryContent"`
	StoryURL        string `json:"StoryUrl"`
	StoryAuthor     string `json:"StoryAuthor"`
	StoryDate       string `json:"StoryDate"`
	SavedDate       string `json:"SavedDate"`
	SavedTags       string `json:"SavedTags"`
	SiteTitle       string `json:"SiteTitle"`
	SiteWebsite     string `json:"SiteWebsite"`
	SiteFeedAddress string `json:"SiteFeedAddress"`
	Meta            Meta   `json:"ifttt"`
}

// SharedEntry は共有トリガーの出力1件。
type SharedEntry struct {
	StoryTitle      string `json:"StoryTitle"`
	StoryContent    string `json:"StoryContent"`
	StoryURL        string `json:"StoryUrl"`
	StoryAuthor     string `json:"StoryAuthor"`
	StoryDate       string `json:"StoryDate"`
	StoryScore      int    `json:"StoryScore"`
	SharedComments  string `json:"SharedComments"`
	ShareUsername   string `json:"ShareUsername"`
	SharedDate      string `json:"SharedDate"`
	SiteTitle       string `json:"SiteTitle"`
	SiteWebsite     string `json:"SiteWebsite"`
	SiteFeedAddress string `json:"SiteFeedAddress"`
	Meta            Meta   `json:"ifttt"`
}

// NewUnreadEntry はUnreadItemを出力形式に変換する。
func NewUnreadEntry(item UnreadItem) UnreadEntry {
	entry := UnreadEntry{
		StoryTitle:   item.Story.Title,
		StoryContent: item.Story.Content,
		StoryURL:     item.Story.Permalink,
		StoryAuthor:  item.Story.Author,
		StoryDate:    formatDate(item.Story.PublishedAt),
		StoryScore:   item.Score,
		Meta: Meta{
			ID:        item.Story.Hash(),
			Timestamp: item.Story.PublishedAt.Unix(),
		},
	}
	fillSiteFields(&entry.SiteTitle, &entry.SiteWebsite, &entry.SiteFeedAddress, item.Feed)
	return entry
}

// NewSavedEntry はSavedItemを出力形式に変換する。
func NewSavedEntry(item SavedItem) SavedEntry {
	entry := SavedEntry{
		StoryTitle:   item.Story.Title,
		StoryContent: item.Story.Content,
		StoryURL:     item.Story.Permalink,
		StoryAuthor:  item.Story.Author,
		StoryDate:    formatDate(item.Story.StoryDate),
		SavedDate:    formatDate(item.Story.StarredAt),
		SavedTags:    strings.Join(item.Story.UserTags, ", "),
		Meta: Meta{
			ID:        item.Story.Hash(),
			Timestamp: item.Story.StarredAt.Unix(),
		},
	}
	fillSiteFields(&entry.SiteTitle, &entry.SiteWebsite, &entry.SiteFeedAddress, item.Feed)
	return entry
}

// NewSharedEntry はSharedItemを出力形式に変換する。
func NewSharedEntry(item SharedItem) SharedEntry {
	entry := SharedEntry{
		StoryTitle:     item.Story.Title,
		StoryContent:   item.Story.Content,
		StoryURL:       item.Story.Permalink,
		StoryAuthor:    item.Story.Author,
		StoryDate:      formatDate(item.Story.StoryDate),
		StoryScore:     item.Score,
		SharedComments: item.Story.Comments,
		ShareUsername:  item.SharerUsername,
		SharedDate:     formatDate(item.Story.SharedAt),
		Meta: Meta{
			ID:        item.Story.Hash(),
			Timestamp: item.Story.SharedAt.Unix(),
		},
	}
	fillSiteFields(&entry.SiteTitle, &entry.SiteWebsite, &entry.SiteFeedAddress, item.Feed)
	return entry
}

// fillSiteFields はフィードメタデータを出力に埋める。フィード未解決の場合は空のまま。
func fillSiteFields(title, website, feedAddress *string, feed *model.Feed) {
	if feed == nil {
		return
	}
	*title = feed.Title
	*website = feed.SiteURL
	*feedAddress = feed.FeedURL
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
