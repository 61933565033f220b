package model

import "testing"

// StoryHashが安定したフィンガープリントを返すことを検証
func TestStoryHash(t *testing.T) {
	// md5("https://example.com/story/1") = 71d95b9df4401df7002b5711b7e8e63b
	got := StoryHash(42, "https://example.com/story/1")
	want := "42:71d95b"
	if got != want {
		t.Errorf("StoryHash = %q, want %q", got, want)
	}
}

// 同一入力に対してStoryHashが常に同じ値を返すことを検証
func TestStoryHash_Stable(t *testing.T) {
	a := StoryHash(1, "guid-a")
	b := StoryHash(1, "guid-a")
	if a != b {
		t.Errorf("StoryHash not stable: %q != %q", a, b)
	}

	if StoryHash(1, "guid-a") == StoryHash(2, "guid-a") {
		t.Error("different feeds should yield different hashes")
	}
	if StoryHash(1, "guid-a") == StoryHash(1, "guid-b") {
		t.Error("different guids should yield different hashes")
	}
}

// フィード未解決（FeedID=0）の記事もハッシュを持つことを検証
func TestStoryHash_ZeroFeed(t *testing.T) {
	got := StoryHash(0, "https://example.com/story/1")
	want := "0:71d95b"
	if got != want {
		t.Errorf("StoryHash = %q, want %q", got, want)
	}
}

// 各記事型のHashメソッドがStoryHashと一致することを検証
func TestStoryTypes_Hash(t *testing.T) {
	want := StoryHash(7, "g")

	story := &Story{FeedID: 7, GUID: "g"}
	shared := &SharedStory{FeedID: 7, GUID: "g"}
	starred := &StarredStory{FeedID: 7, GUID: "g"}

	if story.Hash() != want {
		t.Errorf("Story.Hash = %q, want %q", story.Hash(), want)
	}
	if shared.Hash() != want {
		t.Errorf("SharedStory.Hash = %q, want %q", shared.Hash(), want)
	}
	if starred.Hash() != want {
		t.Errorf("StarredStory.Hash = %q, want %q", starred.Hash(), want)
	}
}
