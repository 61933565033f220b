package trigger

import (
	"strings"

	"github.com/hitoshi/feedlink/internal/model"
)

// storyFacts はスコアリング対象記事の属性。
// sharerIDは共有記事のみ非ゼロで、シェアラースコープのフィードルールに一致する。
type storyFacts struct {
	Title    string
	Author   string
	Tags     []string
	FeedID   int64
	SharerID int64
}

// scoreStory は分類器ルールから記事の相対スコアを計算する。
// title/author/tagの各カテゴリは-1/0/+1を取り、正があれば最大値、
// なければ負の最小値をスコアとする。3カテゴリとも0の場合のみ
// feedカテゴリのルールが適用される。
func scoreStory(facts storyFacts, rules []model.ClassifierRule) int {
	var titleScore, authorScore, tagScore, feedScore int

	for _, rule := range rules {
		if !ruleInScope(rule, facts) {
			continue
		}
		switch rule.Category {
		case model.ClassifierTitle:
			if strings.Contains(strings.ToLower(facts.Title), strings.ToLower(rule.Target)) {
				titleScore = pickScore(titleScore, rule.Score)
			}
		case model.ClassifierAuthor:
			if facts.Author != "" && facts.Author == rule.Target {
				authorScore = pickScore(authorScore, rule.Score)
			}
		case model.ClassifierTag:
			if containsTag(facts.Tags, rule.Target) {
				tagScore = pickScore(tagScore, rule.Score)
			}
		case model.ClassifierFeed:
			feedScore = pickScore(feedScore, rule.Score)
		}
	}

	maxScore := maxOf(titleScore, authorScore, tagScore)
	minScore := minOf(titleScore, authorScore, tagScore)

	switch {
	case maxScore > 0:
		return 1
	case minScore < 0:
		return -1
	case feedScore > 0:
		return 1
	case feedScore < 0:
		return -1
	}
	return 0
}

// ruleInScope はルールが記事のフィードまたはシェアラーに適用されるかを返す。
func ruleInScope(rule model.ClassifierRule, facts storyFacts) bool {
	if rule.FeedID != 0 {
		return rule.FeedID == facts.FeedID
	}
	if rule.SocialUserID != 0 {
		return rule.SocialUserID == facts.SharerID
	}
	return false
}

// pickScore は同一カテゴリ内の競合を解決する。正のルールが常に優先される。
func pickScore(current, candidate int) int {
	if current > 0 {
		return current
	}
	if candidate > 0 {
		return 1
	}
	if candidate < 0 {
		return -1
	}
	return current
}

func containsTag(tags []string, target string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, target) {
			return true
		}
	}
	return false
}

func maxOf(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
