// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は共有・保存される記事のHTMLコンテンツをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 共有記事・保存記事のコンテンツ保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// SanitizeWithBase は相対リンクをbaseURL基準で絶対URLに解決してから
	// サニタイズする。記事コンテンツは元サイトの文脈を離れて配信されるため、
	// 相対参照のままでは壊れたリンクになる。
	// baseURLが不正な場合は解決をスキップしてSanitizeと同じ結果を返す。
	SanitizeWithBase(rawHTML, baseURL string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
//   - imgのsrc属性: http/httpsスキームのみ許可
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	// 相対URLはSanitizeWithBaseで解決済みである前提のため不許可
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})
	// 記事画像はhttp配信のサイトも多いため、リンクと同様httpも通す
	p.AllowURLSchemeWithCustomPolicy("http", func(u *url.URL) bool {
		return true
	})

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// SanitizeWithBase は相対リンクを絶対URLに解決してからサニタイズする。
func (s *contentSanitizer) SanitizeWithBase(rawHTML, baseURL string) string {
	resolved := absolutizeLinks(rawHTML, baseURL)
	return s.policy.Sanitize(resolved)
}

// absolutizeLinks はa[href]とimg[src]の相対参照をbase基準の絶対URLに書き換える。
// baseが不正、またはHTMLの解析に失敗した場合は入力をそのまま返す。
func absolutizeLinks(rawHTML, base string) string {
	if rawHTML == "" {
		return rawHTML
	}

	baseU, err := url.Parse(base)
	if err != nil || !baseU.IsAbs() {
		return rawHTML
	}

	// bodyコンテキストでフラグメントとして解析する
	bodyNode := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(rawHTML), bodyNode)
	if err != nil {
		return rawHTML
	}

	var buf bytes.Buffer
	for _, node := range nodes {
		resolveNodeURLs(node, baseU)
		if err := html.Render(&buf, node); err != nil {
			return rawHTML
		}
	}
	return buf.String()
}

// resolveNodeURLs はノードツリーを再帰的に辿り、URL属性を絶対URLに解決する。
func resolveNodeURLs(node *html.Node, baseU *url.URL) {
	if node.Type == html.ElementNode {
		var attrName string
		switch node.DataAtom {
		case atom.A:
			attrName = "href"
		case atom.Img:
			attrName = "src"
		}
		if attrName != "" {
			for i, attr := range node.Attr {
				if attr.Key != attrName || attr.Val == "" {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil || ref.IsAbs() {
					continue
				}
				node.Attr[i].Val = baseU.ResolveReference(ref).String()
			}
		}
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		resolveNodeURLs(child, baseU)
	}
}
