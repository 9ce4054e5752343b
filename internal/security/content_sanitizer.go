// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は投稿本文をサニタイズし、保存されたコンテンツが
// クライアント側でXSSの原因にならないようにする。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 軽い装飾用のタグのみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は投稿本文のサニタイズ機能のインターフェースを定義する。
type ContentSanitizer interface {
	// Sanitize は本文をサニタイズして安全な文字列を返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, style, imgタグおよびon*イベント属性を除去する。
	// 前後の空白は除去される。同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// 画像は投稿のimageUrlで別管理するため、本文中のimgは許可しない。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	// aタグはhttp(s)の絶対URLのみ、target="_blank"とrel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		policy: p,
	}
}

// maxSanitizePasses はエンティティ展開後に再サニタイズする最大回数。
const maxSanitizePasses = 4

// Sanitize は本文から許可されないマークアップを除去する。
// 本文はテキストとして保存するため、bluemondayがエスケープした文字は元に戻す。
// 戻した結果に新たなタグが現れる場合（&lt;script&gt; など）は再度サニタイズし、
// 結果が変わらなくなるまで繰り返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	text := raw
	for range maxSanitizePasses {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			return strings.TrimSpace(text)
		}
		text = next
	}
	// 収束しない入力はエスケープしたまま返す
	return strings.TrimSpace(s.policy.Sanitize(text))
}
