package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrUnsafeURL はURLが安全性検証で拒否されたことを示す。
var ErrUnsafeURL = errors.New("unsafe URL")

// URLGuard は外部URLの安全性検証機能のインターフェースを定義する。
// 振り返り生成バックエンドへの接続と、投稿・ユーザーに保存する画像URLの検証に使用される。
type URLGuard interface {
	// NewSafeClient はプライベート・ループバック・リンクローカル宛ての接続を
	// ダイヤル時に拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL はDNS解決を伴わずにURLを検証する。
	// 拒否した場合はErrUnsafeURLを包んだエラーを返す。
	ValidateURL(rawURL string) error
}

var allowedSchemes = []string{"http", "https"}

// blockedPrefixes は保存・接続を許可しないアドレス範囲。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),      // カレントネットワーク
	netip.MustParsePrefix("10.0.0.0/8"),     // RFC 1918
	netip.MustParsePrefix("100.64.0.0/10"),  // CGNAT
	netip.MustParsePrefix("127.0.0.0/8"),    // ループバック
	netip.MustParsePrefix("169.254.0.0/16"), // リンクローカル（メタデータIPを含む）
	netip.MustParsePrefix("172.16.0.0/12"),  // RFC 1918
	netip.MustParsePrefix("192.168.0.0/16"), // RFC 1918
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),  // ユニークローカル
	netip.MustParsePrefix("fe80::/10"), // リンクローカル
}

type urlGuard struct{}

// NewURLGuard はURLGuardの新しいインスタンスを生成する。
func NewURLGuard() *urlGuard {
	return &urlGuard{}
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを返す。
// 接続先IPはDNS解決後に検証されるため、DNSリバインディングも防げる。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

func (g *urlGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return unsafeURL("empty URL")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return unsafeURL("malformed URL: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return unsafeURL("scheme %q is not allowed", u.Scheme)
	}
	if u.User != nil {
		return unsafeURL("credentials in URL are not allowed")
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "":
		return unsafeURL("missing host")
	case host == "localhost" || strings.HasSuffix(host, ".localhost"):
		return unsafeURL("host %q is not allowed", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil && isBlockedAddr(addr) {
		return unsafeURL("address %s is not allowed", addr)
	}
	return nil
}

func unsafeURL(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsafeURL, fmt.Sprintf(format, args...))
}

// isBlockedAddr はIPv4射影アドレスも含めてブロック対象かを判定する。
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
