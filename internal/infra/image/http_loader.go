package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"eatoff/internal/imagecache"
)

// 1枚あたりの上限
const MaxImageBytes = 5 << 20

// 内部向けアドレスへの接続は拒否する
var ErrBlockedAddress = errors.New("blocked address")

// net.IP の判定で拾えない共有・予約レンジ
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPLoader struct {
	client HTTPClient
}

// client が nil なら内部アドレスへ接続しないクライアントを使う
func NewHTTPLoader(client HTTPClient) *HTTPLoader {
	if client == nil {
		client = NewPublicClient(15 * time.Second)
	}
	return &HTTPLoader{client: client}
}

// NewPublicClient は公開アドレスにだけ接続する http.Client を返す。
// 名前解決の後、接続直前のIPで判定するのでリダイレクトやDNSの差し替えも止まる。
// 環境変数のプロキシは使わない。
func NewPublicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: denyInternal,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               nil,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

func denyInternal(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if IsBlocked(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

// IsBlocked はループバック・プライベート・リンクローカルなど外から取る必要のないアドレスで true
func IsBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() || addr.IsMulticast() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (l *HTTPLoader) Load(ctx context.Context, src string) (imagecache.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return imagecache.Image{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return imagecache.Image{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return imagecache.Image{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return imagecache.Image{}, fmt.Errorf("unexpected content type %q", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return imagecache.Image{}, err
	}
	if len(data) > MaxImageBytes {
		return imagecache.Image{}, fmt.Errorf("image larger than %d bytes", MaxImageBytes)
	}
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return imagecache.Image{Data: data, ContentType: ct}, nil
}
