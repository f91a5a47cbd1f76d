package imagecache

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultWidth  = 320
	DefaultHeight = 192
)

// Unsplash の画像だけサイズ指定とwebp変換のクエリに置き換える
func OptimizeURL(src string, width int, height int) string {
	if src == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	u, err := url.Parse(src)
	if err != nil || !strings.HasSuffix(u.Hostname(), "unsplash.com") {
		return src
	}

	q := url.Values{}
	q.Set("w", strconv.Itoa(width))
	q.Set("h", strconv.Itoa(height))
	q.Set("fit", "crop")
	q.Set("fm", "webp")
	q.Set("q", "80")
	u.RawQuery = q.Encode()
	return u.String()
}

// 読み込めなかった画像の代わりに名前だけ描いたSVG
func FallbackSVG(name string) Image {
	svg := fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100%%" height="100%%" fill="#f3f4f6"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" dy=".3em" font-family="system-ui, sans-serif" font-size="14" fill="#6b7280">%s</text>`+
		`</svg>`,
		DefaultWidth, DefaultHeight, DefaultWidth, DefaultHeight, html.EscapeString(name))
	return Image{Data: []byte(svg), ContentType: "image/svg+xml"}
}
