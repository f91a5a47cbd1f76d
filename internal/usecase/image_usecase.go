package usecase

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"eatoff/internal/imagecache"
)

type ImageUsecase struct {
	cache *imagecache.Cache
	// 取りに行ってよいホスト。サブドメインも許可する
	hosts []string
}

func NewImageUsecase(cache *imagecache.Cache, allowedHosts []string) *ImageUsecase {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &ImageUsecase{cache: cache, hosts: hosts}
}

type FetchImageInput struct {
	Src    string
	Width  int
	Height int
	// 取得できなかったときにプレースホルダーへ描く名前
	Name string
}

// Fetch は最適化したURLで画像を取り、キャッシュする。
func (u *ImageUsecase) Fetch(ctx context.Context, in FetchImageInput) (imagecache.Image, error) {
	if in.Src == "" {
		return imagecache.Image{}, NewHTTPError(http.StatusBadRequest, "src is required")
	}
	if in.Width < 0 || in.Width > 2000 || in.Height < 0 || in.Height > 2000 {
		return imagecache.Image{}, NewHTTPError(http.StatusBadRequest, "invalid size")
	}
	if !u.allowed(in.Src) {
		return imagecache.Image{}, NewHTTPError(http.StatusBadRequest, "invalid src")
	}

	img, err := u.cache.Get(ctx, imagecache.OptimizeURL(in.Src, in.Width, in.Height))
	if err != nil {
		if in.Name != "" {
			return imagecache.FallbackSVG(in.Name), nil
		}
		return imagecache.Image{}, NewHTTPError(http.StatusBadGateway, "image unavailable")
	}
	return img, nil
}

// 先読み。失敗した件数だけ返す（許可されていないsrcも失敗に数える）
func (u *ImageUsecase) Preload(ctx context.Context, srcs []string) int {
	failed := 0
	optimized := make([]string, 0, len(srcs))
	for _, s := range srcs {
		if s == "" {
			continue
		}
		if !u.allowed(s) {
			failed++
			continue
		}
		optimized = append(optimized, imagecache.OptimizeURL(s, 0, 0))
	}

	if err := u.cache.Preload(ctx, optimized, imagecache.DefaultPreloadLimit); err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			return failed + len(joined.Unwrap())
		}
		return failed + 1
	}
	return failed
}

// http(s) で、ホストが許可リストに一致するかそのサブドメインのときだけ true
func (u *ImageUsecase) allowed(src string) bool {
	parsed, err := url.Parse(src)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.User != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, h := range u.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
