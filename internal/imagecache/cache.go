package imagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSize         = 256
	DefaultPreloadLimit = 4
	// 1回の読み込みの上限（呼び出し元が待たなくなっても続く分）
	DefaultLoadTimeout = 20 * time.Second
)

type Image struct {
	Data        []byte
	ContentType string
}

// 画像の取得元（HTTPなど）
type Loader interface {
	Load(ctx context.Context, src string) (Image, error)
}

// Cache は件数上限つきの画像キャッシュ。
// 同じ src の同時読み込みは1回にまとめる。失敗はキャッシュしない。
type Cache struct {
	loader      Loader
	lru         *lru.Cache[string, Image]
	group       singleflight.Group
	loadTimeout time.Duration
	log         *log.Logger
}

func New(loader Loader, size int, logger *log.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = log.New("imagecache")
	}

	c := &Cache{loader: loader, loadTimeout: DefaultLoadTimeout, log: logger}
	l, err := lru.NewWithEvict[string, Image](size, func(src string, _ Image) {
		c.log.Debugf("evicted %s", src)
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get はキャッシュから返し、無ければ読み込む。
// 読み込みは呼び出し元のキャンセルに引きずられない（同じ src を待つ他の呼び出しがいる）。
// 各呼び出しは自分の ctx が切れた時点で諦める。
func (c *Cache) Get(ctx context.Context, src string) (Image, error) {
	if src == "" {
		return Image{}, errors.New("empty image src")
	}
	if img, ok := c.lru.Get(src); ok {
		return img, nil
	}

	ch := c.group.DoChan(src, func() (interface{}, error) {
		if img, ok := c.lru.Get(src); ok {
			return img, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		img, err := c.loader.Load(loadCtx, src)
		if err != nil {
			return Image{}, fmt.Errorf("load image %s: %w", src, err)
		}
		c.lru.Add(src, img)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return Image{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Image{}, res.Err
		}
		return res.Val.(Image), nil
	}
}

func (c *Cache) Contains(src string) bool {
	return c.lru.Contains(src)
}

func (c *Cache) Remove(src string) bool {
	return c.lru.Remove(src)
}

func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Preload は最大 limit 並列で読み込む。個々の失敗で止めず、まとめて返す。
func (c *Cache) Preload(ctx context.Context, srcs []string, limit int) error {
	if limit <= 0 {
		limit = DefaultPreloadLimit
	}

	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, src := range srcs {
		src := src
		g.Go(func() error {
			if _, err := c.Get(gctx, src); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		c.log.Warnf("preload: %d of %d images failed", len(errs), len(srcs))
	}
	return errors.Join(errs...)
}
