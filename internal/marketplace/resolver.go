package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"eatoff/internal/domain/model"
	"eatoff/internal/repository"

	"github.com/labstack/gommon/log"
)

// 有効なマーケットプレイスが1つも無い（唯一のハードエラー）
var ErrCatalogUnavailable = errors.New("no marketplaces available")

const (
	DefaultGeoTimeout     = 10 * time.Second
	DefaultMaxPositionAge = 10 * time.Minute
)

// マーケットプレイス一覧の取得元（GET /marketplaces）
type CatalogSource interface {
	List(ctx context.Context) ([]model.Marketplace, error)
}

type Options struct {
	GeoTimeout     time.Duration
	MaxPositionAge time.Duration
	Logger         *log.Logger
}

// State は現在の選択状態のスナップショット
type State struct {
	Marketplace *model.Marketplace
	Catalog     []model.Marketplace
	Detected    *model.DetectedLocation
	// カタログ取得の失敗（致命的ではない）
	CatalogErr error
	// ErrCatalogUnavailable のときだけ入る
	Err error
}

// Resolver は端末ごとのマーケットプレイスを1つ決める。
//
// 優先順: 位置情報→逆ジオコーディングの国コード、保存済みの検出国、
// 既定フラグ付き、先頭の有効なもの。外部呼び出しはどれも失敗してよく、
// 失敗したら次の候補に落ちる。リトライはしない。
//
// Resolve の同時呼び出しはそれぞれ最後まで走る。重ならないようにするのは呼び出し側。
type Resolver struct {
	catalog  CatalogSource
	locator  LocationProvider
	geocoder ReverseGeocoder
	store    *Store
	opts     Options
	log      *log.Logger

	mu    sync.Mutex
	state State
	// カタログを書き込むたびに進める。古い取得結果で上書きしない
	catalogGen uint64
	bg         sync.WaitGroup
}

// locator / geocoder は nil でもよい（検出をスキップする）
func NewResolver(
	catalog CatalogSource,
	locator LocationProvider,
	geocoder ReverseGeocoder,
	store *Store,
	opts Options,
) *Resolver {
	if opts.GeoTimeout <= 0 {
		opts.GeoTimeout = DefaultGeoTimeout
	}
	if opts.MaxPositionAge <= 0 {
		opts.MaxPositionAge = DefaultMaxPositionAge
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New("marketplace")
	}

	return &Resolver{
		catalog:  catalog,
		locator:  locator,
		geocoder: geocoder,
		store:    store,
		opts:     opts,
		log:      logger,
	}
}

// Start はセッション開始時に呼ぶ。保存済みの選択があればそれをすぐ使い、
// カタログだけバックグラウンドで更新する。無ければ Resolve する。
func (r *Resolver) Start(ctx context.Context) (State, error) {
	stored, err := r.store.Marketplace(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.log.Warnf("stored marketplace ignored: %v", err)
		}
		return r.Resolve(ctx)
	}

	r.mu.Lock()
	r.state.Marketplace = &stored
	r.state.Err = nil
	if loc, err := r.store.DetectedCountry(ctx); err == nil {
		r.state.Detected = &loc
	}
	st := r.snapshotLocked()
	r.catalogGen++
	gen := r.catalogGen
	r.mu.Unlock()

	r.log.Debugf("using stored marketplace %s (%s)", stored.Name, stored.CurrencyCode)

	bgCtx := context.WithoutCancel(ctx)
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		list, err := r.fetchCatalog(bgCtx)
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.catalogGen {
			r.log.Debug("background catalog refresh superseded")
			return
		}
		r.state.Catalog = list
		r.state.CatalogErr = err
	}()

	return st, nil
}

// Wait はバックグラウンドのカタログ更新が終わるまで待つ。
func (r *Resolver) Wait() {
	r.bg.Wait()
}

// Resolve はカタログ取得→位置検出→選択→保存を1回行う。
func (r *Resolver) Resolve(ctx context.Context) (State, error) {
	r.mu.Lock()
	r.catalogGen++
	r.mu.Unlock()

	list, catErr := r.fetchCatalog(ctx)

	r.mu.Lock()
	r.state.Catalog = list
	r.state.CatalogErr = catErr
	r.mu.Unlock()

	active := Active(list)
	if len(active) == 0 {
		r.mu.Lock()
		r.state.Marketplace = nil
		r.state.Err = ErrCatalogUnavailable
		st := r.snapshotLocked()
		r.mu.Unlock()
		return st, ErrCatalogUnavailable
	}

	var (
		selected *model.Marketplace
		detected *model.DetectedLocation
	)

	if loc, ok := r.detect(ctx); ok {
		detected = &loc
		if err := r.store.SaveDetectedCountry(ctx, loc); err != nil {
			r.log.Warnf("save detected country: %v", err)
		}
		selected = SelectByCountry(active, loc.CountryCode)
	} else if cached, err := r.store.DetectedCountry(ctx); err == nil {
		detected = &cached
		selected = SelectByCountry(active, cached.CountryCode)
	}

	if selected == nil {
		selected = SelectDefault(active)
	}

	if err := r.store.SaveMarketplace(ctx, *selected); err != nil {
		r.log.Warnf("save marketplace: %v", err)
	}
	r.log.Infof("selected marketplace %s (%s)", selected.Name, selected.CurrencyCode)

	r.mu.Lock()
	r.state.Marketplace = selected
	r.state.Detected = detected
	r.state.Err = nil
	st := r.snapshotLocked()
	r.mu.Unlock()

	return st, nil
}

// SetManually は選択を上書きして保存する。Refresh まで検出は行わない。
func (r *Resolver) SetManually(ctx context.Context, m model.Marketplace) error {
	r.mu.Lock()
	selected := m
	r.state.Marketplace = &selected
	r.state.Err = nil
	r.mu.Unlock()

	return r.store.SaveMarketplace(ctx, m)
}

// Refresh は保存済みの選択と検出国を消して Resolve し直す。
func (r *Resolver) Refresh(ctx context.Context) (State, error) {
	if err := r.store.Clear(ctx); err != nil {
		r.log.Warnf("clear stored marketplace: %v", err)
	}

	r.mu.Lock()
	r.state.Marketplace = nil
	r.state.Detected = nil
	r.mu.Unlock()

	return r.Resolve(ctx)
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// 失敗しても空のカタログを返す（呼び出し側はCatalogErrを見る）
func (r *Resolver) fetchCatalog(ctx context.Context) ([]model.Marketplace, error) {
	list, err := r.catalog.List(ctx)
	if err != nil {
		r.log.Errorf("failed to fetch marketplaces: %v", err)
		return []model.Marketplace{}, err
	}
	return list, nil
}

// 位置情報→逆ジオコーディング。どちらかが失敗したら false
func (r *Resolver) detect(ctx context.Context) (model.DetectedLocation, bool) {
	if r.locator == nil || r.geocoder == nil {
		return model.DetectedLocation{}, false
	}

	geoCtx, cancel := context.WithTimeout(ctx, r.opts.GeoTimeout)
	defer cancel()

	pos, err := r.locator.CurrentPosition(geoCtx, PositionOptions{
		Timeout:    r.opts.GeoTimeout,
		MaximumAge: r.opts.MaxPositionAge,
	})
	if err != nil {
		r.log.Debugf("geolocation unavailable, falling back: %v", err)
		return model.DetectedLocation{}, false
	}

	loc, err := r.geocoder.Reverse(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		r.log.Warnf("reverse geocode failed: %v", err)
		return model.DetectedLocation{}, false
	}

	code, err := model.ParseCountryCode(loc.CountryCode)
	if err != nil {
		r.log.Warnf("reverse geocode returned %q: %v", loc.CountryCode, err)
		return model.DetectedLocation{}, false
	}
	loc.CountryCode = code

	r.log.Debugf("detected country %s %s", loc.Country, loc.CountryCode)
	return loc, true
}

func (r *Resolver) snapshotLocked() State {
	st := r.state
	if r.state.Catalog != nil {
		st.Catalog = make([]model.Marketplace, len(r.state.Catalog))
		copy(st.Catalog, r.state.Catalog)
	}
	if r.state.Marketplace != nil {
		m := *r.state.Marketplace
		st.Marketplace = &m
	}
	if r.state.Detected != nil {
		d := *r.state.Detected
		st.Detected = &d
	}
	return st
}
