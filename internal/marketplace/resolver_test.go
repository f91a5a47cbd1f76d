package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eatoff/internal/domain/model"
	"eatoff/internal/infra/kv"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// fakes
// =====================

type fakeCatalog struct {
	list  []model.Marketplace
	err   error
	calls int
}

func (f *fakeCatalog) List(ctx context.Context) ([]model.Marketplace, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Marketplace, len(f.list))
	copy(out, f.list)
	return out, nil
}

type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (model.Position, error) {
	args := m.Called(ctx, opts)
	p, _ := args.Get(0).(model.Position)
	return p, args.Error(1)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Reverse(ctx context.Context, lat float64, lng float64) (model.DetectedLocation, error) {
	args := m.Called(ctx, lat, lng)
	loc, _ := args.Get(0).(model.DetectedLocation)
	return loc, args.Error(1)
}

// ctxが切れるまで返さない
type blockingLocator struct{}

func (blockingLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (model.Position, error) {
	<-ctx.Done()
	return model.Position{}, ctx.Err()
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetLevel(log.OFF)
	return l
}

func sampleCatalog() []model.Marketplace {
	return []model.Marketplace{
		{ID: 1, Name: "Romania", Country: "Romania", CountryCode: "RO", CurrencyCode: "RON", CurrencySymbol: "Lei", IsActive: true, IsDefault: true},
		{ID: 2, Name: "Spain", Country: "Spain", CountryCode: "es", CurrencyCode: "EUR", CurrencySymbol: "€", IsActive: true},
		{ID: 3, Name: "United Kingdom", Country: "United Kingdom", CountryCode: "GB", CurrencyCode: "GBP", CurrencySymbol: "£", IsActive: false},
	}
}

func newTestResolver(cat CatalogSource, loc LocationProvider, geo ReverseGeocoder, store *kv.MemoryStore) *Resolver {
	return NewResolver(cat, loc, geo, NewStore(store), Options{
		GeoTimeout: 50 * time.Millisecond,
		Logger:     quietLogger(),
	})
}

func madrid() model.Position {
	return model.Position{Latitude: 40.4168, Longitude: -3.7038, Timestamp: time.Now()}
}

// =====================
// Resolve
// =====================

func TestResolve_MatchesDetectedCountryCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(madrid(), nil).Once()
	geo := new(MockGeocoder)
	geo.On("Reverse", mock.Anything, 40.4168, -3.7038).
		Return(model.DetectedLocation{Country: "España", CountryCode: "ES"}, nil).Once()

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, geo, store)

	st, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.Marketplace)
	assert.Equal(t, int64(2), st.Marketplace.ID)
	require.NotNil(t, st.Detected)
	assert.Equal(t, "ES", st.Detected.CountryCode)

	// 検出国と選択が保存される
	saved, err := NewStore(store).Marketplace(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.ID)
	det, err := NewStore(store).DetectedCountry(ctx)
	require.NoError(t, err)
	assert.Equal(t, "España", det.Country)

	loc.AssertExpectations(t)
	geo.AssertExpectations(t)
}

func TestResolve_LowercaseGeocoderCodeIsNormalized(t *testing.T) {
	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(madrid(), nil)
	geo := new(MockGeocoder)
	geo.On("Reverse", mock.Anything, mock.Anything, mock.Anything).
		Return(model.DetectedLocation{Country: "Romania", CountryCode: "ro"}, nil)

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, geo, kv.NewMemoryStore())

	st, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Marketplace.ID)
	assert.Equal(t, "RO", st.Detected.CountryCode)
}

func TestResolve_NoCountryCode_FallsBackToDefault(t *testing.T) {
	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(model.Position{}, ErrPositionUnavailable)

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, new(MockGeocoder), kv.NewMemoryStore())

	st, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Marketplace.ID)
	assert.Nil(t, st.Detected)
}

func TestResolve_NoDefault_FallsBackToFirstActive(t *testing.T) {
	list := []model.Marketplace{
		{ID: 5, Name: "Off", CountryCode: "FR", CurrencyCode: "EUR", IsActive: false, IsDefault: true},
		{ID: 6, Name: "Germany", CountryCode: "DE", CurrencyCode: "EUR", IsActive: true},
		{ID: 7, Name: "Spain", CountryCode: "ES", CurrencyCode: "EUR", IsActive: true},
	}

	r := newTestResolver(&fakeCatalog{list: list}, nil, nil, kv.NewMemoryStore())

	st, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), st.Marketplace.ID)
}

func TestResolve_UnmatchedCountry_UsesDefaultNotCache(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, NewStore(store).SaveDetectedCountry(ctx, model.DetectedLocation{Country: "Spain", CountryCode: "ES"}))

	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(madrid(), nil)
	geo := new(MockGeocoder)
	geo.On("Reverse", mock.Anything, mock.Anything, mock.Anything).
		Return(model.DetectedLocation{Country: "Japan", CountryCode: "JP"}, nil)

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, geo, store)

	st, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Marketplace.ID)

	// 新しい検出で上書きされる
	det, err := NewStore(store).DetectedCountry(ctx)
	require.NoError(t, err)
	assert.Equal(t, "JP", det.CountryCode)
}

func TestResolve_DetectionFails_UsesCachedCountry(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, NewStore(store).SaveDetectedCountry(ctx, model.DetectedLocation{Country: "Spain", CountryCode: "ES"}))

	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(madrid(), nil)
	geo := new(MockGeocoder)
	geo.On("Reverse", mock.Anything, mock.Anything, mock.Anything).
		Return(model.DetectedLocation{}, errors.New("429 too many requests"))

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, geo, store)

	st, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Marketplace.ID)
	require.NotNil(t, st.Detected)
	assert.Equal(t, "ES", st.Detected.CountryCode)
}

func TestResolve_GeocoderGarbageCode_FallsThrough(t *testing.T) {
	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(madrid(), nil)
	geo := new(MockGeocoder)
	geo.On("Reverse", mock.Anything, mock.Anything, mock.Anything).
		Return(model.DetectedLocation{Country: "?", CountryCode: "XYZ"}, nil)

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, geo, kv.NewMemoryStore())

	st, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Marketplace.ID)
	assert.Nil(t, st.Detected)
}

func TestResolve_GeolocationTimeout_FallsThrough(t *testing.T) {
	geo := new(MockGeocoder)

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, blockingLocator{}, geo, kv.NewMemoryStore())

	start := time.Now()
	st, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int64(1), st.Marketplace.ID)
	geo.AssertNotCalled(t, "Reverse", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_EmptyCatalog_IsUnavailable(t *testing.T) {
	r := newTestResolver(&fakeCatalog{list: []model.Marketplace{}}, nil, nil, kv.NewMemoryStore())

	st, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Nil(t, st.Marketplace)
	assert.ErrorIs(t, st.Err, ErrCatalogUnavailable)
}

func TestResolve_CatalogFetchFails_IsUnavailable(t *testing.T) {
	fetchErr := errors.New("connection refused")
	r := newTestResolver(&fakeCatalog{err: fetchErr}, nil, nil, kv.NewMemoryStore())

	st, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.ErrorIs(t, st.CatalogErr, fetchErr)
	assert.Empty(t, st.Catalog)
	assert.Nil(t, st.Marketplace)
}

func TestResolve_OnlyInactive_IsUnavailable(t *testing.T) {
	list := []model.Marketplace{{ID: 3, Name: "United Kingdom", CountryCode: "GB", IsActive: false, IsDefault: true}}
	r := newTestResolver(&fakeCatalog{list: list}, nil, nil, kv.NewMemoryStore())

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

// =====================
// Refresh / SetManually / Start
// =====================

func TestRefresh_ThenResolve_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	loc := new(MockLocator)
	loc.On("CurrentPosition", mock.Anything, mock.Anything).Return(madrid(), nil)
	geo := new(MockGeocoder)
	geo.On("Reverse", mock.Anything, mock.Anything, mock.Anything).
		Return(model.DetectedLocation{Country: "Spain", CountryCode: "ES"}, nil)

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, loc, geo, kv.NewMemoryStore())

	first, err := r.Resolve(ctx)
	require.NoError(t, err)

	refreshed, err := r.Refresh(ctx)
	require.NoError(t, err)
	again, err := r.Resolve(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Marketplace.ID, refreshed.Marketplace.ID)
	assert.Equal(t, first.Marketplace.ID, again.Marketplace.ID)
}

func TestRefresh_ClearsStoredState(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := NewStore(store)
	require.NoError(t, s.SaveDetectedCountry(ctx, model.DetectedLocation{Country: "Spain", CountryCode: "ES"}))
	require.NoError(t, s.SaveMarketplace(ctx, sampleCatalog()[1]))

	// 位置が取れないので検出国のキャッシュが消えていれば既定に戻る
	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, nil, nil, store)

	st, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Marketplace.ID)
	_, err = s.DetectedCountry(ctx)
	assert.Error(t, err)
}

func TestSetManually_PersistsAndSurvivesStart(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	cat := &fakeCatalog{list: sampleCatalog()}

	r := newTestResolver(cat, nil, nil, store)
	_, err := r.Resolve(ctx)
	require.NoError(t, err)

	require.NoError(t, r.SetManually(ctx, sampleCatalog()[1]))
	assert.Equal(t, int64(2), r.State().Marketplace.ID)

	// 次のセッション
	loc := new(MockLocator)
	next := newTestResolver(cat, loc, new(MockGeocoder), store)
	st, err := next.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Marketplace.ID)
	next.Wait()

	loc.AssertNotCalled(t, "CurrentPosition", mock.Anything, mock.Anything)
}

func TestStart_StoredMarketplace_RefreshesCatalogInBackground(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, NewStore(store).SaveMarketplace(ctx, sampleCatalog()[1]))

	cat := &fakeCatalog{list: sampleCatalog()}
	r := newTestResolver(cat, nil, nil, store)

	st, err := r.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Spain", st.Marketplace.Name)

	r.Wait()
	assert.Equal(t, 1, cat.calls)
	assert.Len(t, r.State().Catalog, 3)
	assert.Equal(t, "Spain", r.State().Marketplace.Name)
}

// 1回目の取得は release が閉じるまで返さない
type gatedCatalog struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	first   []model.Marketplace
	later   []model.Marketplace
}

func (g *gatedCatalog) List(ctx context.Context) ([]model.Marketplace, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()

	if n == 1 {
		<-g.release
		return g.first, nil
	}
	return g.later, nil
}

func TestStart_SlowBackgroundRefreshDoesNotOverwriteResolve(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, NewStore(store).SaveMarketplace(ctx, sampleCatalog()[1]))

	cat := &gatedCatalog{
		release: make(chan struct{}),
		first:   sampleCatalog()[:1],
		later:   sampleCatalog(),
	}
	r := newTestResolver(cat, nil, nil, store)

	_, err := r.Start(ctx)
	require.NoError(t, err)

	// バックグラウンド取得が先に List に入るまで待つ
	require.Eventually(t, func() bool {
		cat.mu.Lock()
		defer cat.mu.Unlock()
		return cat.calls == 1
	}, time.Second, 5*time.Millisecond)

	st, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Catalog, 3)

	close(cat.release)
	r.Wait()

	assert.Len(t, r.State().Catalog, 3)
}

func TestStart_CorruptStoredMarketplace_Resolves(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, SelectedKey, "{not json"))

	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, nil, nil, store)

	st, err := r.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Marketplace.ID)
}

func TestState_IsSnapshot(t *testing.T) {
	r := newTestResolver(&fakeCatalog{list: sampleCatalog()}, nil, nil, kv.NewMemoryStore())
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	st := r.State()
	st.Marketplace.Name = "changed"
	st.Catalog[0].Name = "changed"

	assert.Equal(t, "Romania", r.State().Marketplace.Name)
	assert.Equal(t, "Romania", r.State().Catalog[0].Name)
}
