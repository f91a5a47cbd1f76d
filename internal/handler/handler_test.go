package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eatoff/internal/config"
	"eatoff/internal/domain/model"
	"eatoff/internal/handler"
	"eatoff/internal/imagecache"
	"eatoff/internal/infra/kv"
	"eatoff/internal/repository"
	"eatoff/internal/token"
	"eatoff/internal/usecase"
	"eatoff/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

var cfg = config.Config{JWTSecret: secret}

// =====================
// Mocks
// =====================

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepo) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fakeMenu map[int64]model.MenuItem

func (f fakeMenu) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	item, ok := f[id]
	if !ok {
		return model.MenuItem{}, repository.ErrNotFound
	}
	return item, nil
}

func (f fakeMenu) ListByRestaurantID(ctx context.Context, restaurantID int64) ([]model.MenuItem, error) {
	var out []model.MenuItem
	for _, it := range f {
		if it.RestaurantID == restaurantID {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeMarketplaces []model.Marketplace

func (f fakeMarketplaces) List(ctx context.Context) ([]model.Marketplace, error) {
	return f, nil
}

func (f fakeMarketplaces) FindByID(ctx context.Context, id int64) (model.Marketplace, error) {
	for _, m := range f {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Marketplace{}, repository.ErrNotFound
}

// =====================
// helper
// =====================

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetLevel(log.OFF)
	return l
}

func testMenu() fakeMenu {
	return fakeMenu{
		1: {ID: 1, RestaurantID: 10, Restaurant: model.Restaurant{ID: 10, Name: "Casa A", IsActive: true}, Name: "Ciorba", Price: 1800, IsAvailable: true},
		2: {ID: 2, RestaurantID: 20, Restaurant: model.Restaurant{ID: 20, Name: "Bistro B", IsActive: true}, Name: "Paella", Price: 3200, IsAvailable: true},
	}
}

func activeUsers() *MockUserRepo {
	users := new(MockUserRepo)
	users.On("FindByID", mock.Anything, mock.AnythingOfType("int64")).Return(&model.User{ID: 7, TokenVersion: 0, IsActive: true}, nil)
	return users
}

func newCartServer(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	uc := usecase.NewCartUsecase(testMenu(), kv.NewMemoryStore(), nil, quietLogger())
	handler.NewCartHandler(uc).RegisterRoutes(e, cfg, activeUsers())
	return e
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	s, _, err := token.NewIssuer(secret, time.Hour).Issue(&model.User{ID: userID, Role: model.RoleUser}, time.Now())
	require.NoError(t, err)
	return "Bearer " + s
}

func do(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// =====================
// /cart
// =====================

func TestCart_AnonymousGetIsEmpty(t *testing.T) {
	e := newCartServer(t)

	rec := do(e, http.MethodGet, "/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[usecase.CartResponse](t, rec)
	assert.Empty(t, body.Items)
	assert.Equal(t, int64(0), body.Total)
}

func TestCart_AnonymousMutationsRequireSignIn(t *testing.T) {
	e := newCartServer(t)

	rec := do(e, http.MethodPost, "/cart/items", "", `{"menu_item_id":1,"quantity":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "sign in required", decode[handler.ErrorResponse](t, rec).Error)

	rec = do(e, http.MethodDelete, "/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_SwitchRequiredThenConfirm(t *testing.T) {
	e := newCartServer(t)
	auth := bearer(t, 7)

	rec := do(e, http.MethodPost, "/cart/items", auth, `{"menu_item_id":1,"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	added := decode[usecase.AddCartItemResponse](t, rec)
	assert.Equal(t, "ok", added.Status)
	assert.Equal(t, int64(3600), added.Cart.Total)

	rec = do(e, http.MethodPost, "/cart/items", auth, `{"menu_item_id":2,"quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	sw := decode[usecase.AddCartItemResponse](t, rec)
	assert.Equal(t, "switch_required", sw.Status)
	require.NotNil(t, sw.Pending)
	assert.Equal(t, "Casa A", sw.Pending.CurrentRestaurantName)
	assert.Equal(t, "Bistro B", sw.Pending.RestaurantName)
	assert.Equal(t, int64(10), sw.Cart.RestaurantID)

	rec = do(e, http.MethodPost, "/cart/switch/"+sw.Pending.ID+"/confirm", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[usecase.CartResponse](t, rec)
	assert.Equal(t, int64(20), c.RestaurantID)
	assert.Equal(t, "Bistro B", c.RestaurantName)
	assert.Equal(t, int64(1), c.TotalItems)
}

func TestCart_SwitchCancelKeepsCart(t *testing.T) {
	e := newCartServer(t)
	auth := bearer(t, 7)

	rec := do(e, http.MethodPost, "/cart/items", auth, `{"menu_item_id":1,"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	before := do(e, http.MethodGet, "/cart", auth, "").Body.String()

	rec = do(e, http.MethodPost, "/cart/items", auth, `{"menu_item_id":2,"quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	sw := decode[usecase.AddCartItemResponse](t, rec)

	rec = do(e, http.MethodPost, "/cart/switch/"+sw.Pending.ID+"/cancel", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)

	after := do(e, http.MethodGet, "/cart", auth, "").Body.String()
	assert.Equal(t, before, after)
}

func TestCart_PatchAndDelete(t *testing.T) {
	e := newCartServer(t)
	auth := bearer(t, 7)

	rec := do(e, http.MethodPost, "/cart/items", auth, `{"menu_item_id":1,"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPatch, "/cart/items/1", auth, `{"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[usecase.CartResponse](t, rec).TotalItems)

	rec = do(e, http.MethodPatch, "/cart/items/1", auth, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPatch, "/cart/items/abc", auth, `{"quantity":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodDelete, "/cart/items/1", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[usecase.CartResponse](t, rec)
	assert.Empty(t, c.Items)
	assert.Equal(t, int64(0), c.RestaurantID)

	rec = do(e, http.MethodDelete, "/cart/items/1", auth, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_UnknownMenuItem(t *testing.T) {
	e := newCartServer(t)

	rec := do(e, http.MethodPost, "/cart/items", bearer(t, 7), `{"menu_item_id":99,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =====================
// /marketplaces
// =====================

func TestMarketplaces_List(t *testing.T) {
	e := echo.New()
	mps := fakeMarketplaces{
		{ID: 1, Name: "Romania", Country: "Romania", CountryCode: "RO", CurrencyCode: "RON", CurrencySymbol: "Lei", IsActive: true, IsDefault: true},
		{ID: 2, Name: "Spain", Country: "Spain", CountryCode: "ES", CurrencyCode: "EUR", CurrencySymbol: "€", IsActive: true},
	}
	handler.NewMarketplaceHandler(usecase.NewMarketplaceUsecase(mps, testMenu())).RegisterRoutes(e)

	rec := do(e, http.MethodGet, "/marketplaces", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Marketplace](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "RO", list[0].CountryCode)
	assert.Contains(t, rec.Body.String(), `"currency_code":"RON"`)

	rec = do(e, http.MethodGet, "/marketplaces/2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spain", decode[model.Marketplace](t, rec).Name)

	rec = do(e, http.MethodGet, "/marketplaces/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/restaurants/10/menu", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.MenuItem](t, rec), 1)
}

// =====================
// /auth
// =====================

func TestAuth_RegisterValidation(t *testing.T) {
	e := echo.New()
	users := new(MockUserRepo)
	users.On("FindByEmail", mock.Anything, "taken@test.com").Return(&model.User{ID: 1}, nil)
	uc := usecase.NewAuthUsecase(cfg, users, validator.NewAuthValidator(users))
	handler.NewAuthHandler(uc).RegisterRoutes(e, cfg, users)

	rec := do(e, http.MethodPost, "/auth/register", "", `{"email":"nope","password":"12345678"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/auth/register", "", `{"email":"taken@test.com","password":"12345678"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuth_RegisterCreated(t *testing.T) {
	e := echo.New()
	users := new(MockUserRepo)
	users.On("FindByEmail", mock.Anything, "new@test.com").Return(nil, repository.ErrNotFound)
	users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
	uc := usecase.NewAuthUsecase(cfg, users, validator.NewAuthValidator(users))
	handler.NewAuthHandler(uc).RegisterRoutes(e, cfg, users)

	rec := do(e, http.MethodPost, "/auth/register", "", `{"email":"New@test.com","password":"12345678","first_name":"Ioana"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decode[usecase.UserDTO](t, rec)
	assert.Equal(t, "new@test.com", out.Email)
	assert.Equal(t, "Ioana", out.Name)
	// パスワードハッシュは返さない
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuth_LogoutBumpsVersion(t *testing.T) {
	e := echo.New()
	users := activeUsers()
	users.On("IncrementTokenVersion", mock.Anything, int64(7)).Return(nil).Once()
	uc := usecase.NewAuthUsecase(cfg, users, validator.NewAuthValidator(users))
	handler.NewAuthHandler(uc).RegisterRoutes(e, cfg, users)

	rec := do(e, http.MethodPost, "/auth/logout", bearer(t, 7), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	users.AssertExpectations(t)
}

// =====================
// /images
// =====================

type stubLoader struct{}

func (stubLoader) Load(ctx context.Context, src string) (imagecache.Image, error) {
	if strings.Contains(src, "broken") {
		return imagecache.Image{}, errors.New("404")
	}
	return imagecache.Image{Data: []byte("webp-bytes"), ContentType: "image/webp"}, nil
}

func TestImages_Get(t *testing.T) {
	cache, err := imagecache.New(stubLoader{}, 4, quietLogger())
	require.NoError(t, err)
	e := echo.New()
	handler.NewImageHandler(usecase.NewImageUsecase(cache, []string{"images.unsplash.com", "cdn.example.com"})).RegisterRoutes(e)

	rec := do(e, http.MethodGet, "/images?src=https://images.unsplash.com/photo-1&w=100&h=100", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "webp-bytes", rec.Body.String())

	rec = do(e, http.MethodGet, "/images?src=https://cdn.example.com/broken.png", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(e, http.MethodGet, "/images?src=https://cdn.example.com/broken.png&name=Casa", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))

	rec = do(e, http.MethodGet, "/images?src=https://cdn.example.com/a.png&w=wide", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/images?src=http://169.254.169.254/latest/meta-data/x.png", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/images/preload", "", `{"srcs":["https://cdn.example.com/a.png","https://cdn.example.com/broken.png","http://127.0.0.1:6379/"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.PreloadImagesResponse{Requested: 3, Failed: 2}, decode[handler.PreloadImagesResponse](t, rec))
}
