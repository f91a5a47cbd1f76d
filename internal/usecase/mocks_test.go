package usecase_test

import (
	"context"
	"time"

	"eatoff/internal/domain/model"
	"eatoff/internal/repository"
	"eatoff/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, req usecase.AuthRegisterRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

// =====================
// Mock: MenuItemRepository
// =====================

type MockMenuItemRepository struct {
	mock.Mock
}

func (m *MockMenuItemRepository) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(model.MenuItem)
	return item, args.Error(1)
}

func (m *MockMenuItemRepository) ListByRestaurantID(ctx context.Context, restaurantID int64) ([]model.MenuItem, error) {
	args := m.Called(ctx, restaurantID)
	items, _ := args.Get(0).([]model.MenuItem)
	return items, args.Error(1)
}

var _ repository.MenuItemRepository = (*MockMenuItemRepository)(nil)

// =====================
// Mock: CartEventRepository
// =====================

type MockCartEventRepository struct {
	mock.Mock
}

func (m *MockCartEventRepository) Emit(ctx context.Context, ev model.CartEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockCartEventRepository) List(ctx context.Context, filter repository.CartEventFilter) ([]model.CartEvent, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]model.CartEvent)
	return items, args.Error(1)
}

var _ repository.CartEventRepository = (*MockCartEventRepository)(nil)

// =====================
// Mock: MarketplaceRepository
// =====================

type MockMarketplaceRepository struct {
	mock.Mock
}

func (m *MockMarketplaceRepository) List(ctx context.Context) ([]model.Marketplace, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Marketplace)
	return list, args.Error(1)
}

func (m *MockMarketplaceRepository) FindByID(ctx context.Context, id int64) (model.Marketplace, error) {
	args := m.Called(ctx, id)
	mp, _ := args.Get(0).(model.Marketplace)
	return mp, args.Error(1)
}

var _ repository.MarketplaceRepository = (*MockMarketplaceRepository)(nil)
