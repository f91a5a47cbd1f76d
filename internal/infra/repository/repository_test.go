package repository_test

import (
	"context"
	"testing"
	"time"

	"eatoff/internal/domain/model"
	infraRepo "eatoff/internal/infra/repository"
	repo "eatoff/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

var marketplaceColumns = []string{
	"id", "name", "country", "country_code", "currency_code", "currency_symbol",
	"is_active", "is_default", "created_at", "updated_at",
}

// =====================
// Marketplace
// =====================

func TestMarketplaceGormRepository_List_KeepsInactive(t *testing.T) {
	gormDB, mock := newMockDB(t)
	now := time.Now()

	rows := sqlmock.NewRows(marketplaceColumns).
		AddRow(1, "Romania", "Romania", "RO", "RON", "Lei", true, true, now, now).
		AddRow(4, "United Kingdom", "United Kingdom", "GB", "GBP", "£", false, false, now, now)
	mock.ExpectQuery(`SELECT \* FROM "marketplaces" ORDER BY id asc`).WillReturnRows(rows)

	list, err := infraRepo.NewMarketplaceGormRepository(gormDB).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "RO", list[0].CountryCode)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarketplaceGormRepository_FindByID_NotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "marketplaces" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(marketplaceColumns))

	_, err := infraRepo.NewMarketplaceGormRepository(gormDB).FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

// =====================
// CartEvent
// =====================

func TestCartEventGormRepository_List_Filters(t *testing.T) {
	gormDB, mock := newMockDB(t)
	uid := int64(7)
	action := model.CartActionSwitchRequested

	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "restaurant_id", "menu_item_id", "quantity", "pending_id", "cart_json", "created_at"}).
		AddRow("e-1", 7, "SWITCH_REQUESTED", 2, 10, 1, "p-1", `{}`, time.Now())
	mock.ExpectQuery(`SELECT \* FROM "cart_events" WHERE user_id = \$1 AND action = \$2 ORDER BY created_at DESC LIMIT`).
		WillReturnRows(rows)

	events, err := infraRepo.NewCartEventGormRepository(gormDB).List(context.Background(), repo.CartEventFilter{
		UserID: &uid,
		Action: &action,
		Limit:  20,
		Offset: 40,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "p-1", events[0].PendingID)
	assert.Equal(t, model.CartActionSwitchRequested, events[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =====================
// User
// =====================

func TestUserGormRepository_FindByEmail_NotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	u, err := infraRepo.NewUserGormRepository(gormDB).FindByEmail(context.Background(), "ghost@test.com")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUserGormRepository_IncrementTokenVersion(t *testing.T) {
	gormDB, mock := newMockDB(t)
	users := infraRepo.NewUserGormRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "token_version"=token_version`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, users.IncrementTokenVersion(context.Background(), 7))

	// 対象が無ければ ErrNotFound
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "token_version"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	assert.ErrorIs(t, users.IncrementTokenVersion(context.Background(), 99), repo.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
