// Package repository содержит unit тесты репозиториев на sqlmock.
package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/storefront/internal/domain"
)

// setupMockDB создаёт мок базы данных с GORM.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Ошибка создания sqlmock")

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Ошибка инициализации GORM")

	return gormDB, mock, func() { _ = db.Close() }
}

func TestCouponGetByCode(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "code", "type", "value", "max_discount", "min_order",
		"start_date", "expires_at", "usage_limit", "used_count", "is_active", "created_at",
	}).AddRow("coupon-1", "DASHAIN10", "PERCENTAGE", 10.0, 50.0, 0.0,
		now.Add(-time.Hour), now.Add(time.Hour), nil, 3, true, now)

	// Поиск без учёта регистра
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `coupons` WHERE LOWER(code) = LOWER(?)")).
		WithArgs("dashain10", 1).
		WillReturnRows(rows)

	coupon, err := repo.GetByCode(context.Background(), "dashain10")

	require.NoError(t, err)
	assert.Equal(t, "DASHAIN10", coupon.Code)
	assert.Equal(t, domain.CouponTypePercentage, coupon.Type)
	require.NotNil(t, coupon.MaxDiscount)
	assert.Equal(t, 50.0, *coupon.MaxDiscount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponGetByCode_NotFound(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `coupons`")).
		WithArgs("NOPE", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByCode(context.Background(), "NOPE")

	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponIncrementUsage(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)

	// Атомарный инкремент выражением в БД
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `coupons` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.IncrementUsage(context.Background(), "coupon-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponIncrementUsage_NotFound(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `coupons` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.IncrementUsage(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
