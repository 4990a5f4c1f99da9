package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/storefront/internal/domain"
)

func TestOrderGetByID_NotFound(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders`")).
		WithArgs("ghost", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByID(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderGetByTrackingCode_Empty(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewOrderRepository(gormDB)

	// Неизвестная накладная — пустой список, не ошибка
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE tracking_code = ?")).
		WithArgs("DT-UNKNOWN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	orders, err := repo.GetByTrackingCode(context.Background(), "DT-UNKNOWN")

	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateShippingCost(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewOrderRepository(gormDB)

	// Итог пересчитывается выражением в БД одним UPDATE
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateShippingCost(context.Background(), "order-1", 200)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateShippingCost_NotFound(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateShippingCost(context.Background(), "ghost", 200)

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
