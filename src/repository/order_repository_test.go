package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradeadmin/src/model"
)

func TestOrderRepositorySearch(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	createdAt := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		{Base: model.Base{ID: 1, CreatedAt: createdAt, UpdatedAt: createdAt}, UserID: 1, Symbol: "BTCUSDT", Status: model.OrderStatusFilled},
		{Base: model.Base{ID: 2, CreatedAt: createdAt.Add(24 * time.Hour), UpdatedAt: createdAt.Add(24 * time.Hour)}, UserID: 1, Symbol: "ETHUSDT", Status: model.OrderStatusNew},
		{Base: model.Base{ID: 3, CreatedAt: createdAt.Add(48 * time.Hour), UpdatedAt: createdAt.Add(48 * time.Hour)}, UserID: 2, Symbol: "SOLUSDT", Status: model.OrderStatusNew},
	}

	orderRows := func(returned ...model.Order) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{"id", "user_id", "symbol", "status", "created_at", "updated_at"})
		for _, order := range returned {
			rows.AddRow(order.ID, order.UserID, order.Symbol, order.Status, order.CreatedAt, order.UpdatedAt)
		}
		return rows
	}

	countRows := func(n int64) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"count"}).AddRow(n)
	}

	t.Run("filters by user", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE user_id = $1 AND "orders"."deleted_at" IS NULL`)).
			WithArgs(uint(1)).
			WillReturnRows(countRows(2))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1 AND "orders"."deleted_at" IS NULL ORDER BY created_at DESC, id DESC`)).
			WithArgs(uint(1)).
			WillReturnRows(orderRows(orders[1], orders[0]))

		results, total, err := repo.Search(context.Background(), OrderSearchOptions{UserID: 1})
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if total != 2 {
			t.Fatalf("expected total 2, got %d", total)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 orders for user 1, got %d", len(results))
		}
		if results[0].Symbol != "ETHUSDT" || results[1].Symbol != "BTCUSDT" {
			t.Fatalf("orders not returned in expected order: %+v", results)
		}
	})

	t.Run("filters by symbol and status", func(t *testing.T) {
		status := model.OrderStatusNew
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE user_id = $1 AND symbol = $2 AND status = $3 AND "orders"."deleted_at" IS NULL`)).
			WithArgs(uint(1), "ETHUSDT", status).
			WillReturnRows(countRows(1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1 AND symbol = $2 AND status = $3 AND "orders"."deleted_at" IS NULL ORDER BY created_at DESC, id DESC`)).
			WithArgs(uint(1), "ETHUSDT", status).
			WillReturnRows(orderRows(orders[1]))

		results, _, err := repo.Search(context.Background(), OrderSearchOptions{
			UserID: 1,
			Symbol: ptrString("ETHUSDT"),
			Status: &status,
		})
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 order for symbol filter, got %d", len(results))
		}
		if results[0].Symbol != "ETHUSDT" {
			t.Fatalf("unexpected order returned: %+v", results[0])
		}
	})

	t.Run("applies pagination", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE user_id = $1 AND "orders"."deleted_at" IS NULL`)).
			WithArgs(uint(1)).
			WillReturnRows(countRows(2))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1 AND "orders"."deleted_at" IS NULL ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`)).
			WithArgs(uint(1), 1, 1).
			WillReturnRows(orderRows(orders[0]))

		results, _, err := repo.Search(context.Background(), OrderSearchOptions{UserID: 1, Page: 2, Limit: 1})
		if err != nil {
			t.Fatalf("unexpected error searching orders: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 order for pagination, got %d", len(results))
		}
		if results[0].Symbol != "BTCUSDT" {
			t.Fatalf("unexpected paginated order: %+v", results[0])
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderRepositoryFindByExchangeIDNotFound(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_id = $1 AND "orders"."deleted_at" IS NULL ORDER BY "orders"."id" LIMIT $2`)).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.FindByExchangeID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected nil error for missing order, got %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil order, got %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func ptrString(val string) *string {
	return &val
}
