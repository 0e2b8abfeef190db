package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmarket/internal/models"
)

var categoryFields = []string{"id", "name", "slug", "description", "color", "created_at"}

func newMockCategoryStore(t *testing.T) (*CategoryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCategoryStore(db), mock
}

func TestCategoryStoreCreate_DerivesSlug(t *testing.T) {
	s, mock := newMockCategoryStore(t)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Data & Analytics", "data-analytics", "Dashboards", "#10b981").
		WillReturnRows(sqlmock.NewRows(categoryFields).
			AddRow(id.String(), "Data & Analytics", "data-analytics", "Dashboards", "#10b981", time.Now()))

	c, err := s.Create(context.Background(), &models.Category{Name: "Data & Analytics", Description: "Dashboards", Color: "#10b981"})
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "data-analytics", c.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryStoreCreate_RejectsBadSlug(t *testing.T) {
	s, mock := newMockCategoryStore(t)

	_, err := s.Create(context.Background(), &models.Category{Name: "Marketing", Slug: "Marketing Tools"})
	assert.ErrorIs(t, err, ErrInvalidSlug)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query should run")
}

func TestCategoryStoreFindBySlug_NotFound(t *testing.T) {
	s, mock := newMockCategoryStore(t)

	mock.ExpectQuery(`FROM categories WHERE slug = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(categoryFields))

	c, err := s.FindBySlug(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCategoryStoreCreate_DuplicateSlug(t *testing.T) {
	s, mock := newMockCategoryStore(t)

	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Finance", "finance", "", "#10b981").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	_, err := s.Create(context.Background(), &models.Category{Name: "Finance", Color: "#10b981"})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestCategoryStoreDelete(t *testing.T) {
	id := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		s, mock := newMockCategoryStore(t)
		mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, s.Delete(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		s, mock := newMockCategoryStore(t)
		mock.ExpectExec(`DELETE FROM categories`).WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, s.Delete(context.Background(), id), ErrCategoryNotFound)
	})

	t.Run("still referenced", func(t *testing.T) {
		s, mock := newMockCategoryStore(t)
		mock.ExpectExec(`DELETE FROM categories`).WithArgs(id).
			WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
		assert.ErrorIs(t, s.Delete(context.Background(), id), ErrCategoryInUse)
	})
}
