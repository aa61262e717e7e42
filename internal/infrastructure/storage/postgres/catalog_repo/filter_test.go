package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/filter"
)

func newTestRepo() *BaseCatalogRepo[any] {
	return NewBaseCatalogRepo[any](nil, "test_table", "test", []string{"id", "name", "col1"}, func() any { return nil })
}

func TestApplyAdvancedFilters_Operators(t *testing.T) {
	repo := newTestRepo()

	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "Greater",
			item:     filter.Item{Field: "col1", Operator: filter.Greater, Value: 10},
			wantSQL:  "SELECT id, name, col1 FROM test_table WHERE col1 > $1",
			wantArgs: []any{10},
		},
		{
			name:     "Less",
			item:     filter.Item{Field: "col1", Operator: filter.Less, Value: 5},
			wantSQL:  "SELECT id, name, col1 FROM test_table WHERE col1 < $1",
			wantArgs: []any{5},
		},
		{
			name:     "Contains",
			item:     filter.Item{Field: "name", Operator: filter.Contains, Value: "bolt"},
			wantSQL:  "SELECT id, name, col1 FROM test_table WHERE name ILIKE $1",
			wantArgs: []any{"%bolt%"},
		},
		{
			name:    "IsNull",
			item:    filter.Item{Field: "col1", Operator: filter.IsNull},
			wantSQL: "SELECT id, name, col1 FROM test_table WHERE col1 IS NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.applyAdvancedFilters(repo.baseSelect(), []filter.Item{tt.item})
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if len(tt.wantArgs) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestApplyAdvancedFilters_RejectsUnknownColumn(t *testing.T) {
	repo := newTestRepo()

	_, err := repo.applyAdvancedFilters(repo.baseSelect(), []filter.Item{
		{Field: "password; DROP TABLE x", Operator: filter.Equal, Value: 1},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestParseOrderBy(t *testing.T) {
	repo := newTestRepo()

	got, err := repo.parseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, "name ASC", got)

	got, err = repo.parseOrderBy("-col1")
	require.NoError(t, err)
	assert.Equal(t, "col1 DESC", got)

	got, err = repo.parseOrderBy("+name")
	require.NoError(t, err)
	assert.Equal(t, "name ASC", got)

	_, err = repo.parseOrderBy("secret")
	assert.True(t, apperror.IsValidation(err))

	_, err = repo.parseOrderBy("-")
	assert.True(t, apperror.IsValidation(err))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}
