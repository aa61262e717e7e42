package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
)

type sampleRow struct {
	entity.BaseEntity
	Name     string   `db:"name" json:"name"`
	Lines    []string `db:"-" json:"lines"`
	Computed int      `json:"computed"`
}

func TestExtractDBColumns_EmbeddedBase(t *testing.T) {
	cols := ExtractDBColumns[sampleRow]()

	assert.Equal(t, []string{"id", "version", "created_at", "updated_at", "name"}, cols)
	assert.Equal(t, cols, ExtractDBColumns[*sampleRow]())
}

func TestStructToMap_IncludesEmbeddedFields(t *testing.T) {
	now := time.Now().UTC()
	row := sampleRow{
		BaseEntity: entity.BaseEntity{ID: id.New(), Version: 5, CreatedAt: now, UpdatedAt: now},
		Name:       "Hammer",
		Lines:      []string{"ignored"},
		Computed:   7,
	}

	m := StructToMap(&row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "Hammer", m["name"])
	assert.NotContains(t, m, "lines")
	assert.Len(t, m, 5)
}

func TestColumnMap_FiltersAndExcludes(t *testing.T) {
	row := sampleRow{BaseEntity: entity.NewBaseEntity(), Name: "Saw"}

	m := ColumnMap(row, []string{"id", "version", "name"}, "version")

	assert.Equal(t, map[string]any{"id": row.ID, "name": "Saw"}, m)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
