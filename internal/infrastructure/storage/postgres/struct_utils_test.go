package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
)

type mockCatalog struct {
	entity.BaseCatalog
	SKU  string  `db:"sku" json:"sku"`
	Name string  `db:"name" json:"name"`
	Memo *string `db:"memo" json:"memo,omitempty"`
}

func TestExtractDBColumns_EmbeddedFields(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expected := []string{"id", "version", "created_at", "updated_at", "sku", "name", "memo"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
}

func TestStructToMap_EmbeddedFields(t *testing.T) {
	now := time.Now().UTC()
	memo := "note"
	cat := mockCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:      id.New(),
				Version: 5,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		SKU:  "RICE-5KG",
		Name: "Basmati Rice 5kg",
		Memo: &memo,
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "RICE-5KG", m["sku"])
	assert.Equal(t, "Basmati Rice 5kg", m["name"])
	assert.Equal(t, &memo, m["memo"])
}

func TestStructToMap_SkipsUntaggedFields(t *testing.T) {
	type withUntagged struct {
		Name   string `db:"name"`
		Hidden string
	}

	m := StructToMap(withUntagged{Name: "x", Hidden: "y"})

	assert.Equal(t, "x", m["name"])
	_, ok := m["Hidden"]
	assert.False(t, ok)
}
