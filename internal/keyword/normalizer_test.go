package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/docstore/internal/models"
)

func TestNormalize_Text(t *testing.T) {
	got, ok := Normalize(models.NewTextDocument("d1", "Hello WORLD", nil))
	assert.True(t, ok)
	assert.Equal(t, "hello world", got)
}

func TestNormalize_Table(t *testing.T) {
	table := models.NewTable([]string{"Name", "City"},
		[]string{"Ada", "London"},
		[]string{"Grace", "New York, NY"},
	)
	got, ok := Normalize(models.NewTableDocument("t1", table, nil))
	assert.True(t, ok)
	assert.Equal(t, "name,city\nada,london\ngrace,\"new york, ny\"\n", got)

	again, _ := Normalize(models.NewTableDocument("t1", table.Clone(), nil))
	assert.Equal(t, got, again, "table surrogate must be deterministic")
}

func TestNormalize_NotScorable(t *testing.T) {
	_, ok := Normalize(&models.Document{ID: "img", Content: "s3://bucket/cat.png", ContentType: models.ContentTypeImage})
	assert.False(t, ok)

	_, ok = Normalize(&models.Document{ID: "t", ContentType: models.ContentTypeTable})
	assert.False(t, ok, "table document without a table")
}
