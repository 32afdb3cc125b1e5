package seed

import (
	"testing"

	appModels "github.com/schoolguidance/tracker/internal/app/models"
	"github.com/stretchr/testify/assert"
)

func TestViolationCatalogCoversEveryCategoryOnce(t *testing.T) {
	seen := map[string]int{}
	names := map[string]bool{}
	for _, vt := range ViolationCatalog {
		seen[vt.Category]++
		assert.False(t, names[vt.Name], "duplicate name %q", vt.Name)
		names[vt.Name] = true
		assert.NotEmpty(t, vt.Description)
	}

	assert.Len(t, seen, len(appModels.Categories))
	for _, category := range appModels.Categories {
		assert.Equal(t, 1, seen[category], category)
	}
}
