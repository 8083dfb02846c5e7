package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/store/memory"
	"github.com/warp/compliance-engine/training"
)

func TestParseCatalog_Default(t *testing.T) {
	f := factory.NewCatalogFactory()
	c, err := f.ParseCatalog(factory.DefaultCatalogJSON)
	require.NoError(t, err)

	assert.Len(t, c.Lookups, 4)
	assert.Len(t, c.LearningItems, 5)
}

func TestParseCatalog_Rejections(t *testing.T) {
	f := factory.NewCatalogFactory()

	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"lookups": [`},
		{"duplicate category", `{"lookups": [{"name": "A"}, {"name": "A"}]}`},
		{"duplicate value code", `{"lookups": [{"name": "A", "values": [{"code": "x", "name": "X"}, {"code": "x", "name": "Y"}]}]}`},
		{"bad frequency", `{"learning_items": [{"code": "I", "title": "T", "frequency": "hourly"}]}`},
		{"bad threshold", `{"learning_items": [{"code": "I", "title": "T", "quiz_pass_threshold": 120}]}`},
		{"duplicate item", `{"learning_items": [{"code": "I", "title": "T"}, {"code": "I", "title": "U"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseCatalog(tt.json)
			assert.Error(t, err)
		})
	}
}

func TestApply_IdempotentAndResolvable(t *testing.T) {
	// GIVEN: The default catalog
	// WHEN: Applying it twice for one tenant
	// THEN: Rows are upserted, not duplicated, and lookups resolve

	f := factory.NewCatalogFactory()
	c, err := f.ParseCatalog(factory.DefaultCatalogJSON)
	require.NoError(t, err)

	store := memory.New()
	ctx := context.Background()
	now := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	first, err := f.Apply(ctx, c, store, store, "acme", now)
	require.NoError(t, err)
	assert.Equal(t, factory.ApplySummary{Categories: 4, Values: 13, LearningItems: 5}, first)

	_, err = f.Apply(ctx, c, store, store, "acme", now)
	require.NoError(t, err)

	items, err := store.ListLearningItems(ctx, "acme", nil)
	require.NoError(t, err)
	assert.Len(t, items, 5)

	fs, err := store.GetLearningItem(ctx, "acme", factory.LearningItemID("acme", "FS-001"))
	require.NoError(t, err)
	require.NotNil(t, fs)
	assert.Equal(t, training.FrequencyAnnually, fs.Frequency)
	assert.Equal(t, 80, fs.QuizPassThreshold)

	values, err := lookup.NewEngine(store).ResolveEffectiveValues(ctx, "acme", lookup.CategoryTrainingCategory, false)
	require.NoError(t, err)
	assert.Len(t, values, 5)
}

func TestApply_NoTenantSkipsItems(t *testing.T) {
	f := factory.NewCatalogFactory()
	c, err := f.ParseCatalog(factory.DefaultCatalogJSON)
	require.NoError(t, err)

	store := memory.New()
	summary, err := f.Apply(context.Background(), c, store, store, "", time.Now())
	require.NoError(t, err)
	assert.Zero(t, summary.LearningItems)
}

func TestStableIDs(t *testing.T) {
	assert.Equal(t, factory.CategoryID("Language"), factory.CategoryID("Language"))
	assert.NotEqual(t, factory.ValueID("A", "x"), factory.ValueID("B", "x"))
	assert.NotEqual(t, factory.LearningItemID("acme", "FS-001"), factory.LearningItemID(generic.TenantID("beta"), "FS-001"))
}
