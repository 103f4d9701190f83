package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/domain/model"
)

func job(id string, idx int, status model.Status) *model.GenerationJob {
	return &model.GenerationJob{
		ID:           id,
		Kind:         model.KindMusic,
		Status:       status,
		GroupID:      "g1",
		VariantIndex: idx,
		Attributes:   model.MusicAttributes{PromptText: "lofi rain"},
	}
}

func complete(id string) model.ProviderItem {
	return model.ProviderItem{ItemID: id, AssetURL: "https://cdn.test/" + id, State: model.ItemComplete}
}

func TestPlanFanOut(t *testing.T) {
	t.Run("pairs positionally when counts match", func(t *testing.T) {
		jobs := []*model.GenerationJob{job("j2", 2, model.StatusGenerating), job("j1", 1, model.StatusGenerating)}
		plan := PlanFanOut(jobs, []model.ProviderItem{complete("a"), complete("b")})

		require.Len(t, plan.Pairs, 2)
		assert.Equal(t, "j1", plan.Pairs[0].Job.ID)
		assert.Equal(t, "a", plan.Pairs[0].Item.ItemID)
		assert.Equal(t, "j2", plan.Pairs[1].Job.ID)
		assert.Equal(t, "b", plan.Pairs[1].Item.ItemID)
		assert.Empty(t, plan.Surplus)
		assert.Empty(t, plan.Unmatched)
	})

	t.Run("surplus items get the next variant indexes", func(t *testing.T) {
		jobs := []*model.GenerationJob{job("j1", 1, model.StatusGenerating)}
		plan := PlanFanOut(jobs, []model.ProviderItem{complete("a"), complete("b"), complete("c")})

		require.Len(t, plan.Pairs, 1)
		require.Len(t, plan.Surplus, 2)
		assert.Equal(t, 2, plan.Surplus[0].VariantIndex)
		assert.Equal(t, "b", plan.Surplus[0].Item.ItemID)
		assert.Equal(t, 3, plan.Surplus[1].VariantIndex)
	})

	t.Run("pending surplus keeps its slot", func(t *testing.T) {
		jobs := []*model.GenerationJob{job("j1", 1, model.StatusGenerating)}
		plan := PlanFanOut(jobs, []model.ProviderItem{
			complete("a"),
			{ItemID: "b", State: model.ItemPending},
			complete("c"),
		})

		assert.Len(t, plan.Pairs, 1)
		require.Len(t, plan.Surplus, 2)
		assert.Equal(t, 2, plan.Surplus[0].VariantIndex)
		assert.Equal(t, model.ItemPending, plan.Surplus[0].Item.State)
		assert.Equal(t, 3, plan.Surplus[1].VariantIndex)
		assert.Equal(t, "c", plan.Surplus[1].Item.ItemID)
	})

	t.Run("later poll pairs a pending surplus job", func(t *testing.T) {
		jobs := []*model.GenerationJob{
			job("j1", 1, model.StatusCompleted),
			job("s2", 2, model.StatusGenerating),
			job("s3", 3, model.StatusCompleted),
		}
		plan := PlanFanOut(jobs, []model.ProviderItem{complete("a"), complete("b"), complete("c")})

		require.Len(t, plan.Pairs, 3)
		assert.Equal(t, "s2", plan.Pairs[1].Job.ID)
		assert.Equal(t, "b", plan.Pairs[1].Item.ItemID)
		assert.Empty(t, plan.Surplus)
	})

	t.Run("fewer items leave extra placeholders unmatched", func(t *testing.T) {
		jobs := []*model.GenerationJob{
			job("j1", 1, model.StatusGenerating),
			job("j2", 2, model.StatusGenerating),
			job("j3", 3, model.StatusGenerating),
		}
		plan := PlanFanOut(jobs, []model.ProviderItem{complete("a")})

		assert.Len(t, plan.Pairs, 1)
		require.Len(t, plan.Unmatched, 2)
		assert.Equal(t, "j2", plan.Unmatched[0].ID)
		assert.Equal(t, "j3", plan.Unmatched[1].ID)
	})

	t.Run("re-poll pairs earlier surplus jobs by slot", func(t *testing.T) {
		jobs := []*model.GenerationJob{
			job("j1", 1, model.StatusCompleted),
			job("s2", 2, model.StatusCompleted),
			job("s3", 3, model.StatusCompleted),
		}
		plan := PlanFanOut(jobs, []model.ProviderItem{complete("a"), complete("b"), complete("c")})

		require.Len(t, plan.Pairs, 3)
		assert.Equal(t, "s3", plan.Pairs[2].Job.ID)
		assert.Empty(t, plan.Surplus)
	})
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		jobs []*model.GenerationJob
		want model.CheckState
	}{
		{"empty group", nil, model.CheckStateProcessing},
		{"one in flight", []*model.GenerationJob{job("a", 1, model.StatusCompleted), job("b", 2, model.StatusGenerating)}, model.CheckStateProcessing},
		{"all completed", []*model.GenerationJob{job("a", 1, model.StatusCompleted)}, model.CheckStateCompleted},
		{"mixed terminal", []*model.GenerationJob{job("a", 1, model.StatusCompleted), job("b", 2, model.StatusFailed)}, model.CheckStateCompleted},
		{"all failed", []*model.GenerationJob{job("a", 1, model.StatusFailed)}, model.CheckStateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.jobs))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(model.StatusQueued, model.StatusGenerating))
	assert.True(t, CanTransition(model.StatusQueued, model.StatusFailed))
	assert.True(t, CanTransition(model.StatusGenerating, model.StatusCompleted))
	assert.False(t, CanTransition(model.StatusQueued, model.StatusCompleted))
	assert.False(t, CanTransition(model.StatusCompleted, model.StatusFailed))
	assert.False(t, CanTransition(model.StatusFailed, model.StatusGenerating))
}

func TestDisplayName(t *testing.T) {
	j := job("j1", 1, model.StatusGenerating)
	assert.Equal(t, "Rainy Day", DisplayName(j, model.ProviderItem{Title: "Rainy Day"}))
	assert.Equal(t, "lofi rain", DisplayName(j, model.ProviderItem{}))

	j.DisplayName = "My Track"
	assert.Equal(t, "My Track", DisplayName(j, model.ProviderItem{}))
}
