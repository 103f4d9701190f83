package generation

import (
	"sort"

	"github.com/target/mmk-genstudio/internal/domain/model"
)

// Pairing binds one provider item to the job at the same position.
type Pairing struct {
	Job  *model.GenerationJob
	Item model.ProviderItem
}

// Surplus is a provider item with no placeholder; a new job must be created for it.
type Surplus struct {
	VariantIndex int
	Item         model.ProviderItem
}

// FanOutPlan is the deterministic assignment of provider items to jobs.
type FanOutPlan struct {
	Pairs   []Pairing
	Surplus []Surplus
	// Unmatched lists jobs with no item at their position; they stay as they are.
	Unmatched []*model.GenerationJob
}

// PlanFanOut pairs items with the jobs of one group by position.
//
// Item i (0-based, in provider order) belongs to the job with variant index i+1.
// Placeholders occupy variant indexes 1..M, so for the initial poll this is plain
// positional pairing; surplus jobs created by earlier polls keep their slot on
// re-poll because their variant index encodes the item position. Every item
// beyond the known jobs becomes Surplus, pending or not, so variant indexes stay
// contiguous and a pending extra keeps the group in flight until it resolves.
func PlanFanOut(jobs []*model.GenerationJob, items []model.ProviderItem) FanOutPlan {
	byIndex := make(map[int]*model.GenerationJob, len(jobs))
	for _, j := range jobs {
		if _, dup := byIndex[j.VariantIndex]; !dup {
			byIndex[j.VariantIndex] = j
		}
	}

	var plan FanOutPlan
	paired := make(map[string]bool, len(jobs))
	for i, item := range items {
		idx := i + 1
		if job, ok := byIndex[idx]; ok {
			plan.Pairs = append(plan.Pairs, Pairing{Job: job, Item: item})
			paired[job.ID] = true
			continue
		}
		plan.Surplus = append(plan.Surplus, Surplus{VariantIndex: idx, Item: item})
	}

	for _, j := range jobs {
		if !paired[j.ID] {
			plan.Unmatched = append(plan.Unmatched, j)
		}
	}
	sort.SliceStable(plan.Unmatched, func(a, b int) bool {
		return plan.Unmatched[a].VariantIndex < plan.Unmatched[b].VariantIndex
	})
	return plan
}

// Template returns the job whose fields seed surplus jobs: the lowest variant index.
func Template(jobs []*model.GenerationJob) *model.GenerationJob {
	var tmpl *model.GenerationJob
	for _, j := range jobs {
		if tmpl == nil || j.VariantIndex < tmpl.VariantIndex {
			tmpl = j
		}
	}
	return tmpl
}

// DisplayName picks the name for a materialized item: the provider title,
// then the job's existing name, then the prompt.
func DisplayName(job *model.GenerationJob, item model.ProviderItem) string {
	if item.Title != "" {
		return item.Title
	}
	if job.DisplayName != "" {
		return job.DisplayName
	}
	if job.Attributes != nil {
		return model.DisplayNameFromPrompt(job.Attributes.Prompt())
	}
	return ""
}
