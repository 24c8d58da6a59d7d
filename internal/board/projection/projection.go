// Package projection shapes board records into read models for clients.
package projection

import (
	"sort"

	"github.com/orba/jobtracker/internal/board/domain"
)

// Column is one pipeline stage with its applications in creation order.
type Column struct {
	Stage domain.Stage
	Count int
	Cards []domain.Application
}

// GroupByStage buckets records into one column per pipeline stage, in
// pipeline order. Stages with no records still produce an empty column so the
// board layout is stable. Records carrying a stage outside the pipeline are
// dropped from the projection.
func GroupByStage(records []domain.Application) []Column {
	byStage := make(map[domain.Stage][]domain.Application, len(domain.Stages()))
	for _, app := range records {
		if !domain.IsValidStage(app.Status) {
			continue
		}
		byStage[app.Status] = append(byStage[app.Status], app)
	}

	columns := make([]Column, 0, len(domain.Stages()))
	for _, stage := range domain.Stages() {
		cards := byStage[stage]
		sort.Slice(cards, func(i, j int) bool {
			if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
				return cards[i].CreatedAt.Before(cards[j].CreatedAt)
			}
			return cards[i].ID < cards[j].ID
		})
		if cards == nil {
			cards = []domain.Application{}
		}
		columns = append(columns, Column{Stage: stage, Count: len(cards), Cards: cards})
	}
	return columns
}
