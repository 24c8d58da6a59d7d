package projection

import (
	"testing"
	"time"

	"github.com/orba/jobtracker/internal/board/domain"
)

func record(id string, stage domain.Stage, at time.Time) domain.Application {
	return domain.Application{
		ID:        id,
		Company:   "Acme",
		JobTitle:  "Engineer",
		Status:    stage,
		CreatedAt: at,
	}
}

func TestGroupByStage(t *testing.T) {
	now := time.Now()
	records := []domain.Application{
		record("b", domain.StageSubmitted, now.Add(time.Minute)),
		record("a", domain.StageSubmitted, now),
		record("c", domain.StageHRInterview, now),
		record("x", domain.Stage("Offer"), now),
	}

	columns := GroupByStage(records)

	stages := domain.Stages()
	if len(columns) != len(stages) {
		t.Fatalf("GroupByStage() returned %d columns, want %d", len(columns), len(stages))
	}
	for i, col := range columns {
		if col.Stage != stages[i] {
			t.Errorf("column %d stage = %q, want %q", i, col.Stage, stages[i])
		}
		if col.Cards == nil {
			t.Errorf("column %q has nil Cards, want empty slice", col.Stage)
		}
		if col.Count != len(col.Cards) {
			t.Errorf("column %q Count = %d, cards = %d", col.Stage, col.Count, len(col.Cards))
		}
	}

	submitted := columns[0]
	if submitted.Count != 2 || submitted.Cards[0].ID != "a" || submitted.Cards[1].ID != "b" {
		t.Errorf("submitted column = %+v, want [a, b] by creation time", submitted.Cards)
	}

	total := 0
	for _, col := range columns {
		total += col.Count
	}
	if total != 3 {
		t.Errorf("total projected cards = %d, want 3 (unknown stage dropped)", total)
	}
}

func TestGroupByStageEmpty(t *testing.T) {
	columns := GroupByStage(nil)
	if len(columns) != len(domain.Stages()) {
		t.Fatalf("GroupByStage(nil) returned %d columns, want %d", len(columns), len(domain.Stages()))
	}
	for _, col := range columns {
		if col.Count != 0 || len(col.Cards) != 0 {
			t.Errorf("column %q not empty: %+v", col.Stage, col)
		}
	}
}
