package domain

// Stage is a named step in the hiring pipeline.
type Stage string

const (
	// StageSubmitted is the initial stage for every new application.
	StageSubmitted Stage = "Submitted"
	// StageHomeAssignment marks a take-home assignment in progress.
	StageHomeAssignment Stage = "Home Assignment"
	// StageTechnicalInterview marks a scheduled or completed technical round.
	StageTechnicalInterview Stage = "Technical Interview"
	// StageHRInterview marks a scheduled or completed HR round.
	StageHRInterview Stage = "HR Interview"
	// StageRejectedAfterProcess is a terminal stage reached after interviewing.
	StageRejectedAfterProcess Stage = "Rejected After Process"
	// StageRejectedNoResponse is a terminal stage for applications that never
	// got a reply.
	StageRejectedNoResponse Stage = "Rejected Without Response"
)

// stageOrder is display order only. Transitions form a free graph: any stage
// is reachable from any stage, since real hiring flows are non-linear.
var stageOrder = []Stage{
	StageSubmitted,
	StageHomeAssignment,
	StageTechnicalInterview,
	StageHRInterview,
	StageRejectedAfterProcess,
	StageRejectedNoResponse,
}

// Stages returns the pipeline stages in display order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// InitialStage returns the stage assigned to newly created applications.
func InitialStage() Stage {
	return StageSubmitted
}

// IsValidStage reports whether s names a pipeline stage.
func IsValidStage(s Stage) bool {
	for _, stage := range stageOrder {
		if stage == s {
			return true
		}
	}
	return false
}

// QuickRejectTarget returns the terminal stage for the quick-reject shortcut.
// The shortcut exists only while an application sits in the submitted stage.
func QuickRejectTarget(from Stage) (Stage, bool) {
	if from != StageSubmitted {
		return "", false
	}
	return StageRejectedNoResponse, true
}
