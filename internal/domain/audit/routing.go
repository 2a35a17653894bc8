package audit

import (
	"github.com/bryanwahyu/audit-gateway/internal/domain/risk"
)

// VisibleHistory filters prior decisions down to what an auditor at
// the given level is allowed to see: strictly earlier stages only.
func VisibleHistory(entries []Result, level Stage) []Result {
	out := make([]Result, 0, len(entries))
	for _, e := range entries {
		if e.Stage < level {
			out = append(out, e)
		}
	}
	return out
}

// RouteDecision describes where a case is expected to go after a stage
// decision. Informational only: the backend computes the real
// transition and its answer always wins.
type RouteDecision struct {
	NextStage *Stage `json:"nextStage,omitempty"`
	Completed bool   `json:"completed"`
	Reason    string `json:"reason"`
}

// ExpectedRoute mirrors the backend's progression rules so the UI can
// show "what happens next". Rejection ends the flow at any stage.
// Conservative customers terminate after intermediate approval,
// moderate after senior, aggressive always reach committee.
func ExpectedRoute(level Stage, tier risk.Tier, approved bool) RouteDecision {
	if !approved {
		return RouteDecision{Completed: true, Reason: "rejected, workflow ends"}
	}

	switch level {
	case StageJunior:
		return forwardTo(StageIntermediate, "junior approval forwards to intermediate review")
	case StageIntermediate:
		if tier == risk.TierConservative {
			return RouteDecision{Completed: true, Reason: "intermediate approval is final for conservative customers"}
		}
		return forwardTo(StageSenior, "intermediate approval forwards to senior review")
	case StageSenior:
		if tier == risk.TierAggressive {
			return forwardTo(StageCommittee, "senior approval forwards aggressive customers to the committee")
		}
		return RouteDecision{Completed: true, Reason: "senior approval is final for moderate customers"}
	default:
		return RouteDecision{Completed: true, Reason: "committee decision is final"}
	}
}

func forwardTo(next Stage, reason string) RouteDecision {
	n := next
	return RouteDecision{NextStage: &n, Reason: reason}
}
