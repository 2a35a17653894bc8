package audit

// Presentation helpers shared by the dashboard responses.

// LevelLabel names an auditor level.
func LevelLabel(level Stage) string {
	switch level {
	case StageJunior:
		return "junior auditor"
	case StageIntermediate:
		return "intermediate auditor"
	case StageSenior:
		return "senior auditor"
	case StageCommittee:
		return "investment committee"
	default:
		return "unknown level"
	}
}

// StageLabel names a review stage.
func StageLabel(stage Stage) string {
	switch stage {
	case StageJunior:
		return "junior review"
	case StageIntermediate:
		return "intermediate review"
	case StageSenior:
		return "senior review"
	case StageCommittee:
		return "committee review"
	default:
		return "unknown stage"
	}
}

// StatusLabel names a backend workflow status.
func StatusLabel(status WorkflowStatus) string {
	switch status {
	case WorkflowForwarded:
		return "forwarded to the next stage"
	case WorkflowCompleted:
		return "workflow completed"
	default:
		return string(status)
	}
}

// MaskPhone hides the middle digits of an 11-digit phone number.
// Anything else is returned untouched.
func MaskPhone(phone string) string {
	if len(phone) != 11 {
		return phone
	}
	return phone[:3] + "****" + phone[7:]
}
