package models

// ProcessingStatus is the lifecycle flag of an uploaded photo.
// It only moves forward: pending -> processing -> completed | failed.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

var transitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a photo in state from may move to state to.
func CanTransition(from, to ProcessingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Predecessor returns the only state a photo may be in before entering s.
func Predecessor(s ProcessingStatus) (ProcessingStatus, bool) {
	switch s {
	case StatusProcessing:
		return StatusPending, true
	case StatusCompleted, StatusFailed:
		return StatusProcessing, true
	}
	return "", false
}
