package constants

// ProcessStatus is the canonical process status for staging documents.
type ProcessStatus string

// Stable values (store these exact strings in DB).
const (
	StatusNotStarted          ProcessStatus = "NOT_STARTED"          // created, nothing extracted yet
	StatusPending             ProcessStatus = "PENDING"              // fresh extraction received, mapping in progress
	StatusProcessingComplete  ProcessStatus = "PROCESSING_COMPLETE"  // extracted fields written, visible in review worklist
	StatusTransactionComplete ProcessStatus = "TRANSACTION_COMPLETE" // promoted into a downstream transaction, terminal
)

// Terminal reports whether a status excludes the document from duplicate
// matching and the pending worklist.
func (s ProcessStatus) Terminal() bool {
	return s == StatusTransactionComplete
}

// CanAdvanceTo enforces the one-directional status progression. Rejection is
// modeled as deactivation, not a status, so it does not appear here.
func (s ProcessStatus) CanAdvanceTo(next ProcessStatus) bool {
	from, to := statusRank(s), statusRank(next)
	return from >= 0 && to >= from
}

func statusRank(s ProcessStatus) int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusPending:
		return 1
	case StatusProcessingComplete:
		return 2
	case StatusTransactionComplete:
		return 3
	}
	return -1
}
