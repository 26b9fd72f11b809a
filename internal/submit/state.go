package submit

import "github.com/altuslabsxyz/stakekit/internal/application/ports"

// State is the lifecycle state of a submission.
type State string

const (
	StateIdle                 State = "Idle"
	StateEstimating           State = "Estimating"
	StateAwaitingConfirmation State = "AwaitingConfirmation"
	StatePending              State = "Pending"
	StateInBlock              State = "InBlock"
	StateFinalized            State = "Finalized"
	StateCancelled            State = "Cancelled"
	StateFailed               State = "Failed"
)

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateFinalized || s == StateCancelled || s == StateFailed
}

// InFlight reports whether a sent transaction is awaiting inclusion or finality.
func (s State) InFlight() bool {
	return s == StatePending || s == StateInBlock
}

// Notifications emitted on transitions.
var (
	NotifyWalletNotFound = ports.Notification{Title: "Wallet Not Found", Subtitle: "Connect the sending account and try again"}
	NotifyPending        = ports.Notification{Title: "Pending", Subtitle: "Transaction initiated"}
	NotifyInBlock        = ports.Notification{Title: "In Block", Subtitle: "Transaction in block"}
	NotifyFinalized      = ports.Notification{Title: "Finalized", Subtitle: "Transaction successful"}
	NotifyFailed         = ports.Notification{Title: "Failed", Subtitle: "Error with transaction"}
	NotifyCancelled      = ports.Notification{Title: "Cancelled", Subtitle: "Transaction cancelled"}
)
