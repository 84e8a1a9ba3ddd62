package drafting

import (
	"fmt"

	"github.com/qmuntal/stateless"

	"invoiceai/pkg/models"
)

// newLifecycle builds the status machine for a draft currently in status.
// Triggers are the destination statuses themselves.
func newLifecycle(status models.DraftStatus) *stateless.StateMachine {
	machine := stateless.NewStateMachine(status)

	machine.Configure(models.StatusInProgress).
		Permit(models.StatusComplete, models.StatusComplete).
		PermitReentry(models.StatusInProgress)

	machine.Configure(models.StatusComplete).
		Permit(models.StatusSent, models.StatusSent).
		Permit(models.StatusCancelled, models.StatusCancelled).
		PermitReentry(models.StatusComplete)

	machine.Configure(models.StatusSent).
		Permit(models.StatusPaid, models.StatusPaid).
		Permit(models.StatusOverdue, models.StatusOverdue).
		Permit(models.StatusCancelled, models.StatusCancelled).
		PermitReentry(models.StatusSent)

	machine.Configure(models.StatusOverdue).
		Permit(models.StatusPaid, models.StatusPaid).
		Permit(models.StatusCancelled, models.StatusCancelled).
		PermitReentry(models.StatusOverdue)

	machine.Configure(models.StatusPaid).
		PermitReentry(models.StatusPaid)

	machine.Configure(models.StatusCancelled).
		PermitReentry(models.StatusCancelled)

	return machine
}

// Transition validates moving a draft from one status to another.
func Transition(from, to models.DraftStatus) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %s -> %s", ErrUnknownStatus, from, to)
	}
	if err := newLifecycle(from).Fire(to); err != nil {
		return &TransitionError{From: from, To: to, Err: err}
	}
	return nil
}

// RequestTransition validates a status change asked for by a user or a tool.
// It follows Transition except that COMPLETE is only entered through the
// evaluator's Promote.
func RequestTransition(from, to models.DraftStatus) error {
	if from == models.StatusInProgress && to == models.StatusComplete {
		return &TransitionError{From: from, To: to, Err: ErrPromotionReserved}
	}
	return Transition(from, to)
}

// NextStatuses lists the statuses reachable from status in one step.
func NextStatuses(status models.DraftStatus) []models.DraftStatus {
	return reachable(status, Transition)
}

// RequestableStatuses lists the statuses RequestTransition accepts from
// status in one step.
func RequestableStatuses(status models.DraftStatus) []models.DraftStatus {
	return reachable(status, RequestTransition)
}

func reachable(status models.DraftStatus, allowed func(from, to models.DraftStatus) error) []models.DraftStatus {
	var next []models.DraftStatus
	for _, candidate := range models.AllStatuses {
		if candidate == status {
			continue
		}
		if allowed(status, candidate) == nil {
			next = append(next, candidate)
		}
	}
	return next
}
