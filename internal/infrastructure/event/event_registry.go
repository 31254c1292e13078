package event

import (
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
)

// RegisterAllEvents registers every event the outbox carries. A row whose
// type is missing here can never be delivered and ends up dead.
func RegisterAllEvents(s *EventSerializer) {
	Register[inspection.InspectionApprovedEvent](s, inspection.EventTypeInspectionApproved)
	Register[inspection.InspectionRejectedEvent](s, inspection.EventTypeInspectionRejected)

	Register[financing.FinancingCreatedEvent](s, financing.EventTypeFinancingCreated)
	Register[financing.FinancingStateChangedEvent](s, financing.EventTypeFinancingStateChanged)
	Register[financing.PaymentRegisteredEvent](s, financing.EventTypePaymentRegistered)
}
