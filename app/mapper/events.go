package mapper

import (
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
)

type ResourceEvent struct {
	ID    string
	Cause string
}

// EventFields holds the latest id and cause seen per resource kind in a batch.
type EventFields map[entity.ResourceKind]ResourceEvent

// FoldEvents flattens a webhook batch. Later events overwrite earlier ones for
// the same resource kind; the id and the cause are overwritten independently
// and only when the later event carries them.
func FoldEvents(events []*gocardless.Event) EventFields {
	fields := EventFields{}
	for _, event := range events {
		if event == nil {
			continue
		}
		kind := entity.ParseResourceKind(event.ResourceType)
		if kind == entity.ResourceUnknown {
			continue
		}

		current := fields[kind]
		if id := event.Links[kind.LinkKey()]; id != "" {
			current.ID = id
		}
		if event.Details.Cause != "" {
			current.Cause = event.Details.Cause
		}
		fields[kind] = current
	}
	return fields
}

func (f EventFields) ID(kind entity.ResourceKind) string {
	return f[kind].ID
}

func (f EventFields) Cause(kind entity.ResourceKind) string {
	return f[kind].Cause
}

func (f EventFields) PaymentStatus() entity.Status {
	return StatusForCause(f.Cause(entity.ResourcePayment))
}
