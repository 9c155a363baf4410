package descriptor

type CreatedEvent struct {
	Result Descriptor
}

type UpdatedEvent struct {
	Previous Descriptor
	Result   Descriptor
}

// ConnectionChanged reports whether the edit rotated host, port, credentials or database.
func (e *UpdatedEvent) ConnectionChanged() bool {
	return e.Previous.Fingerprint() != e.Result.Fingerprint()
}

func NewCreatedEvent(d *Descriptor) *CreatedEvent {
	return &CreatedEvent{Result: *d.Clone()}
}

func NewUpdatedEvent(previous, result *Descriptor) *UpdatedEvent {
	return &UpdatedEvent{Previous: *previous.Clone(), Result: *result.Clone()}
}
