package audit

// Recorder is the append-only view of the audit trail that use cases depend
// on.
type Recorder interface {
	Append(event Event) error
}

var _ Recorder = (*Store)(nil)
