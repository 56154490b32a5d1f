package models

// Status tags how a pipeline stage finished.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Degradation reasons.
const (
	ReasonValidation              = "ValidationError"
	ReasonClassificationDegraded  = "ClassificationDegraded"
	ReasonRetrievalDegraded       = "RetrievalDegraded"
	ReasonGenerationFailure       = "GenerationFailure"
	ReasonTranslationSkipped      = "TranslationSkipped"
	ReasonContextStoreUnavailable = "ContextStoreUnavailable"
	ReasonPipelineFailure         = "PipelineFailure"
)

// Outcome is the typed result of a stage: Ok, Degraded or Failed.
// A Degraded outcome still carries a usable Value.
type Outcome[T any] struct {
	Value  T
	Status Status
	Reason string
	Err    error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusOK}
}

// Degraded wraps a fallback value produced after err.
func Degraded[T any](v T, reason string, err error) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusDegraded, Reason: reason, Err: err}
}

// Failed reports a stage that produced nothing usable.
func Failed[T any](reason string, err error) Outcome[T] {
	return Outcome[T]{Status: StatusFailed, Reason: reason, Err: err}
}

// IsDegraded reports whether the stage fell back.
func (o Outcome[T]) IsDegraded() bool {
	return o.Status == StatusDegraded
}

// Note summarises the outcome for response metadata.
func (o Outcome[T]) Note(stage string) StageNote {
	n := StageNote{Stage: stage, Status: o.Status, Reason: o.Reason}
	if o.Err != nil {
		n.Error = o.Err.Error()
	}
	return n
}

// StageNote is the serialisable form of a stage outcome.
type StageNote struct {
	Stage  string `json:"stage"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}
