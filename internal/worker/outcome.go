package worker

import (
	"errors"

	"gallery-backend/internal/ai"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusSkip    Status = "skip"
	StatusMissing Status = "missing"
	StatusError   Status = "err"
)

// Outcome is the terminal result of one job invocation.
type Outcome struct {
	Status Status
	Detail string
}

func OK() Outcome                   { return Outcome{Status: StatusOK} }
func Skip(reason string) Outcome    { return Outcome{Status: StatusSkip, Detail: reason} }
func Missing(entity string) Outcome { return Outcome{Status: StatusMissing, Detail: entity} }

// Failed reports err as an error outcome. Unavailable inference backends
// are prefixed with "deps:".
func Failed(err error) Outcome {
	if errors.Is(err, ai.ErrMissingDependency) {
		return Outcome{Status: StatusError, Detail: "deps:" + err.Error()}
	}
	return Outcome{Status: StatusError, Detail: err.Error()}
}

// Render formats the outcome as "status" or "status:detail".
func (o Outcome) Render() string {
	if o.Detail == "" {
		return string(o.Status)
	}
	return string(o.Status) + ":" + o.Detail
}

func (o Outcome) String() string {
	return o.Render()
}
