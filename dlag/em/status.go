package em

// Status is the terminal state of a fitting session.
type Status uint8

// Session states. Running is never returned from Fit; the remaining
// values are terminal and non-error.
const (
	Running Status = iota
	// ConvergedLikelihood: the relative likelihood change against the
	// second-iteration baseline fell below the tolerance.
	ConvergedLikelihood
	// ConvergedParameters: delay and across-group timescale changes
	// between checkpoints fell below the parameter tolerance.
	ConvergedParameters
	// MaxIterationsReached: the iteration budget was exhausted.
	MaxIterationsReached
	// StoppedLikelihoodDecrease: the likelihood decreased and the
	// session was configured to halt on decrease.
	StoppedLikelihoodDecrease
)

// Message returns the human-readable termination message for the
// status.
func (s Status) Message() string {
	switch s {
	case ConvergedLikelihood:
		return "LL has converged"
	case ConvergedParameters:
		return "Parameters have converged"
	case MaxIterationsReached:
		return "Maximum iterations reached"
	case StoppedLikelihoodDecrease:
		return "LL decreased; halting on decrease"
	default:
		return "running"
	}
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case ConvergedLikelihood:
		return "ConvergedLikelihood"
	case ConvergedParameters:
		return "ConvergedParameters"
	case MaxIterationsReached:
		return "MaxIterationsReached"
	case StoppedLikelihoodDecrease:
		return "StoppedLikelihoodDecrease"
	default:
		return "Status(?)"
	}
}
