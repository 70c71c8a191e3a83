// Package em drives the frequency-domain EM fit of a DLAG model: it
// alternates the exact spectral E-step with the observation-model and
// kernel M-steps, enforces domain bounds on delays and timescales,
// tracks convergence by likelihood and by parameter change, and
// supports resuming a prior run from its recorded history.
//
// A session is single-threaded and owns its parameters, sequences and
// history exclusively; fitting several models in parallel only needs
// independent copies of the inputs.
package em
