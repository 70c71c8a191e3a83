// Package freq bridges time-domain trials and the frequency-domain
// representation the fitting engine works in.
//
// The package does not implement FFT itself; it wraps plans from an
// external FFT backend and fixes the unitary scaling convention used
// throughout the model: forward transforms divide by sqrt(T), inverse
// transforms multiply by sqrt(T), so Parseval holds exactly.
package freq
