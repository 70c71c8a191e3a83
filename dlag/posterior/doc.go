// Package posterior implements the exact frequency-domain E-step of
// the DLAG model: per-frequency latent posterior covariances shared by
// all trials of equal length, per-trial posterior-mean trajectories,
// and the Whittle log-likelihood of the data under the current
// parameters.
package posterior
