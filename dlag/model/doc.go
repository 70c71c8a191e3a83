// Package model defines the DLAG parameter set and its data model:
// group dimension layout, GP kernel hyperparameters per latent block,
// the delay matrix with its zero reference row, covariance-family
// spectral densities, the phase-rotated frequency-domain loading, and
// the frequency-domain trial representation shared by all fitting
// stages.
package model
