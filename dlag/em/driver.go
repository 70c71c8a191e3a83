package em

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/estimate"
	"github.com/cwbudde/algo-dlag/dlag/freq"
	"github.com/cwbudde/algo-dlag/dlag/model"
	"github.com/cwbudde/algo-dlag/dlag/partition"
	"github.com/cwbudde/algo-dlag/dlag/posterior"
)

// Result is the outcome of a fitting session.
type Result struct {
	// Params is the fitted parameter set (the same value passed to
	// Fit, mutated in place).
	Params *model.Params
	// Sequences are the input trials, augmented with posterior-mean
	// latent trajectories from the final E-step.
	Sequences []*model.Sequence
	// Posteriors is the final spectral posterior, grouped by distinct
	// trial length.
	Posteriors map[int]*posterior.Spectral
	// History holds the accumulated traces; pass it back via
	// WithHistory to resume.
	History *History
	// Status names the stopping condition that fired.
	Status Status
	// Message is the human-readable termination message.
	Message string
	// LLDecreased reports whether at least one likelihood decrease was
	// observed during the session.
	LLDecreased bool
}

// Fit runs the EM loop on the given parameters and sequences until a
// stopping condition fires. Params and sequences are mutated in place
// and owned by the session until Fit returns.
func Fit(p *model.Params, seqs []*model.Sequence, opts ...Option) (*Result, error) {
	cfg := ApplyOptions(opts...)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidateSequences(seqs, p.Dims); err != nil {
		return nil, err
	}

	minT := model.MinT(seqs)

	// Per-dimension noise floors from the empirical marginal variance.
	// The floor only applies when the observation model is being
	// learned; a fixed R is left exactly as the caller set it.
	floors := freq.EmpiricalVariance(seqs)
	for i := range floors {
		floors[i] *= cfg.MinVarFrac
	}
	if cfg.LearnObs {
		for i, r := range p.R {
			if r < floors[i] {
				p.R[i] = floors[i]
			}
		}
	}

	if n := enforceBounds(p, &cfg, minT, cfg.Rand); n > 0 {
		cfg.Logger.Printf("corrected %d out-of-range delay/timescale values at start", n)
	}

	hist := resumeHistory(cfg.Resume)
	llOld, llBase := 0.0, 0.0
	llBaseValid := len(hist.LL) >= 2
	if llBaseValid {
		llBase = hist.LL[1]
	}
	if len(hist.LL) > 0 {
		llOld = hist.LL[len(hist.LL)-1]
	}

	res := &Result{Params: p, Sequences: seqs, History: hist}

	kcfg := estimate.KernelConfig{
		LearnDelays:  cfg.LearnDelays,
		LearnGPNoise: cfg.LearnGPNoise,
		MaxIter:      cfg.KernelMaxIter,
	}

	for iter := hist.Iter + 1; ; iter++ {
		// Likelihood evaluation is materially more expensive than the
		// posterior alone; evaluate it only when the trace needs it.
		computeLL := iter <= 2 || iter%cfg.FreqLL == 0 || iter >= cfg.MaxIters

		start := time.Now()
		post, err := posterior.Infer(p, seqs, computeLL)
		if err != nil {
			return nil, fmt.Errorf("em: iteration %d: %w", iter, err)
		}
		res.Posteriors = post.ByLength

		if cfg.LearnObs {
			up, err := estimate.UpdateObservation(p, seqs, post.ByLength, floors)
			if err != nil {
				return nil, fmt.Errorf("em: iteration %d: %w", iter, err)
			}
			p.C, p.D, p.R = up.C, up.D, up.R
		}

		if cfg.LearnKernelParams {
			across, withins, err := partition.Split(p, seqs, post.ByLength)
			if err != nil {
				return nil, fmt.Errorf("em: iteration %d: %w", iter, err)
			}
			if across != nil {
				up, err := estimate.FitAcross(p, across, kcfg)
				if err != nil {
					return nil, fmt.Errorf("em: iteration %d: %w", iter, err)
				}
				p.Across.Gamma = up.Gamma
				p.Across.Nu = up.Nu
				p.Delays = up.Delays
			}
			for _, wv := range withins {
				up, err := estimate.FitWithin(p, wv, kcfg)
				if err != nil {
					return nil, fmt.Errorf("em: iteration %d: %w", iter, err)
				}
				p.Within[up.Group].Gamma = up.Gamma
				p.Within[up.Group].Nu = up.Nu
			}
			if n := enforceBounds(p, &cfg, minT, cfg.Rand); n > 0 {
				cfg.Logger.Printf("iteration %d: corrected %d out-of-range delay/timescale values", iter, n)
			}
		}

		hist.Iter = iter
		hist.IterTime = append(hist.IterTime, time.Since(start).Seconds())

		status := Running
		if computeLL {
			ll := post.LL
			if len(hist.LL) > 0 && ll < llOld {
				res.LLDecreased = true
				cfg.Logger.Printf("iteration %d: log-likelihood decreased (%.6f -> %.6f)", iter, llOld, ll)
				if cfg.HaltOnDecrease {
					status = StoppedLikelihoodDecrease
				}
			}
			hist.LL = append(hist.LL, ll)
			if len(hist.LL) == 2 {
				llBase = ll
				llBaseValid = true
			}
			if status == Running && llBaseValid && len(hist.LL) > 2 &&
				ll-llBase < (1+cfg.TolLL)*(llOld-llBase) {
				status = ConvergedLikelihood
			}
			llOld = ll
			if cfg.Verbose {
				cfg.Logger.Printf("iteration %d: LL = %.6f", iter, ll)
			}
		}

		checkpoint := iter%cfg.FreqParam == 0 || iter >= cfg.MaxIters || status != Running
		if checkpoint {
			hist.takeSnapshot(iter, p)
		}

		// Parameter convergence is only defined at checkpoints; between
		// them the change-since-checkpoint quantities are not evaluated.
		if status == Running && checkpoint && cfg.LearnDelays && cfg.TolParam > 0 {
			if dd, td, ok := hist.ParamDelta(); ok && dd < cfg.TolParam && td < cfg.TolParam {
				status = ConvergedParameters
			}
		}
		if status == Running && iter >= cfg.MaxIters {
			status = MaxIterationsReached
		}

		if status != Running {
			res.Status = status
			res.Message = status.Message()
			cfg.Logger.Printf("stopped after iteration %d: %s", iter, res.Message)
			return res, nil
		}
	}
}

// resumeHistory deep-copies a prior run's history, or returns a fresh
// one. The copy keeps the caller's saved history intact while the
// session appends to its own.
func resumeHistory(prev *History) *History {
	if prev == nil {
		return &History{}
	}
	h := &History{
		Iter:     prev.Iter,
		LL:       append([]float64(nil), prev.LL...),
		IterTime: append([]float64(nil), prev.IterTime...),
	}
	for _, s := range prev.Snapshots {
		cp := Snapshot{
			Iter:      s.Iter,
			TauAcross: append([]float64(nil), s.TauAcross...),
		}
		if s.Delays != nil {
			cp.Delays = mat.DenseCopyOf(s.Delays)
		}
		for _, tw := range s.TauWithin {
			cp.TauWithin = append(cp.TauWithin, append([]float64(nil), tw...))
		}
		if s.NuAcross != nil {
			cp.NuAcross = append([]float64(nil), s.NuAcross...)
			for _, nw := range s.NuWithin {
				cp.NuWithin = append(cp.NuWithin, append([]float64(nil), nw...))
			}
		}
		h.Snapshots = append(h.Snapshots, cp)
	}
	return h
}
