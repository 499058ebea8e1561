package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"plate-scanner/internal/sampler"

	"github.com/tliron/commonlog"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinSignalStdDev is the population standard deviation below which a
	// channel carries no usable signal.
	MinSignalStdDev = 1e-6

	// r2Epsilon keeps R² defined when every target concentration is equal.
	r2Epsilon = 1e-10
)

var (
	// ErrSamplingMismatch is the sentinel matched by *MismatchError.
	ErrSamplingMismatch = errors.New("sampling mismatch")

	// ErrTooFewPoints is returned when fewer than two points are supplied.
	ErrTooFewPoints = errors.New("at least two calibration points are required")

	// ErrDegenerateChannel marks a channel excluded for near-constant signal.
	ErrDegenerateChannel = errors.New("channel signal has no variance")

	// ErrFitFailed marks a channel whose regression was not finite.
	ErrFitFailed = errors.New("linear fit failed")
)

var log = commonlog.GetLogger("platescan.calibration")

// MismatchError reports a calibration whose successfully sampled point count
// differs from the number of target concentrations.
type MismatchError struct {
	Valid    int
	Expected int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("sampling mismatch: found %d valid points, expected %d", e.Valid, e.Expected)
}

func (e *MismatchError) Unwrap() error {
	return ErrSamplingMismatch
}

// Exclusion records why a channel produced no model.
type Exclusion struct {
	Channel sampler.Channel
	Reason  error
}

// FitResult holds the candidate models of one calibration.
type FitResult struct {
	Models   []Model     // ranked by R², best first
	Excluded []Exclusion // channels that could not be fit
	Points   int         // number of calibration points used

	Samples []sampler.Sample // the readings the models were fitted on
	Targets []float64
}

// Best returns the highest ranked model.
func (r *FitResult) Best() (Model, bool) {
	if len(r.Models) == 0 {
		return Model{}, false
	}
	return r.Models[0], true
}

// Top returns at most n of the best models.
func (r *FitResult) Top(n int) []Model {
	if n > len(r.Models) {
		n = len(r.Models)
	}
	return r.Models[:n]
}

// ForChannel returns the model fit for ch, if any.
func (r *FitResult) ForChannel(ch sampler.Channel) (Model, bool) {
	for _, m := range r.Models {
		if m.Channel == ch {
			return m, true
		}
	}
	return Model{}, false
}

// Fit regresses the target concentrations against every channel of the
// samples and ranks the resulting lines by R². samples[i] must be the reading
// of the well whose known concentration is targets[i]. A count mismatch fails
// the whole calibration; a channel that cannot be fit is only excluded.
func Fit(samples []sampler.Sample, targets []float64) (*FitResult, error) {
	if len(samples) != len(targets) {
		return nil, &MismatchError{Valid: len(samples), Expected: len(targets)}
	}
	if len(samples) < 2 {
		return nil, ErrTooFewPoints
	}

	result := &FitResult{Points: len(samples), Samples: samples, Targets: targets}
	x := make([]float64, len(samples))

	for _, ch := range sampler.Channels {
		for i, s := range samples {
			x[i] = s.Value(ch)
		}

		m, err := fitChannel(ch, x, targets)
		if err != nil {
			log.Debugf("channel %s excluded: %v", ch, err)
			result.Excluded = append(result.Excluded, Exclusion{Channel: ch, Reason: err})
			continue
		}
		result.Models = append(result.Models, m)
	}

	sort.SliceStable(result.Models, func(i, j int) bool {
		return result.Models[i].R2 > result.Models[j].R2
	})

	if best, ok := result.Best(); ok {
		log.Infof("fit %d points: %d channels, best %s", result.Points, len(result.Models), best)
	} else {
		log.Warningf("fit %d points: no channel could be fit", result.Points)
	}
	return result, nil
}

// fitChannel fits concentration = k*signal + b by ordinary least squares.
func fitChannel(ch sampler.Channel, x, y []float64) (Model, error) {
	_, std := stat.PopMeanStdDev(x, nil)
	if math.IsNaN(std) {
		return Model{}, ErrFitFailed
	}
	if std < MinSignalStdDev {
		return Model{}, ErrDegenerateChannel
	}

	b, k := stat.LinearRegression(x, y, nil, false)
	r2 := rSquared(x, y, k, b)

	for _, v := range []float64{k, b, r2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Model{}, ErrFitFailed
		}
	}
	return Model{Channel: ch, K: k, B: b, R2: r2}, nil
}

// rSquared computes 1 - SS_res / (SS_tot + ε).
func rSquared(x, y []float64, k, b float64) float64 {
	mean := stat.Mean(y, nil)
	var ssRes, ssTot float64
	for i := range y {
		res := y[i] - (k*x[i] + b)
		ssRes += res * res
		dev := y[i] - mean
		ssTot += dev * dev
	}
	return 1 - ssRes/(ssTot+r2Epsilon)
}
