// Package calibration fits and stores linear models that map a color signal
// to a concentration.
package calibration

import (
	"fmt"
	"math"

	"plate-scanner/internal/sampler"
)

// DemoName is the store name of the built-in demonstration curve.
const DemoName = "demo"

// DemoModel is a hue curve for trying the scanner before calibrating.
var DemoModel = Model{Channel: sampler.ChannelH, K: -0.1266, B: 3.9606, R2: 0.99}

// Model is a fitted line concentration = K*signal + B over one channel.
type Model struct {
	Channel sampler.Channel `json:"channel"`
	K       float64         `json:"k"`
	B       float64         `json:"b"`
	R2      float64         `json:"r2"`
}

// Predict evaluates the line without any domain policy applied.
func (m Model) Predict(signal float64) float64 {
	return m.K*signal + m.B
}

// Concentration evaluates the model for a sample. Negative predictions are
// clamped to zero because a physical concentration cannot be negative; this
// is a reporting policy, the line itself is unbounded.
func (m Model) Concentration(s sampler.Sample) float64 {
	return math.Max(0, m.Predict(s.Value(m.Channel)))
}

func (m Model) String() string {
	return fmt.Sprintf("%s: c = %.4f*x %+.4f (R²=%.4f)", m.Channel, m.K, m.B, m.R2)
}
