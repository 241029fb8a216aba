// Package modelconfig loads the YAML model file that names the target series,
// the factors and how each factor is aligned.
package modelconfig

// Model is one regression model: target, factors and fit settings
type Model struct {
	Meta       Meta           `yaml:"meta" json:"meta"`
	Target     SeriesSpec     `yaml:"target" json:"target"`
	Factors    []Factor       `yaml:"factors" json:"factors"`
	Regression RegressionSpec `yaml:"regression" json:"regression"`
}

// Meta names the model and its sample window
type Meta struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"` // YYYY-MM-DD, inclusive
	End   string `yaml:"end" json:"end"`     // YYYY-MM-DD, inclusive
}

// SeriesSpec says where a series comes from and how it is transformed
type SeriesSpec struct {
	Provider  string   `yaml:"provider" json:"provider"`
	Series    string   `yaml:"series" json:"series"`
	Scale     *float64 `yaml:"scale,omitempty" json:"scale,omitempty"` // applied before Transform
	Transform string   `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// Factor is one regressor. Without Alignment it is a daily series that is
// forward-filled onto the target index; with it, a periodic rate that is
// distributed across the index.
type Factor struct {
	Name       string `yaml:"name" json:"name"`
	SeriesSpec `yaml:",inline"`
	Alignment  *Alignment `yaml:"alignment,omitempty" json:"alignment,omitempty"`
}

// Alignment configures periodic-to-daily distribution
type Alignment struct {
	Frequency  string `yaml:"frequency" json:"frequency"`
	ReturnType string `yaml:"return_type" json:"return_type"`
	ReleaseLag string `yaml:"release_lag" json:"release_lag"`
	WeekAnchor string `yaml:"week_anchor,omitempty" json:"week_anchor,omitempty"` // weekly only, default sun
}

// RegressionSpec configures the fit and its diagnostics
type RegressionSpec struct {
	ResetPower int    `yaml:"reset_power" json:"reset_power"`
	QQPlot     string `yaml:"qq_plot,omitempty" json:"qq_plot,omitempty"` // output path, empty = no plot
}

// Transform names
const (
	TransformNone      = "none"
	TransformPctChange = "pct_change"
	TransformDiff      = "diff"
	TransformLogReturn = "log_return"
)

// Transforms lists every accepted transform
var Transforms = []string{TransformNone, TransformPctChange, TransformDiff, TransformLogReturn}
