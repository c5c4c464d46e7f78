package feature

// AggregateMode selects how per-entity aggregate statistics are
// windowed. Expanding uses strictly-prior rows only and is the safe
// default; FullHistory reproduces the legacy behavior of aggregating
// over the entity's whole series, which leaks future rows into earlier
// ones and exists only for comparison runs.
type AggregateMode string

const (
	AggregateExpanding   AggregateMode = "expanding"
	AggregateFullHistory AggregateMode = "full_history"
)

// Config is the immutable description of the feature contract. Two
// pipelines built from equal configs produce identical feature-name
// lists; the config travels inside the trained artifact so later
// predictions rebuild the exact contract the model was fitted on.
type Config struct {
	Lags           []int         `json:"lags" yaml:"lags"`
	RollingWindows []int         `json:"rolling_windows" yaml:"rolling_windows"`
	TrendWindow    int           `json:"trend_window" yaml:"trend_window"`
	AggregateMode  AggregateMode `json:"aggregate_mode" yaml:"aggregate_mode"`
	Scale          bool          `json:"scale" yaml:"scale"`
	MinFeatures    int           `json:"min_features" yaml:"min_features"`
	MaxFeatures    int           `json:"max_features" yaml:"max_features"`
}

// DefaultConfig mirrors the production feature contract: lags 1/2/7,
// rolling windows 3/7, expanding aggregates, no scaling (tree models
// are scale-invariant).
func DefaultConfig() Config {
	return Config{
		Lags:           []int{1, 2, 7},
		RollingWindows: []int{3, 7},
		TrendWindow:    7,
		AggregateMode:  AggregateExpanding,
		Scale:          false,
		MinFeatures:    10,
		MaxFeatures:    120,
	}
}

// MaxLag returns the deepest configured lag.
func (c Config) MaxLag() int {
	max := 0
	for _, l := range c.Lags {
		if l > max {
			max = l
		}
	}
	return max
}

// maxRollingWindow returns the widest configured rolling window.
func (c Config) maxRollingWindow() int {
	max := 0
	for _, w := range c.RollingWindows {
		if w > max {
			max = w
		}
	}
	return max
}

func (c Config) withDefaults() Config {
	if len(c.Lags) == 0 {
		c.Lags = []int{1, 2, 7}
	}
	if len(c.RollingWindows) == 0 {
		c.RollingWindows = []int{3, 7}
	}
	if c.TrendWindow == 0 {
		c.TrendWindow = 7
	}
	if c.AggregateMode == "" {
		c.AggregateMode = AggregateExpanding
	}
	if c.MinFeatures == 0 {
		c.MinFeatures = 10
	}
	if c.MaxFeatures == 0 {
		c.MaxFeatures = 120
	}
	return c
}
