package optimizer

// Config holds the configuration for the mix optimizer.
// It is loaded from environment variables or a config file.
type Config struct {
	// Solver settings
	SolverMaxIterations int     `mapstructure:"solver_max_iterations" env:"SOLVER_MAX_ITERATIONS" default:"200"`
	SolverTolerance     float64 `mapstructure:"solver_tolerance" env:"SOLVER_TOLERANCE" default:"1e-6"`

	// Numeric tolerances
	CapacityEpsilon  float64 `mapstructure:"capacity_epsilon" env:"CAPACITY_EPSILON" default:"1e-6"`
	RescaleWarnRatio float64 `mapstructure:"rescale_warn_ratio" env:"RESCALE_WARN_RATIO" default:"0.001"`

	// Validation limits
	MaxProducts int `mapstructure:"max_products" env:"MAX_PRODUCTS" default:"10000"`

	// Feature flags
	EnableSolver bool `mapstructure:"enable_solver" env:"ENABLE_SOLVER" default:"true"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		SolverMaxIterations: 200,
		SolverTolerance:     1e-6,
		CapacityEpsilon:     1e-6,
		RescaleWarnRatio:    0.001,
		MaxProducts:         10000,
		EnableSolver:        true,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.SolverMaxIterations < 1 {
		return ErrInvalidConfig{Field: "solver_max_iterations", Reason: "must be at least 1"}
	}
	if c.SolverTolerance <= 0 {
		return ErrInvalidConfig{Field: "solver_tolerance", Reason: "must be positive"}
	}
	if c.CapacityEpsilon <= 0 {
		return ErrInvalidConfig{Field: "capacity_epsilon", Reason: "must be positive"}
	}
	if c.RescaleWarnRatio < 0 {
		return ErrInvalidConfig{Field: "rescale_warn_ratio", Reason: "must be non-negative"}
	}
	if c.MaxProducts < 1 {
		return ErrInvalidConfig{Field: "max_products", Reason: "must be at least 1"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}
