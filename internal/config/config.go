// Package config holds the validated run configuration. A Config is built once
// at startup from defaults, an optional YAML file and CLI overrides, and is then
// passed by value to every stage.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"qrlsim/internal/model"
)

const (
	SourceSynthetic = "synthetic"
	SourceCSV       = "csv"

	BackendTrajectory = "trajectory"
	BackendDensity    = "density"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	TraceNone   = "none"
	TraceStdout = "stdout"
)

type Config struct {
	Cycle      CycleConfig      `yaml:"cycle" json:"cycle"`
	Signal     SignalConfig     `yaml:"signal" json:"signal"`
	Circuit    CircuitConfig    `yaml:"circuit" json:"circuit"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	Source     SourceConfig     `yaml:"source" json:"source"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// CycleConfig sizes the sampled cycle and its sliding windows.
type CycleConfig struct {
	Length     int   `yaml:"length" json:"length" validate:"min=1"`
	WindowSize int   `yaml:"window_size" json:"window_size" validate:"min=1,ltefield=Length"`
	Seed       int64 `yaml:"seed" json:"seed"`
}

// SignalConfig parameterizes the reward band and the error-rate model.
type SignalConfig struct {
	Reference  float64 `yaml:"reference" json:"reference"`
	Epsilon    float64 `yaml:"epsilon" json:"epsilon" validate:"gte=0"`
	BasePError float64 `yaml:"base_p_error" json:"base_p_error" validate:"gte=0,lte=1"`
	Slope      float64 `yaml:"slope" json:"slope" validate:"gte=0"`
	MaxPError  float64 `yaml:"max_p_error" json:"max_p_error" validate:"gte=0,lte=1,gtefield=BasePError"`
}

// CircuitConfig fixes the circuit topology constants.
type CircuitConfig struct {
	Qubits       int     `yaml:"qubits" json:"qubits" validate:"min=2,max=16"`
	Theta0       float64 `yaml:"theta0" json:"theta0"`
	Beta0        float64 `yaml:"beta0" json:"beta0"`
	KCoef        float64 `yaml:"k_coef" json:"k_coef"`
	ClosingQubit int     `yaml:"closing_qubit" json:"closing_qubit" validate:"min=0,ltfield=Qubits"`
	ClosingAngle float64 `yaml:"closing_angle" json:"closing_angle"`
}

type SimulationConfig struct {
	Shots   int    `yaml:"shots" json:"shots" validate:"min=1"`
	Backend string `yaml:"backend" json:"backend" validate:"oneof=trajectory density"`
	Seed    int64  `yaml:"seed" json:"seed"`
}

// SourceConfig selects the external series reader.
type SourceConfig struct {
	Kind            string  `yaml:"kind" json:"kind" validate:"oneof=synthetic csv"`
	CSVPath         string  `yaml:"csv_path,omitempty" json:"csv_path,omitempty" validate:"required_if=Kind csv"`
	SyntheticLength int     `yaml:"synthetic_length" json:"synthetic_length" validate:"min=1"`
	SyntheticMean   float64 `yaml:"synthetic_mean" json:"synthetic_mean"`
	SyntheticSigma  float64 `yaml:"synthetic_sigma" json:"synthetic_sigma" validate:"gte=0"`
	SyntheticSeed   int64   `yaml:"synthetic_seed" json:"synthetic_seed"`
}

type OutputConfig struct {
	Dir  string `yaml:"dir" json:"dir" validate:"required"`
	Unit string `yaml:"unit" json:"unit" validate:"required"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind" validate:"oneof=memory sqlite"`
	Path string `yaml:"path" json:"path" validate:"required_if=Kind sqlite"`
}

type TelemetryConfig struct {
	Trace       string `yaml:"trace" json:"trace" validate:"oneof=none stdout"`
	MetricsFile string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
}

// Default returns the reference configuration of the pipeline.
func Default() Config {
	return Config{
		Cycle: CycleConfig{
			Length:     100,
			WindowSize: 10,
			Seed:       1,
		},
		Signal: SignalConfig{
			Reference:  2.725,
			Epsilon:    2.5e-5,
			BasePError: 0.05,
			Slope:      0.0003,
			MaxPError:  0.25,
		},
		Circuit: CircuitConfig{
			Qubits:       4,
			Theta0:       2.10,
			Beta0:        1.20,
			KCoef:        0.1,
			ClosingQubit: 2,
			ClosingAngle: math.Pi / 2,
		},
		Simulation: SimulationConfig{
			Shots:   1024,
			Backend: BackendTrajectory,
			Seed:    1,
		},
		Source: SourceConfig{
			Kind:            SourceSynthetic,
			SyntheticLength: 4096,
			SyntheticMean:   2.725,
			SyntheticSigma:  1e-4,
			SyntheticSeed:   1,
		},
		Output: OutputConfig{
			Dir:  "runs",
			Unit: "days",
		},
		Store: StoreConfig{
			Kind: StoreMemory,
			Path: "qrlsim.db",
		},
		Telemetry: TelemetryConfig{
			Trace: TraceNone,
		},
	}
}

// Windows is the number of sliding windows a valid config produces.
func (c Config) Windows() int {
	return c.Cycle.Length - c.Cycle.WindowSize + 1
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field constraints. Every failure wraps
// model.ErrConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", model.ErrConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	for name, v := range map[string]float64{
		"signal.reference": c.Signal.Reference,
		"circuit.theta0":   c.Circuit.Theta0,
		"circuit.beta0":    c.Circuit.Beta0,
		"circuit.k_coef":   c.Circuit.KCoef,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", model.ErrConfig, name)
		}
	}
	if c.Source.Kind == SourceSynthetic && c.Source.SyntheticLength < c.Cycle.Length {
		return fmt.Errorf("%w: synthetic_length %d is smaller than cycle length %d", model.ErrConfig, c.Source.SyntheticLength, c.Cycle.Length)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "ltefield", "ltfield", "gtefield":
		return fmt.Sprintf("%s=%v violates %s %s", field, fe.Value(), fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s=%q must be one of [%s]", field, fe.Value(), fe.Param())
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s=%v violates %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := decodeInto(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeInto(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(cfg)
}

// Marshal renders the config as YAML, the same shape Load accepts.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
