package onboard

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/CodedInternet/gojacobian/onboard/hardware"
	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v2"
)

const (
	CONFIG_VERSION = "~1.1"

	PIN_DRIVE    = "drive"
	PIN_STEER    = "steer"
	PIN_OVERRIDE = "override"
)

type JacobianConfig struct {
	Version   string
	Name      string
	Backend   string
	Chip      string
	Frequency float64
	TickRate  float64 `yaml:"tick_rate"`
	Pins      []PinConfig
	Drive     DriveTuning
	Steer     SteerTuning
}

type PinConfig struct {
	Name string
	ID   hardware.PinID
	Mode hardware.Mode
	Pull hardware.Pull
}

// DriveTuning holds the ESC pulse widths and settle times. None of these are
// derived; they are measured against the speed controller.
type DriveTuning struct {
	Neutral    time.Duration
	ForwardMax time.Duration `yaml:"forward_max"`
	ReverseMax time.Duration `yaml:"reverse_max"`

	// reverse arming sequence
	Brake     time.Duration
	BrakeHold time.Duration `yaml:"brake_hold"`
	Arm       time.Duration
	ArmHold   time.Duration `yaml:"arm_hold"`

	// stop sequence, one pair per latch state
	StopHold         time.Duration `yaml:"stop_hold"`
	StopForwardBrake time.Duration `yaml:"stop_forward_brake"`
	StopForwardIdle  time.Duration `yaml:"stop_forward_idle"`
	StopReverseBrake time.Duration `yaml:"stop_reverse_brake"`
	StopReverseIdle  time.Duration `yaml:"stop_reverse_idle"`
}

// SteerTuning bounds are in microseconds of pulse width.
type SteerTuning struct {
	Min    int
	Max    int
	Center time.Duration
}

// DefaultConfig is the reference vehicle: a Pi 3b driving an ESC and a steering
// servo at 60Hz. Pin ids are BCM numbers (wiringPi 2, 4 and 25).
func DefaultConfig() JacobianConfig {
	return JacobianConfig{
		Version:   "1.1.0",
		Name:      "pi3b",
		Backend:   "rpio",
		Chip:      "gpiochip0",
		Frequency: 60,
		TickRate:  12000,
		Pins: []PinConfig{
			{Name: PIN_DRIVE, ID: 27, Mode: hardware.Output, Pull: hardware.PullDown},
			{Name: PIN_STEER, ID: 23, Mode: hardware.Output, Pull: hardware.PullDown},
			{Name: PIN_OVERRIDE, ID: 26, Mode: hardware.Output, Pull: hardware.PullDown},
		},
		Drive: DriveTuning{
			Neutral:          1500 * time.Microsecond,
			ForwardMax:       2000 * time.Microsecond,
			ReverseMax:       1000 * time.Microsecond,
			Brake:            1050 * time.Microsecond,
			BrakeHold:        time.Second,
			Arm:              1500 * time.Microsecond,
			ArmHold:          250 * time.Millisecond,
			StopHold:         100 * time.Millisecond,
			StopForwardBrake: 1000 * time.Microsecond,
			StopForwardIdle:  1500 * time.Microsecond,
			StopReverseBrake: 1600 * time.Microsecond,
			StopReverseIdle:  1000 * time.Microsecond,
		},
		Steer: SteerTuning{
			Min:    1200,
			Max:    2000,
			Center: 1600 * time.Microsecond,
		},
	}
}

// ParseConfig overlays data on DefaultConfig and validates the result.
func ParseConfig(data []byte) (config JacobianConfig, err error) {
	config = DefaultConfig()
	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("unable to unmarshal yaml: %w", err)
	}
	return config, config.Validate()
}

func LoadConfig(filename string) (config JacobianConfig, err error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("unable to read yaml file: %w", err)
	}
	return ParseConfig(data)
}

func (c JacobianConfig) Validate() error {
	version, err := semver.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("config version %q: %w", c.Version, err)
	}
	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("unable to use config version %s - require %s", c.Version, CONFIG_VERSION)
	}

	if c.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %v", c.Frequency)
	}
	if min := c.Frequency * TickRateFactor; c.TickRate < min {
		return fmt.Errorf("tick_rate %v is below the %v Hz a %v Hz channel needs", c.TickRate, min, c.Frequency)
	}
	if c.Steer.Min <= 0 || c.Steer.Min > c.Steer.Max {
		return fmt.Errorf("steer range %d-%d is invalid", c.Steer.Min, c.Steer.Max)
	}
	return nil
}

// TickInterval is the loop period implied by TickRate.
func (c JacobianConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.TickRate)
}
