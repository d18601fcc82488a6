package hardware

import (
	"errors"
	"fmt"
	"strings"
)

// PinID is the physical identifier of a pin as understood by the backend
// (BCM number for rpio/periph, line offset for gpiocdev).
type PinID int

type Mode uint8

const (
	Input Mode = iota
	Output
)

func (m Mode) String() string {
	if m == Output {
		return "output"
	}
	return "input"
}

func (m *Mode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "input", "in":
		*m = Input
	case "output", "out":
		*m = Output
	default:
		return fmt.Errorf("unknown pin mode %q", s)
	}
	return nil
}

type Pull uint8

const (
	PullOff Pull = iota
	PullDown
	PullUp
)

func (p Pull) String() string {
	switch p {
	case PullDown:
		return "down"
	case PullUp:
		return "up"
	default:
		return "off"
	}
}

func (p *Pull) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "off", "none", "":
		*p = PullOff
	case "down":
		*p = PullDown
	case "up":
		*p = PullUp
	default:
		return fmt.Errorf("unknown pull mode %q", s)
	}
	return nil
}

var (
	ERR_NOT_INITIALIZED = errors.New("gpio backend not initialized")
	ERR_UNKNOWN_BACKEND = errors.New("unknown gpio backend")
)

// GPIO is the capability the controller drives. Implementations need not be
// safe for concurrent use; the controller serializes access.
type GPIO interface {
	Initialize() error
	SetMode(id PinID, mode Mode) error
	SetPull(id PinID, pull Pull) error
	Write(id PinID, high bool) error
	Read(id PinID) (bool, error)
	Close() error
}

// New returns the backend registered under name. chip is only used by the
// gpiocdev backend.
func New(name, chip string) (GPIO, error) {
	switch strings.ToLower(name) {
	case "rpio", "":
		return NewRPIO(), nil
	case "periph":
		return NewPeriph(), nil
	case "gpiocdev", "cdev":
		return NewCdev(chip), nil
	case "sim", "simulated":
		return NewSimulator(), nil
	}
	return nil, fmt.Errorf("%w: %s", ERR_UNKNOWN_BACKEND, name)
}
