package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphPin struct {
	io   gpio.PinIO
	mode Mode
	pull gpio.Pull
}

// Periph resolves pins through the periph.io driver registry as "GPIO<id>".
type Periph struct {
	lock *sync.Mutex
	pins map[PinID]*periphPin
	open bool
}

func NewPeriph() *Periph {
	return &Periph{
		lock: new(sync.Mutex),
		pins: make(map[PinID]*periphPin),
	}
}

func (b *Periph) Initialize() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	b.lock.Lock()
	b.open = true
	b.lock.Unlock()
	return nil
}

func (b *Periph) resolve(id PinID) (*periphPin, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil, ERR_NOT_INITIALIZED
	}
	if p, ok := b.pins[id]; ok {
		return p, nil
	}

	name := fmt.Sprintf("GPIO%d", id)
	io := gpioreg.ByName(name)
	if io == nil {
		return nil, fmt.Errorf("pin %d (%s) not found in hardware", id, name)
	}
	p := &periphPin{io: io, pull: gpio.PullNoChange}
	b.pins[id] = p
	return p, nil
}

func (b *Periph) SetMode(id PinID, mode Mode) error {
	p, err := b.resolve(id)
	if err != nil {
		return err
	}
	p.mode = mode
	if mode == Output {
		return p.io.Out(gpio.Low)
	}
	return p.io.In(p.pull, gpio.NoEdge)
}

// SetPull only reaches the hardware while the pin is an input; the setting is
// remembered and applied when the pin next switches to input.
func (b *Periph) SetPull(id PinID, pull Pull) error {
	p, err := b.resolve(id)
	if err != nil {
		return err
	}
	switch pull {
	case PullUp:
		p.pull = gpio.PullUp
	case PullDown:
		p.pull = gpio.PullDown
	default:
		p.pull = gpio.Float
	}
	if p.mode == Input {
		return p.io.In(p.pull, gpio.NoEdge)
	}
	return nil
}

func (b *Periph) Write(id PinID, high bool) error {
	p, err := b.resolve(id)
	if err != nil {
		return err
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	return p.io.Out(level)
}

func (b *Periph) Read(id PinID) (bool, error) {
	p, err := b.resolve(id)
	if err != nil {
		return false, err
	}
	return p.io.Read() == gpio.High, nil
}

func (b *Periph) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.open = false
	b.pins = make(map[PinID]*periphPin)
	return nil
}
