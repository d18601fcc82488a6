package hardware

import (
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIO drives pins through /dev/gpiomem register access. Pin ids are BCM numbers.
type RPIO struct {
	lock *sync.Mutex
	open bool
}

func NewRPIO() *RPIO {
	return &RPIO{lock: new(sync.Mutex)}
}

func (r *RPIO) Initialize() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := rpio.Open(); err != nil {
		return err
	}
	r.open = true
	return nil
}

func (r *RPIO) pin(id PinID) (rpio.Pin, error) {
	if !r.open {
		return 0, ERR_NOT_INITIALIZED
	}
	return rpio.Pin(id), nil
}

func (r *RPIO) SetMode(id PinID, mode Mode) error {
	p, err := r.pin(id)
	if err != nil {
		return err
	}
	if mode == Output {
		p.Output()
	} else {
		p.Input()
	}
	return nil
}

func (r *RPIO) SetPull(id PinID, pull Pull) error {
	p, err := r.pin(id)
	if err != nil {
		return err
	}
	switch pull {
	case PullUp:
		p.PullUp()
	case PullDown:
		p.PullDown()
	default:
		p.PullOff()
	}
	return nil
}

func (r *RPIO) Write(id PinID, high bool) error {
	p, err := r.pin(id)
	if err != nil {
		return err
	}
	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPIO) Read(id PinID) (bool, error) {
	p, err := r.pin(id)
	if err != nil {
		return false, err
	}
	return p.Read() == rpio.High, nil
}

func (r *RPIO) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.open {
		return nil
	}
	r.open = false
	return rpio.Close()
}
