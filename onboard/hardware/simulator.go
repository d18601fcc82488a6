package hardware

import (
	"errors"
	"sync"
)

var ERR_SIM_INIT = errors.New("simulated init failure")

type SimulatedPin struct {
	Mode   Mode
	Pull   Pull
	High   bool
	Writes int // number of Write calls since the pin was first touched
}

// Simulator is an in-memory GPIO used by -sim and tests. Reads return the last
// written level.
type Simulator struct {
	FailInit bool
	// Faulty pins fail every call with the mapped error.
	Faulty map[PinID]error

	lock   *sync.Mutex
	pins   map[PinID]*SimulatedPin
	open   bool
	closed int
}

func NewSimulator() *Simulator {
	return &Simulator{
		lock: new(sync.Mutex),
		pins: make(map[PinID]*SimulatedPin),
	}
}

func (s *Simulator) Initialize() error {
	if s.FailInit {
		return ERR_SIM_INIT
	}
	s.lock.Lock()
	s.open = true
	s.lock.Unlock()
	return nil
}

func (s *Simulator) get(id PinID) (*SimulatedPin, error) {
	if !s.open {
		return nil, ERR_NOT_INITIALIZED
	}
	if err, ok := s.Faulty[id]; ok {
		return nil, err
	}
	p, ok := s.pins[id]
	if !ok {
		p = new(SimulatedPin)
		s.pins[id] = p
	}
	return p, nil
}

func (s *Simulator) SetMode(id PinID, mode Mode) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, err := s.get(id)
	if err != nil {
		return err
	}
	p.Mode = mode
	return nil
}

func (s *Simulator) SetPull(id PinID, pull Pull) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, err := s.get(id)
	if err != nil {
		return err
	}
	p.Pull = pull
	return nil
}

func (s *Simulator) Write(id PinID, high bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, err := s.get(id)
	if err != nil {
		return err
	}
	p.High = high
	p.Writes++
	return nil
}

func (s *Simulator) Read(id PinID) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, err := s.get(id)
	if err != nil {
		return false, err
	}
	return p.High, nil
}

func (s *Simulator) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.open = false
	s.closed++
	return nil
}

// Pin returns a copy of the pin state.
func (s *Simulator) Pin(id PinID) (pin SimulatedPin, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, ok := s.pins[id]
	if !ok {
		return
	}
	return *p, true
}

func (s *Simulator) Writes(id PinID) int {
	pin, _ := s.Pin(id)
	return pin.Writes
}

// Closed reports how many times Close has been called.
func (s *Simulator) Closed() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}
