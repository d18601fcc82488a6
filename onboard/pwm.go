package onboard

import (
	"math"
	"sync"
	"time"
)

// TickRateFactor is how many times faster than its frequency a channel must
// be ticked for the emitted signal to track the configured duty cycle.
const TickRateFactor = 100

// Clock returns the current time. time.Now carries a monotonic reading, which
// is what elapsed-time math relies on.
type Clock func() time.Time

// PWM is a software PWM channel. Nothing drives it but Tick: every call samples
// the clock, accumulates the elapsed time and decides whether the signal is in
// the "on" part of the current period.
type PWM struct {
	lock      *sync.Mutex
	frequency float64
	dutyCycle float64
	on        bool

	clock    Clock
	last     time.Time
	current  time.Time
	delta    time.Duration // accumulated since the cycle began
	position float64       // delta as a fraction of period
	period   time.Duration
}

func NewPWM(frequency, dutyCycle float64) *PWM {
	return NewPWMWithClock(frequency, dutyCycle, time.Now)
}

func NewPWMWithClock(frequency, dutyCycle float64, clock Clock) *PWM {
	p := &PWM{
		lock:      new(sync.Mutex),
		frequency: frequency,
		clock:     clock,
		period:    Period(frequency),
	}
	p.dutyCycle = clampDuty(dutyCycle)
	p.current = clock()
	p.last = p.current
	return p
}

func clampDuty(duty float64) float64 {
	if math.IsNaN(duty) {
		return mDutyMin
	}
	return clamp(duty, mDutyMin, mDutyMax)
}

// SetDutyCycle stores duty clamped to [0.1, 100].
func (p *PWM) SetDutyCycle(duty float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.dutyCycle = clampDuty(duty)
}

func (p *PWM) DutyCycle() float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dutyCycle
}

func (p *PWM) Frequency() float64 {
	return p.frequency
}

// MinTickRate is the slowest tick rate (Hz) at which the channel's duty cycle
// is still honoured.
func (p *PWM) MinTickRate() float64 {
	return p.frequency * TickRateFactor
}

// Tick advances the channel to the current time. It must be called far more
// often than the channel frequency; see MinTickRate.
func (p *PWM) Tick() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.last = p.current
	p.current = p.clock()
	p.delta += p.current.Sub(p.last)

	if p.period <= 0 {
		p.on = false
		return
	}
	p.position = float64(p.delta) / float64(p.period)
	if p.position <= p.dutyCycle/100 {
		p.on = true
		return
	}
	if p.position >= 1 {
		p.delta = 0
	}
	p.on = false
}

// Eval reports the on/off state computed by the last Tick.
func (p *PWM) Eval() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.on
}

type ChannelState struct {
	Frequency float64 `json:"frequency"`
	DutyCycle float64 `json:"duty_cycle"`
	On        bool    `json:"on"`
}

func (p *PWM) State() ChannelState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return ChannelState{
		Frequency: p.frequency,
		DutyCycle: p.dutyCycle,
		On:        p.on,
	}
}
