package onboard

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// onFraction ticks p with a fixed step for the given number of periods and
// returns the share of ticks that reported on.
func onFraction(p *PWM, clock *fakeClock, factor float64, periods int) float64 {
	step := time.Duration(float64(Period(p.Frequency())) / factor)
	ticks := int(factor) * periods
	on := 0
	for i := 0; i < ticks; i++ {
		clock.Advance(step)
		p.Tick()
		if p.Eval() {
			on++
		}
	}
	return float64(on) / float64(ticks)
}

func TestPWMConvergence(t *testing.T) {
	for _, factor := range []float64{100, 1000} {
		Convey(fmt.Sprintf("ticking at %vx the frequency tracks the duty cycle", factor), t, func() {
			for _, duty := range []float64{10, 25, 50, 75, 90} {
				clock := newFakeClock()
				p := NewPWMWithClock(60, duty, clock.Now)
				So(onFraction(p, clock, factor, 20), ShouldAlmostEqual, duty/100, 0.02)
			}
		})
	}

	Convey("a servo duty cycle converges at the default tick rate", t, func() {
		clock := newFakeClock()
		duty := DutyCycleFromPulseWidth(60, 1600*time.Microsecond)
		p := NewPWMWithClock(60, duty, clock.Now)
		So(onFraction(p, clock, 200, 30), ShouldAlmostEqual, duty/100, 0.02)
	})

	Convey("eval has no side effects", t, func() {
		clock := newFakeClock()
		p := NewPWMWithClock(60, 50, clock.Now)
		clock.Advance(time.Millisecond)
		p.Tick()
		So(p.Eval(), ShouldBeTrue)
		So(p.Eval(), ShouldBeTrue)
	})

	Convey("the accumulator resets once a full period has elapsed", t, func() {
		clock := newFakeClock()
		p := NewPWMWithClock(60, 50, clock.Now)
		clock.Advance(Period(60) + time.Millisecond)
		p.Tick()
		So(p.Eval(), ShouldBeFalse)

		clock.Advance(time.Millisecond)
		p.Tick()
		So(p.Eval(), ShouldBeTrue)
	})
}

func TestPWMDutyCycle(t *testing.T) {
	Convey("duty cycles are clamped to (0, 100]", t, func() {
		p := NewPWM(60, 50)
		So(p.DutyCycle(), ShouldEqual, 50)

		p.SetDutyCycle(0)
		So(p.DutyCycle(), ShouldEqual, 0.1)

		p.SetDutyCycle(-20)
		So(p.DutyCycle(), ShouldEqual, 0.1)

		p.SetDutyCycle(150)
		So(p.DutyCycle(), ShouldEqual, 100)

		Convey("including at construction", func() {
			So(NewPWM(60, 0).DutyCycle(), ShouldEqual, 0.1)
			So(NewPWM(60, 101).DutyCycle(), ShouldEqual, 100)
		})
	})

	Convey("the minimum tick rate is two orders above the frequency", t, func() {
		So(NewPWM(60, 50).MinTickRate(), ShouldEqual, 6000)
		So(NewPWM(50, 50).MinTickRate(), ShouldEqual, 5000)
	})

	Convey("state reports the channel", t, func() {
		state := NewPWM(60, 9.6).State()
		So(state.Frequency, ShouldEqual, 60)
		So(state.DutyCycle, ShouldEqual, 9.6)
		So(state.On, ShouldBeFalse)
	})
}
