package onboard

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	mDutyMin = 0.1
	mDutyMax = 100.0
)

func clamp(v, low, high float64) float64 {
	return mgl64.Clamp(v, low, high)
}

// Period returns the length of one PWM cycle at frequency (Hz).
func Period(frequency float64) time.Duration {
	if frequency <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / frequency)
}

// DutyCycleFromPulseWidth expresses pulse as a percentage of one period at
// frequency, saturating at 0 and 100.
func DutyCycleFromPulseWidth(frequency float64, pulse time.Duration) float64 {
	if pulse <= 0 || frequency <= 0 {
		return 0
	}
	if pulse >= Period(frequency) {
		return 100
	}
	period := 1 / frequency
	return clamp(pulse.Seconds()/period*100, 0, 100)
}

// lerpPulse moves from neutral towards target by percent (0-100).
func lerpPulse(neutral, target time.Duration, percent float64) time.Duration {
	percent = clamp(percent, 0, 100)
	return neutral + time.Duration(float64(target-neutral)*percent/100)
}

// DrivePulse maps a throttle percentage onto the ESC pulse width for dir.
func DrivePulse(t DriveTuning, dir Direction, percent float64) time.Duration {
	if dir == DirectionBackward {
		return lerpPulse(t.Neutral, t.ReverseMax, percent)
	}
	return lerpPulse(t.Neutral, t.ForwardMax, percent)
}

// SteerPulse converts a steering position in microseconds to a pulse width,
// clamped to the servo travel.
func SteerPulse(t SteerTuning, micros int) time.Duration {
	v := int(clamp(float64(micros), float64(t.Min), float64(t.Max)))
	return time.Duration(v) * time.Microsecond
}
