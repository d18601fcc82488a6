package command

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/CodedInternet/gojacobian/onboard"
	jerrors "github.com/CodedInternet/gojacobian/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	Convey("with a dispatcher", t, func() {
		r := newRig()

		Convey("unknown commands are recoverable", func() {
			err := r.d.Dispatch(ctx, "fly 100")
			var unknown jerrors.UnknownCommandError
			So(errors.As(err, &unknown), ShouldBeTrue)
			So(unknown.Name, ShouldEqual, "fly")
			So(r.ctrl.IsRunning(), ShouldBeTrue)
		})

		Convey("blank lines do nothing", func() {
			So(r.d.Dispatch(ctx, "   "), ShouldBeNil)
			So(r.recorder.Lines(), ShouldBeEmpty)
		})

		Convey("drive", func() {
			Convey("applies forward throttle", func() {
				So(r.d.Dispatch(ctx, "drive f 50"), ShouldBeNil)
				So(r.train.DriveChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(1750*time.Microsecond), 1e-9)
			})

			Convey("runs the reverse sequence before reversing", func() {
				So(r.d.Dispatch(ctx, "drive b 100"), ShouldBeNil)
				So(r.holds.holds, ShouldResemble, []time.Duration{time.Second, 250 * time.Millisecond})
				So(r.train.State(), ShouldEqual, onboard.StateReverse)
			})

			Convey("clamps the percentage", func() {
				So(r.d.Dispatch(ctx, "drive f 400"), ShouldBeNil)
				So(r.train.DriveChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(2000*time.Microsecond), 1e-9)
			})

			Convey("rejects malformed arguments", func() {
				for _, line := range []string{"drive", "drive f", "drive f 50 60", "drive x 50", "drive f fast", "drive f NaN", "drive b nan"} {
					err := r.d.Dispatch(ctx, line)
					var parse jerrors.ParseError
					So(errors.As(err, &parse), ShouldBeTrue)
					So(parse.Command, ShouldEqual, "drive")
				}
				So(r.train.DriveChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(1500*time.Microsecond), 1e-9)
				So(r.holds.holds, ShouldBeEmpty)
				So(r.train.State(), ShouldEqual, onboard.StateForwardOrIdle)
			})
		})

		Convey("steer clamps to the servo travel", func() {
			So(r.d.Dispatch(ctx, "steer 500"), ShouldBeNil)
			So(r.train.SteerChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(1200*time.Microsecond), 1e-9)

			So(r.d.Dispatch(ctx, "steer 9999"), ShouldBeNil)
			So(r.train.SteerChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(2000*time.Microsecond), 1e-9)

			So(r.d.Dispatch(ctx, "steer -99999999999999999999"), ShouldBeNil)
			So(r.train.SteerChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(1200*time.Microsecond), 1e-9)

			So(r.d.Dispatch(ctx, "steer 99999999999999999999"), ShouldBeNil)
			So(r.train.SteerChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(2000*time.Microsecond), 1e-9)

			So(r.d.Dispatch(ctx, "steer left"), ShouldHaveSameTypeAs, jerrors.ParseError{})
			So(r.d.Dispatch(ctx, "steer"), ShouldHaveSameTypeAs, jerrors.ParseError{})
		})

		Convey("break holds the brake then idles", func() {
			So(r.d.Dispatch(ctx, "break"), ShouldBeNil)
			So(r.holds.holds, ShouldResemble, []time.Duration{100 * time.Millisecond})
			So(r.train.DriveChannel().DutyCycle(), ShouldAlmostEqual, pulseDuty(1500*time.Microsecond), 1e-9)

			So(r.d.Dispatch(ctx, "break now"), ShouldHaveSameTypeAs, jerrors.ParseError{})
		})

		Convey("override accepts only 0 or 1", func() {
			So(r.d.Dispatch(ctx, "override 1"), ShouldBeNil)
			So(r.ctrl.IsOverridden(), ShouldBeTrue)
			So(r.d.Dispatch(ctx, "override 0"), ShouldBeNil)
			So(r.ctrl.IsOverridden(), ShouldBeFalse)

			So(r.d.Dispatch(ctx, "override 2"), ShouldHaveSameTypeAs, jerrors.ParseError{})
			So(r.d.Dispatch(ctx, "override"), ShouldHaveSameTypeAs, jerrors.ParseError{})
			So(r.ctrl.IsOverridden(), ShouldBeFalse)
		})

		Convey("stop clears the run flag and calls the hook", func() {
			stopped := false
			r.d.OnStop(func() { stopped = true })
			So(r.d.Dispatch(ctx, "stop"), ShouldBeNil)
			So(r.ctrl.IsRunning(), ShouldBeFalse)
			So(stopped, ShouldBeTrue)
		})

		Convey("log toggles verbose logging", func() {
			So(r.level.Level(), ShouldEqual, slog.LevelInfo)
			So(r.d.Dispatch(ctx, "log"), ShouldBeNil)
			So(r.level.Level(), ShouldEqual, slog.LevelDebug)
			So(r.d.Dispatch(ctx, "log"), ShouldBeNil)
			So(r.level.Level(), ShouldEqual, slog.LevelInfo)
		})

		Convey("help prints the banner", func() {
			So(r.d.Dispatch(ctx, "help"), ShouldBeNil)
			So(r.out.String(), ShouldContainSubstring, "JacobianOS version "+VERSION)
			So(r.out.String(), ShouldContainSubstring, "override (0 or 1)")
		})

		Convey("load needs exactly one path", func() {
			So(r.d.Dispatch(ctx, "load"), ShouldHaveSameTypeAs, jerrors.ParseError{})
			So(r.d.Dispatch(ctx, "load a b"), ShouldHaveSameTypeAs, jerrors.ParseError{})
		})

		Convey("every line is recorded with its outcome", func() {
			r.d.Dispatch(ctx, "steer 1500")
			r.d.Dispatch(ctx, "nope")
			So(r.recorder.Lines(), ShouldResemble, []string{"steer 1500", "nope"})
			So(r.recorder.entries[0].source, ShouldEqual, SOURCE_SHELL)
			So(r.recorder.entries[0].err, ShouldBeNil)
			So(r.recorder.entries[1].err, ShouldNotBeNil)
		})

		Convey("the command table is fixed", func() {
			So(r.d.Commands(), ShouldResemble, []string{"break", "drive", "help", "load", "log", "override", "steer", "stop"})
		})
	})
}
