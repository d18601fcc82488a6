package main

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJournal(t *testing.T) {
	Convey("with an open journal", t, func() {
		j, cleanup := tempJournal()
		Reset(cleanup)

		Convey("an empty journal has no entries", func() {
			entries, err := j.Recent(5)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("entries come back newest first", func() {
			j.Record("shell", "drive f 50", nil)
			j.Record("routine:lap.jors", "steer 1400", nil)
			j.Record("shell", "fly", errors.New("unknown command"))

			entries, err := j.Recent(10)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 3)
			So(entries[0].Line, ShouldEqual, "fly")
			So(entries[0].Error, ShouldEqual, "unknown command")
			So(entries[2].Line, ShouldEqual, "drive f 50")
			So(entries[2].Error, ShouldBeEmpty)
			So(entries[1].Source, ShouldEqual, "routine:lap.jors")
			So(entries[0].ID > entries[2].ID, ShouldBeTrue)

			Convey("and are limited", func() {
				entries, err := j.Recent(2)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[1].Line, ShouldEqual, "steer 1400")
			})
		})

		Convey("the dispatcher journals through it", func() {
			s := newSession()
			s.dispatcher.SetRecorder(j)
			s.dispatcher.Dispatch(context.Background(), "override 1")

			entries, err := j.Recent(1)
			So(err, ShouldBeNil)
			So(entries[0].Line, ShouldEqual, "override 1")
			So(entries[0].Source, ShouldEqual, "shell")
		})
	})
}
