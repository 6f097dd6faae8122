package splits_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zapwave/zapwave/pkg/splits"
)

func TestValidate(t *testing.T) {
	Convey("Given recipient sets", t, func() {
		Convey("A balanced set passes", func() {
			err := splits.Validate([]splits.Recipient{
				{Name: "artist", Address: "artist@getalby.com", Percent: 80},
				{Name: "producer", Address: "producer@getalby.com", Percent: 20},
			})
			So(err, ShouldBeNil)
		})

		Convey("An empty set fails", func() {
			So(splits.Validate(nil), ShouldNotBeNil)
		})

		Convey("A missing address fails", func() {
			err := splits.Validate([]splits.Recipient{{Percent: 100}})
			So(err, ShouldNotBeNil)
		})

		Convey("A non-positive share fails", func() {
			err := splits.Validate([]splits.Recipient{
				{Address: "a@x.com", Percent: 100},
				{Address: "b@x.com", Percent: 0},
			})
			So(err, ShouldNotBeNil)
		})

		Convey("Shares not totaling 100 fail", func() {
			err := splits.Validate([]splits.Recipient{
				{Address: "a@x.com", Percent: 50},
				{Address: "b@x.com", Percent: 40},
			})
			So(err, ShouldNotBeNil)
		})

		Convey("Small float drift is tolerated", func() {
			err := splits.Validate([]splits.Recipient{
				{Address: "a@x.com", Percent: 33.33},
				{Address: "b@x.com", Percent: 33.33},
				{Address: "c@x.com", Percent: 33.34},
			})
			So(err, ShouldBeNil)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given unnormalized recipient sets", t, func() {
		Convey("Shares are rescaled to total 100", func() {
			out := splits.Normalize([]splits.Recipient{
				{Address: "a@x.com", Percent: 3},
				{Address: "b@x.com", Percent: 1},
			})
			So(len(out), ShouldEqual, 2)
			So(out[0].Percent, ShouldAlmostEqual, 75)
			So(out[1].Percent, ShouldAlmostEqual, 25)
			So(splits.Validate(out), ShouldBeNil)
		})

		Convey("Unusable entries are dropped before rescaling", func() {
			out := splits.Normalize([]splits.Recipient{
				{Address: "", Percent: 50},
				{Address: "b@x.com", Percent: -1},
				{Address: "c@x.com", Percent: 10},
			})
			So(len(out), ShouldEqual, 1)
			So(out[0].Percent, ShouldAlmostEqual, 100)
		})

		Convey("No usable recipients yields nil", func() {
			So(splits.Normalize(nil), ShouldBeNil)
			So(splits.Normalize([]splits.Recipient{{Address: "", Percent: 10}}), ShouldBeNil)
		})

		Convey("The input is not modified", func() {
			in := []splits.Recipient{{Address: "a@x.com", Percent: 3}}
			_ = splits.Normalize(in)
			So(in[0].Percent, ShouldEqual, 3)
		})
	})
}
