package fault_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/courtside/reservation-guard/internal/fault"
)

var _ = Describe("Fault kinds", func() {
	Describe("KindOf", func() {
		It("extracts the kind from a tagged error", func() {
			err := fault.New(fault.KindDataAccess, "connection pool exhausted")
			Expect(fault.KindOf(err)).To(Equal(fault.KindDataAccess))
		})

		It("extracts the kind through wrapping layers", func() {
			inner := fault.New(fault.KindConnection, "gateway unreachable")
			wrapped := fmt.Errorf("processing payment: %w", inner)
			Expect(fault.KindOf(wrapped)).To(Equal(fault.KindConnection))
		})

		It("reports KindNone for untagged errors", func() {
			Expect(fault.KindOf(errors.New("some bug"))).To(Equal(fault.KindNone))
		})

		It("reports KindNone for nil", func() {
			Expect(fault.KindOf(nil)).To(Equal(fault.KindNone))
		})
	})

	Describe("Wrap", func() {
		It("returns nil for a nil cause", func() {
			Expect(fault.Wrap(fault.KindValidation, nil)).To(BeNil())
		})

		It("preserves the cause for errors.Is", func() {
			cause := errors.New("row not found")
			err := fault.Wrap(fault.KindDataAccess, cause)
			Expect(errors.Is(err, cause)).To(BeTrue())
		})

		It("tags the cause with the kind", func() {
			err := fault.Wrap(fault.KindTimeout, errors.New("deadline exceeded"))
			Expect(fault.KindOf(err)).To(Equal(fault.KindTimeout))
		})
	})

	Describe("New", func() {
		It("formats the message with the kind prefix", func() {
			err := fault.New(fault.KindValue, "bad duration %d", 42)
			Expect(err.Error()).To(Equal("value: bad duration 42"))
		})
	})

	Describe("ParseKind", func() {
		It("round-trips every kind through its string form", func() {
			kinds := []fault.Kind{
				fault.KindDataAccess,
				fault.KindValidation,
				fault.KindConnection,
				fault.KindTimeout,
				fault.KindValue,
			}
			for _, kind := range kinds {
				Expect(fault.ParseKind(kind.String())).To(Equal(kind))
			}
		})

		It("maps unknown strings to KindNone", func() {
			Expect(fault.ParseKind("cosmic_rays")).To(Equal(fault.KindNone))
		})
	})
})
