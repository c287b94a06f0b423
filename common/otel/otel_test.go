package otel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/trigger/common/otel"
	"basegraph.app/trigger/core/config"
)

var _ = Describe("ParseHeaders", func() {
	It("splits comma separated pairs", func() {
		Expect(otel.ParseHeaders("a=1, b = two")).To(Equal(map[string]string{"a": "1", "b": "two"}))
	})

	It("keeps '=' inside values", func() {
		Expect(otel.ParseHeaders("Authorization=Basic abc==")).To(HaveKeyWithValue("Authorization", "Basic abc=="))
	})

	It("skips malformed pairs", func() {
		Expect(otel.ParseHeaders("")).To(BeEmpty())
		Expect(otel.ParseHeaders("novalue")).To(BeEmpty())
	})
})

var _ = Describe("Setup", func() {
	It("is disabled without an endpoint", func() {
		telemetry, err := otel.Setup(context.Background(), config.OTelConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(telemetry).To(BeNil())
	})
})
