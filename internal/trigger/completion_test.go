package trigger_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/trigger/internal/trigger"
)

var _ = Describe("MergeRequestNote", func() {
	It("renders a success note", func() {
		note := trigger.MergeRequestNote("Jenkins", trigger.BuildSuccess, "https://ci.example.com/job/app/12/")
		Expect(note).To(Equal(":white_check_mark: Jenkins Build Success\n\nResults available at: [Jenkins](https://ci.example.com/job/app/12/)"))
	})

	DescribeTable("failure glyph",
		func(result trigger.BuildResult, label string) {
			note := trigger.MergeRequestNote("CI", result, "u")
			Expect(note).To(HavePrefix(":anguished: CI Build " + label))
		},
		Entry("failure", trigger.BuildFailure, "Failed"),
		Entry("unstable", trigger.BuildUnstable, "Unstable"),
		Entry("aborted", trigger.BuildAborted, "Aborted"),
		Entry("not built", trigger.BuildNotBuilt, "Not built"),
	)

	It("parses results case-insensitively", func() {
		result, err := trigger.ParseBuildResult(" success ")
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(trigger.BuildSuccess))

		_, err = trigger.ParseBuildResult("exploded")
		Expect(err).To(HaveOccurred())
	})
})
