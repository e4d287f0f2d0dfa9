package classifier_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"regwatch.co/sentinel/internal/classifier"
	"regwatch.co/sentinel/internal/model"
)

var _ = Describe("Normalize", func() {
	It("passes through a valid material change", func() {
		cls, err := classifier.Normalize(classifier.RawResult{
			HasMaterialChange: true,
			UpdateType:        "form_update",
			Summary:           "New form introduced",
			ImpactAnalysis:    "All registrants must use form 12-C from March.",
			Severity:          "critical",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cls.MaterialChange).To(BeTrue())
		Expect(cls.UpdateType).To(Equal("form_update"))
		Expect(cls.Summary).To(Equal("New form introduced"))
		Expect(cls.Severity).To(Equal(model.SeverityCritical))
	})

	It("accepts a no-change result with empty detail fields", func() {
		cls, err := classifier.Normalize(classifier.RawResult{HasMaterialChange: false})
		Expect(err).NotTo(HaveOccurred())
		Expect(cls.MaterialChange).To(BeFalse())
		Expect(cls.Severity).To(BeEmpty())
	})

	It("ignores stray detail fields on a no-change result", func() {
		cls, err := classifier.Normalize(classifier.RawResult{
			HasMaterialChange: false,
			Summary:           "nothing really changed",
			Severity:          "info",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cls).To(Equal(model.Classification{MaterialChange: false}))
	})

	DescribeTable("rejects incoherent material changes",
		func(raw classifier.RawResult) {
			_, err := classifier.Normalize(raw)
			Expect(err).To(HaveOccurred())
			var cerr *classifier.Error
			Expect(errors.As(err, &cerr)).To(BeTrue())
		},
		Entry("missing update_type", classifier.RawResult{
			HasMaterialChange: true, Summary: "s", Severity: "info",
		}),
		Entry("missing summary", classifier.RawResult{
			HasMaterialChange: true, UpdateType: "rule_change", Severity: "info",
		}),
		Entry("missing severity", classifier.RawResult{
			HasMaterialChange: true, UpdateType: "rule_change", Summary: "s",
		}),
		Entry("unknown severity value", classifier.RawResult{
			HasMaterialChange: true, UpdateType: "rule_change", Summary: "s", Severity: "catastrophic",
		}),
		Entry("severity with wrong case", classifier.RawResult{
			HasMaterialChange: true, UpdateType: "rule_change", Summary: "s", Severity: "Critical",
		}),
	)
})
