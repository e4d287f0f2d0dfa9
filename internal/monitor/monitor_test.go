package monitor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"regwatch.co/sentinel/internal/detector"
	"regwatch.co/sentinel/internal/model"
	"regwatch.co/sentinel/internal/monitor"
)

var _ = Describe("Monitor", func() {
	var (
		ctx       context.Context
		fetch     *mockFetcher
		classify  *mockClassifier
		snapshots *memSnapshots
		alerts    *memAlerts
		publisher *mockPublisher
		sourceUK  model.Source
		sourceEU  model.Source
	)

	BeforeEach(func() {
		ctx = context.Background()
		fetch = &mockFetcher{}
		classify = &mockClassifier{}
		snapshots = newMemSnapshots()
		alerts = &memAlerts{}
		publisher = &mockPublisher{}
		sourceUK = model.Source{ID: "uk-fca", Jurisdiction: "United Kingdom", Endpoint: "https://example.org/uk"}
		sourceEU = model.Source{ID: "eu-esma", Jurisdiction: "European Union", Endpoint: "https://example.org/eu"}
	})

	newMonitorTimeout := func(timeout time.Duration, sources ...model.Source) *monitor.Monitor {
		return monitor.New(monitor.Deps{
			Registry:   mustRegistry(sources...),
			Fetcher:    fetch,
			Classifier: classify,
			Snapshots:  snapshots,
			Alerts:     alerts,
			Publisher:  publisher,
		}, monitor.Config{Concurrency: 2, SourceTimeout: timeout})
	}

	newMonitor := func(sources ...model.Source) *monitor.Monitor {
		return newMonitorTimeout(5*time.Second, sources...)
	}

	fetchReturning := func(content string) {
		fetch.fetchFn = func(context.Context, string) (string, error) {
			return content, nil
		}
	}

	Describe("first observation", func() {
		It("stores an initial snapshot and does not consult the classifier", func() {
			fetchReturning("Licensing guidance v1")
			m := newMonitor(sourceUK)

			summary := m.RunOnce(ctx)

			Expect(summary.RunID).NotTo(BeZero())
			Expect(summary.Results).To(HaveLen(1))
			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeInitial))
			Expect(summary.Results[0].SourceID).To(Equal("uk-fca"))

			row, ok := snapshots.row("uk-fca")
			Expect(ok).To(BeTrue())
			Expect(row.RawContent).To(Equal("Licensing guidance v1"))
			Expect(row.ContentFingerprint).To(Equal(detector.Fingerprint("Licensing guidance v1")))
			Expect(row.LastChangedAt).To(Equal(row.LastScrapedAt))

			Expect(classify.callList()).To(BeEmpty())
			Expect(alerts.all()).To(BeEmpty())
		})
	})

	Describe("unchanged content", func() {
		It("advances last_scraped_at and leaves the baseline alone", func() {
			fetchReturning("Licensing guidance v1")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			before, _ := snapshots.row("uk-fca")
			time.Sleep(5 * time.Millisecond)
			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeUnchanged))

			after, _ := snapshots.row("uk-fca")
			Expect(after.ContentFingerprint).To(Equal(before.ContentFingerprint))
			Expect(after.LastChangedAt).To(Equal(before.LastChangedAt))
			Expect(after.LastScrapedAt).To(BeTemporally(">", before.LastScrapedAt))

			Expect(classify.callList()).To(BeEmpty())
		})
	})

	Describe("material change", func() {
		BeforeEach(func() {
			classify.classifyFn = func(context.Context, string, string, string) (model.Classification, error) {
				return model.Classification{
					MaterialChange: true,
					UpdateType:     "deadline_change",
					Summary:        "Quarterly filing deadline moved to the 10th",
					ImpactAnalysis: "Registrants must file five days earlier.",
					Severity:       model.SeverityCritical,
				}, nil
			}
		})

		It("emits an alert, publishes it and advances the baseline", func() {
			fetchReturning("Licensing guidance v1")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			fetchReturning("Licensing guidance v2")
			summary := m.RunOnce(ctx)

			result := summary.Results[0]
			Expect(result.Outcome).To(Equal(model.OutcomeMaterialChange))
			Expect(result.Severity).NotTo(BeNil())
			Expect(*result.Severity).To(Equal(model.SeverityCritical))
			Expect(result.AlertID).NotTo(BeNil())
			Expect(summary.AlertCount()).To(Equal(1))

			created := alerts.all()
			Expect(created).To(HaveLen(1))
			Expect(created[0].ID).To(Equal(*result.AlertID))
			Expect(created[0].SourceID).To(Equal("uk-fca"))
			Expect(created[0].UpdateType).To(Equal("deadline_change"))
			Expect(created[0].Summary).To(Equal("Quarterly filing deadline moved to the 10th"))
			Expect(created[0].Notified).To(BeFalse())

			row, _ := snapshots.row("uk-fca")
			Expect(row.RawContent).To(Equal("Licensing guidance v2"))
			Expect(row.ContentFingerprint).To(Equal(detector.Fingerprint("Licensing guidance v2")))

			msgs := publisher.messages()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].AlertID).To(Equal(created[0].ID))
			Expect(msgs[0].Jurisdiction).To(Equal("United Kingdom"))
			Expect(msgs[0].Severity).To(Equal(model.SeverityCritical))
		})

		It("hands the classifier the prior content, the new content and the jurisdiction", func() {
			fetchReturning("old body")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			fetchReturning("new body")
			m.RunOnce(ctx)

			calls := classify.callList()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].oldContent).To(Equal("old body"))
			Expect(calls[0].newContent).To(Equal("new body"))
			Expect(calls[0].jurisdiction).To(Equal("United Kingdom"))
		})

		It("still succeeds when no publisher is configured", func() {
			publisher = nil
			fetchReturning("v1")
			m := monitor.New(monitor.Deps{
				Registry:   mustRegistry(sourceUK),
				Fetcher:    fetch,
				Classifier: classify,
				Snapshots:  snapshots,
				Alerts:     alerts,
			}, monitor.Config{Concurrency: 1, SourceTimeout: 5 * time.Second})
			m.RunOnce(ctx)

			fetchReturning("v2")
			summary := m.RunOnce(ctx)
			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeMaterialChange))
			Expect(alerts.all()).To(HaveLen(1))
		})

		It("keeps the material_change outcome when publication fails", func() {
			fetchReturning("v1")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			publisher.publishErr = errors.New("stream down")
			fetchReturning("v2")
			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeMaterialChange))
			Expect(alerts.all()).To(HaveLen(1))
		})
	})

	Describe("immaterial change", func() {
		It("advances the baseline without emitting an alert", func() {
			fetchReturning("body with old timestamp")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			fetchReturning("body with new timestamp")
			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeNoMaterialChange))
			Expect(alerts.all()).To(BeEmpty())
			Expect(publisher.messages()).To(BeEmpty())

			row, _ := snapshots.row("uk-fca")
			Expect(row.RawContent).To(Equal("body with new timestamp"))
		})
	})

	Describe("fetch failure", func() {
		It("reports fetch_error and leaves the snapshot untouched", func() {
			fetchReturning("v1")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)
			before, _ := snapshots.row("uk-fca")

			fetch.fetchFn = func(context.Context, string) (string, error) {
				return "", errors.New("connection refused")
			}
			summary := m.RunOnce(ctx)

			result := summary.Results[0]
			Expect(result.Outcome).To(Equal(model.OutcomeFetchError))
			Expect(result.Error).NotTo(BeNil())
			Expect(*result.Error).To(ContainSubstring("connection refused"))

			after, _ := snapshots.row("uk-fca")
			Expect(after).To(Equal(before))
			Expect(classify.callList()).To(BeEmpty())
		})
	})

	Describe("classification failure", func() {
		It("retains the prior baseline so the same diff is retried next run", func() {
			fetchReturning("v1")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			classify.classifyFn = func(context.Context, string, string, string) (model.Classification, error) {
				return model.Classification{}, errors.New("model unavailable")
			}
			fetchReturning("v2")
			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeClassifyError))
			row, _ := snapshots.row("uk-fca")
			Expect(row.RawContent).To(Equal("v1"))
			Expect(alerts.all()).To(BeEmpty())

			// Next run sees the same diff against the retained baseline.
			classify.classifyFn = func(context.Context, string, string, string) (model.Classification, error) {
				return model.Classification{MaterialChange: false}, nil
			}
			m.RunOnce(ctx)

			calls := classify.callList()
			Expect(calls).To(HaveLen(2))
			Expect(calls[1].oldContent).To(Equal("v1"))
			Expect(calls[1].newContent).To(Equal("v2"))
		})
	})

	Describe("alert store failure", func() {
		It("reports alert_error and retains the prior baseline", func() {
			classify.classifyFn = func(context.Context, string, string, string) (model.Classification, error) {
				return model.Classification{
					MaterialChange: true,
					UpdateType:     "rule_change",
					Summary:        "s",
					Severity:       model.SeverityImportant,
				}, nil
			}
			fetchReturning("v1")
			m := newMonitor(sourceUK)
			m.RunOnce(ctx)

			alerts.createErr = func(string) error { return errors.New("insert failed") }
			fetchReturning("v2")
			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeAlertError))
			Expect(summary.AlertCount()).To(BeZero())
			Expect(publisher.messages()).To(BeEmpty())

			row, _ := snapshots.row("uk-fca")
			Expect(row.RawContent).To(Equal("v1"))
		})
	})

	Describe("snapshot store failure", func() {
		It("reports snapshot_error without attempting the fetch when the read fails", func() {
			snapshots.getErr = func(string) error { return errors.New("connection pool exhausted") }
			fetchReturning("v1")
			m := newMonitor(sourceUK)

			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeSnapshotError))
			Expect(fetch.callCount()).To(BeZero())
		})

		It("reports snapshot_error when the initial write fails", func() {
			snapshots.upsertErr = func(string) error { return errors.New("disk full") }
			fetchReturning("v1")
			m := newMonitor(sourceUK)

			summary := m.RunOnce(ctx)
			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeSnapshotError))
		})
	})

	Describe("failure isolation", func() {
		It("processes every source even when a sibling fails", func() {
			classify.classifyFn = func(context.Context, string, string, string) (model.Classification, error) {
				return model.Classification{
					MaterialChange: true,
					UpdateType:     "fee_change",
					Summary:        "Registration fee doubled",
					Severity:       model.SeverityImportant,
				}, nil
			}
			fetchReturning("v1")
			m := newMonitor(sourceUK, sourceEU)
			m.RunOnce(ctx)

			fetch.fetchFn = func(_ context.Context, endpoint string) (string, error) {
				if endpoint == sourceUK.Endpoint {
					return "", errors.New("timeout")
				}
				return "v2", nil
			}
			summary := m.RunOnce(ctx)

			Expect(summary.Results).To(HaveLen(2))
			Expect(summary.Results[0].SourceID).To(Equal("uk-fca"))
			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeFetchError))
			Expect(summary.Results[1].SourceID).To(Equal("eu-esma"))
			Expect(summary.Results[1].Outcome).To(Equal(model.OutcomeMaterialChange))
			Expect(alerts.all()).To(HaveLen(1))
			Expect(alerts.all()[0].SourceID).To(Equal("eu-esma"))
		})

		It("converts a panicking source into a failed outcome", func() {
			fetch.fetchFn = func(_ context.Context, endpoint string) (string, error) {
				if endpoint == sourceUK.Endpoint {
					panic("scraper bug")
				}
				return "fine", nil
			}
			m := newMonitor(sourceUK, sourceEU)

			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeFetchError))
			Expect(*summary.Results[0].Error).To(ContainSubstring("panic"))
			Expect(summary.Results[1].Outcome).To(Equal(model.OutcomeInitial))
		})
	})

	Describe("per-source timeout", func() {
		It("maps a fetch that outlives the deadline to fetch_error without affecting siblings", func() {
			fetch.fetchFn = func(ctx context.Context, endpoint string) (string, error) {
				if endpoint == sourceUK.Endpoint {
					<-ctx.Done()
					return "", ctx.Err()
				}
				return "fine", nil
			}
			m := newMonitorTimeout(30*time.Millisecond, sourceUK, sourceEU)

			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeFetchError))
			Expect(*summary.Results[0].Error).To(ContainSubstring("context deadline exceeded"))
			Expect(summary.Results[1].Outcome).To(Equal(model.OutcomeInitial))
		})

		It("maps a classification that outlives the deadline to classify_error and retains the baseline", func() {
			fetchReturning("v1")
			m := newMonitorTimeout(50*time.Millisecond, sourceUK)
			m.RunOnce(ctx)

			classify.classifyFn = func(cctx context.Context, _, _, _ string) (model.Classification, error) {
				<-cctx.Done()
				return model.Classification{}, cctx.Err()
			}
			fetchReturning("v2")
			summary := m.RunOnce(ctx)

			Expect(summary.Results[0].Outcome).To(Equal(model.OutcomeClassifyError))
			Expect(*summary.Results[0].Error).To(ContainSubstring("context deadline exceeded"))

			row, _ := snapshots.row("uk-fca")
			Expect(row.RawContent).To(Equal("v1"))
			Expect(alerts.all()).To(BeEmpty())
		})
	})

	Describe("concurrency", func() {
		It("never exceeds the configured worker count and preserves registry order", func() {
			var inFlight, peak atomic.Int32
			fetch.fetchFn = func(context.Context, string) (string, error) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return "content", nil
			}

			sources := []model.Source{
				{ID: "s-one", Jurisdiction: "J", Endpoint: "https://example.org/1"},
				{ID: "s-two", Jurisdiction: "J", Endpoint: "https://example.org/2"},
				{ID: "s-three", Jurisdiction: "J", Endpoint: "https://example.org/3"},
				{ID: "s-four", Jurisdiction: "J", Endpoint: "https://example.org/4"},
				{ID: "s-five", Jurisdiction: "J", Endpoint: "https://example.org/5"},
				{ID: "s-six", Jurisdiction: "J", Endpoint: "https://example.org/6"},
			}
			m := newMonitor(sources...)

			summary := m.RunOnce(ctx)

			Expect(peak.Load()).To(BeNumerically("<=", 2))
			Expect(summary.Results).To(HaveLen(len(sources)))
			for i, src := range sources {
				Expect(summary.Results[i].SourceID).To(Equal(src.ID))
			}
		})
	})
})
