// Package metrics holds the Prometheus instruments shared by the API
// and the sync worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	MutationsCommitted prometheus.Counter
	PostingsGenerated  prometheus.Counter
	TxPosted           prometheus.Counter
	ProposalsEmitted   prometheus.Counter
	OutboxPublished    prometheus.Counter
	OutboxFailed       prometheus.Counter
	ChainVerifications prometheus.Counter
	ChainIntact        *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		MutationsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_mutations_committed_total",
			Help: "Mutation envelopes committed to the audit log",
		}),
		PostingsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_postings_generated_total",
			Help: "Draft posting sets generated",
		}),
		TxPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_tx_posted_total",
			Help: "Transactions posted to the ledger",
		}),
		ProposalsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_proposals_emitted_total",
			Help: "Advisory proposals emitted by rule evaluation",
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_published_total",
			Help: "Outbox envelopes published to the sync topic",
		}),
		OutboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_failed_total",
			Help: "Outbox envelopes that exhausted publish retries",
		}),
		ChainVerifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_chain_verifications_total",
			Help: "Audit chain verification runs",
		}),
		ChainIntact: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_chain_intact",
			Help: "1 while the org audit chain verifies, 0 after a break is found",
		}, []string{"org_id"}),
	}
}
