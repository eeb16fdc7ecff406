package services

import (
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// noopMetrics discards every measurement.
type noopMetrics struct{}

var _ driven.Metrics = noopMetrics{}

func (noopMetrics) ObserveSearch(domain.Source, time.Duration, int, error) {}
func (noopMetrics) ObserveRetrieve(time.Duration, int, error)              {}
func (noopMetrics) ObserveIndexed(domain.Source, int, int)                 {}

func metricsOrNoop(m driven.Metrics) driven.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
