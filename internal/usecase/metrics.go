package usecase

import (
	"time"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

// Metrics receives pipeline and scheduler observations.
type Metrics interface {
	ObserveRun(report domain.RunReport, duration time.Duration)
	SourceFetched(source string, count int)
	SourceFailed(source string)
	OutputFailed(output string)
	TriggerSkipped()
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveRun(domain.RunReport, time.Duration) {}
func (NopMetrics) SourceFetched(string, int)                  {}
func (NopMetrics) SourceFailed(string)                        {}
func (NopMetrics) OutputFailed(string)                        {}
func (NopMetrics) TriggerSkipped()                            {}
