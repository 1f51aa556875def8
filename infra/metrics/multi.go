package metrics

import (
	"errors"

	coremetrics "ampgate/core/metrics"
)

// MultiSink fans records out to several sinks, collecting all errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordSample(s coremetrics.Sample) error {
	var errs []error
	for _, sink := range m.sinks {
		errs = append(errs, sink.RecordSample(s))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordCommand(c coremetrics.Command) error {
	var errs []error
	for _, sink := range m.sinks {
		errs = append(errs, sink.RecordCommand(c))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSkip(reason string) error {
	var errs []error
	for _, sink := range m.sinks {
		errs = append(errs, sink.RecordSkip(reason))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRestart() error {
	var errs []error
	for _, sink := range m.sinks {
		errs = append(errs, sink.RecordRestart())
	}
	return errors.Join(errs...)
}
