package metrics

import "time"

// Sample is one aggregator observation of house and vehicle draw.
type Sample struct {
	HouseAmps float64
	CarAmps   float64
	Time      time.Time
}

// Command records a charging-current command sent to the vehicle.
type Command struct {
	Amps         int
	PreviousAmps float64
	Time         time.Time
}

// Sink records controller activity for observability purposes.
type Sink interface {
	RecordSample(s Sample) error
	RecordCommand(c Command) error
	RecordSkip(reason string) error
	RecordRestart() error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordSample(Sample) error   { return nil }
func (NopSink) RecordCommand(Command) error { return nil }
func (NopSink) RecordSkip(string) error     { return nil }
func (NopSink) RecordRestart() error        { return nil }
