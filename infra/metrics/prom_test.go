package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "ampgate/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordSample(coremetrics.Sample{HouseAmps: 9.5, CarAmps: 3, Time: time.Now()}))
	require.NoError(t, sink.RecordCommand(coremetrics.Command{Amps: 4, PreviousAmps: 6, Time: time.Now()}))
	require.NoError(t, sink.RecordCommand(coremetrics.Command{Amps: 6, PreviousAmps: 4, Time: time.Now()}))
	require.NoError(t, sink.RecordSkip("hysteresis"))
	require.NoError(t, sink.RecordRestart())

	ps := sink.(*PromSink)
	require.Equal(t, 9.5, testutil.ToFloat64(ps.houseAmps))
	require.Equal(t, 3.0, testutil.ToFloat64(ps.carAmps))
	require.Equal(t, 6.0, testutil.ToFloat64(ps.commandedAmps))
	require.Equal(t, 2.0, testutil.ToFloat64(ps.commands))
	require.Equal(t, 1.0, testutil.ToFloat64(ps.skips.WithLabelValues("hysteresis")))
	require.Equal(t, 1.0, testutil.ToFloat64(ps.restarts))
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	_, err = NewPromSinkWithRegistry(reg)
	require.NoError(t, err, "re-registration must reuse existing collectors")
}

func TestMultiSinkFansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	multi := NewMultiSink(a, coremetrics.NopSink{})
	require.NoError(t, multi.RecordSample(coremetrics.Sample{HouseAmps: 1, CarAmps: 1}))
	require.NoError(t, multi.RecordSkip("disabled"))
	require.Equal(t, 1.0, testutil.ToFloat64(a.(*PromSink).houseAmps))
}
