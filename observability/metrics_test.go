package observability

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	req := require.New(t)
	m := NewMetrics(prometheus.NewRegistry())

	m.APICall("sendMessage", nil)
	m.APICall("sendMessage", nil)
	m.APICall("sendMessage", fmt.Errorf("boom"))
	m.HeartbeatMissed(true)
	m.HeartbeatMissed(false)
	m.HeartbeatMissed(false)
	m.FrameDropped()
	m.ReconnectRequested()

	req.Equal(2.0, testutil.ToFloat64(m.apiCalls.WithLabelValues("sendMessage", "ok")))
	req.Equal(1.0, testutil.ToFloat64(m.apiCalls.WithLabelValues("sendMessage", "error")))
	req.Equal(1.0, testutil.ToFloat64(m.heartbeatsMissed.WithLabelValues("deep")))
	req.Equal(2.0, testutil.ToFloat64(m.heartbeatsMissed.WithLabelValues("shallow")))
	req.Equal(1.0, testutil.ToFloat64(m.framesDropped))
	req.Equal(1.0, testutil.ToFloat64(m.reconnects))
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.FrameDropped()

	count, err := testutil.GatherAndCount(reg, "chat_session_frames_dropped_total")

	require.NoError(t, err)
	require.Equal(t, 1, count)
}
