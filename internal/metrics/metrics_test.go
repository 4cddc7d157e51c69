package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New(reg)

	obs.OnConnect("success", 250*time.Millisecond)
	obs.OnConnect("success", 750*time.Millisecond)
	obs.OnConnect("handshake_failed", time.Second)
	obs.OnHandshake(4, nil)
	obs.OnHandshake(2, errors.New("mocked error"))
	obs.OnTransfer("send", 10)
	obs.OnTransfer("send", 5)
	obs.OnTransfer("recv", 7)

	t.Run("connect_total", func(t *testing.T) {
		if v := testutil.ToFloat64(obs.connectTotal.WithLabelValues("success")); v != 2 {
			t.Fatal("unexpected success count", v)
		}
		if v := testutil.ToFloat64(obs.connectTotal.WithLabelValues("handshake_failed")); v != 1 {
			t.Fatal("unexpected failure count", v)
		}
	})

	t.Run("bytes_total", func(t *testing.T) {
		if v := testutil.ToFloat64(obs.bytesTotal.WithLabelValues("send")); v != 15 {
			t.Fatal("unexpected sent bytes", v)
		}
		if v := testutil.ToFloat64(obs.bytesTotal.WithLabelValues("recv")); v != 7 {
			t.Fatal("unexpected received bytes", v)
		}
	})

	t.Run("histogram and summary", func(t *testing.T) {
		expect := `
# HELP tlstransport_handshake_steps Number of steps taken by each TLS handshake
# TYPE tlstransport_handshake_steps histogram
tlstransport_handshake_steps_bucket{le="1"} 0
tlstransport_handshake_steps_bucket{le="3"} 1
tlstransport_handshake_steps_bucket{le="5"} 2
tlstransport_handshake_steps_bucket{le="7"} 2
tlstransport_handshake_steps_bucket{le="9"} 2
tlstransport_handshake_steps_bucket{le="11"} 2
tlstransport_handshake_steps_bucket{le="13"} 2
tlstransport_handshake_steps_bucket{le="15"} 2
tlstransport_handshake_steps_bucket{le="+Inf"} 2
tlstransport_handshake_steps_sum 6
tlstransport_handshake_steps_count 2
`
		err := testutil.GatherAndCompare(reg, strings.NewReader(expect), "tlstransport_handshake_steps")
		if err != nil {
			t.Fatal(err)
		}
		if n := testutil.CollectAndCount(obs.connectDurationSeconds); n != 1 {
			t.Fatal("unexpected number of summaries", n)
		}
	})

	t.Run("registered metrics", func(t *testing.T) {
		families, err := reg.Gather()
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, mf := range families {
			names = append(names, mf.GetName())
		}
		expect := "tlstransport_bytes_total,tlstransport_connect_duration_seconds," +
			"tlstransport_connect_total,tlstransport_handshake_steps"
		if got := strings.Join(names, ","); got != expect {
			t.Fatal("unexpected metrics", got)
		}
	})
}

func TestNewWithoutRegistry(t *testing.T) {
	obs := New(nil)
	obs.OnConnect("success", time.Second)
	if v := testutil.ToFloat64(obs.connectTotal.WithLabelValues("success")); v != 1 {
		t.Fatal("unexpected count", v)
	}
}
