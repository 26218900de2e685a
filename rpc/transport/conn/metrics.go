package conn

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// Process-wide connection metrics. They are exposed by whoever calls
// metrics.WritePrometheus (see the serve command).
var (
	activeConnections atomic.Int64

	connectionsOpened = metrics.NewCounter("dgrid_conn_opened_total")
	connectionsClosed = metrics.NewCounter("dgrid_conn_closed_total")
	bytesRead         = metrics.NewCounter("dgrid_conn_read_bytes_total")
	bytesWritten      = metrics.NewCounter("dgrid_conn_written_bytes_total")
	sendFailures      = metrics.NewCounter("dgrid_conn_send_failures_total")
	handlerFaults     = metrics.NewCounter("dgrid_conn_handler_faults_total")
	ioFailures        = metrics.NewCounter("dgrid_conn_io_failures_total")

	_ = metrics.NewGauge("dgrid_conn_active", func() float64 {
		return float64(activeConnections.Load())
	})
)
