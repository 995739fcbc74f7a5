package base

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

func requestsTotal(transport string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`eekv_rpc_requests_total{transport=%q}`, transport))
}

func requestErrorsTotal(transport string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`eekv_rpc_request_errors_total{transport=%q}`, transport))
}

func activeConnections(transport string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`eekv_rpc_active_connections{transport=%q}`, transport))
}
