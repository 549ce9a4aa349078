package metrics

import (
	"context"
	"time"

	"github.com/dalemusser/shipyard/internal/app/system/blocklist"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RegisterBlocklistSize exposes the number of blocklisted tokens as a gauge
// that is evaluated on scrape.
func RegisterBlocklistSize(reg prometheus.Registerer, bl blocklist.Blocklist, logger *zap.Logger) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "blocklist",
		Name:      "entries",
		Help:      "Number of API tokens currently blocklisted.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := bl.Len(ctx)
		if err != nil {
			logger.Warn("blocklist size query failed", zap.Error(err))
			return 0
		}
		return float64(n)
	}))
}
