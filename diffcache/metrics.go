package diffcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sbomdiff",
		Subsystem: "diffcache",
		Name:      "lookup_total",
		Help:      "Cache lookups, labeled by whether the key was present.",
	}, []string{"result"})
	insertCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sbomdiff",
		Subsystem: "diffcache",
		Name:      "insert_total",
		Help:      "Results inserted into the cache.",
	})
)
