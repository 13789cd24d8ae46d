package odm

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
)

// kindMetrics are the counters of one kind. Counters are shared by every Kind registered
// under the same name.
type kindMetrics struct {
	cacheHits    *metrics.Counter
	cacheMisses  *metrics.Counter
	cacheRepairs *metrics.Counter
	cacheCorrupt *metrics.Counter
	inserts      *metrics.Counter
	updates      *metrics.Counter
	deletes      *metrics.Counter
}

func newKindMetrics(kind string) kindMetrics {
	counter := func(name, label string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`dodm_odm_%s{kind=%q%s}`, name, kind, label))
	}
	return kindMetrics{
		cacheHits:    counter("cache_lookups_total", `,result="hit"`),
		cacheMisses:  counter("cache_lookups_total", `,result="miss"`),
		cacheRepairs: counter("cache_repairs_total", ""),
		cacheCorrupt: counter("cache_corrupt_snapshots_total", ""),
		inserts:      counter("writes_total", `,op="insert"`),
		updates:      counter("writes_total", `,op="update"`),
		deletes:      counter("writes_total", `,op="delete"`),
	}
}
