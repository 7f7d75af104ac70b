package metrics

import (
	"testing"
	"time"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/engine"
)

func Benchmark_Collector_RecordEvaluation(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordEvaluation(engine.KindInteraction, safety.LevelWarning, safety.InterventionFirmBoundary, time.Millisecond)
	}
}

func Benchmark_Collector_RecordEvaluation_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), nil)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordEvaluation(engine.KindSession, safety.LevelSafe, safety.InterventionNone, time.Millisecond)
		}
	})
}
