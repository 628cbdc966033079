package room

import (
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type roomMetrics struct {
	moves          metric.Int64Counter
	boardsResolved metric.Int64Counter
	matches        metric.Int64Counter
	aiSelect       metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	instruments *roomMetrics
)

func getMetrics() *roomMetrics {
	metricsOnce.Do(func() {
		m, err := newRoomMetrics(otel.Meter("room"))
		if err != nil {
			slog.Error("failed to create room metrics, falling back to no-op", "error", err)
			m, _ = newRoomMetrics(noop.NewMeterProvider().Meter("room"))
		}
		instruments = m
	})
	return instruments
}

func newRoomMetrics(meter metric.Meter) (*roomMetrics, error) {
	moves, err := meter.Int64Counter("uttt.moves", metric.WithDescription("Accepted moves"))
	if err != nil {
		return nil, err
	}
	boards, err := meter.Int64Counter("uttt.boards.resolved", metric.WithDescription("Boards won or drawn"))
	if err != nil {
		return nil, err
	}
	matches, err := meter.Int64Counter("uttt.matches.completed", metric.WithDescription("Completed matches"))
	if err != nil {
		return nil, err
	}
	aiSelect, err := meter.Float64Histogram("uttt.ai.select",
		metric.WithDescription("Time spent choosing a computer move"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &roomMetrics{moves: moves, boardsResolved: boards, matches: matches, aiSelect: aiSelect}, nil
}
