package notify

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nhle/repowatch/internal/model"
)

// BadgeColor is the color hint sent with a non-empty badge.
const BadgeColor = "#0366d6"

// Badge is what the external indicator displays.
type Badge struct {
	Count int
	Text  string
	Color string
}

// Summarize counts every marker in the store.
func Summarize(n model.Notifications) int {
	total := 0
	for _, cats := range n {
		for _, ids := range cats {
			total += len(ids)
		}
	}
	return total
}

// BadgeFor renders a count: "+n" with a color hint, or an empty badge for
// zero so the indicator is cleared instead of showing "0".
func BadgeFor(count int) Badge {
	if count <= 0 {
		return Badge{}
	}
	return Badge{
		Count: count,
		Text:  "+" + strconv.Itoa(count),
		Color: BadgeColor,
	}
}

// Indicator receives badge updates.
type Indicator interface {
	Publish(ctx context.Context, b Badge) error
}

// LogIndicator writes badge updates to a logger.
type LogIndicator struct {
	Logger *slog.Logger
}

// Publish implements Indicator.
func (l LogIndicator) Publish(ctx context.Context, b Badge) error {
	l.Logger.InfoContext(ctx, "badge updated",
		slog.Int("count", b.Count),
		slog.String("text", b.Text),
		slog.String("color", b.Color),
	)
	return nil
}

// GaugeIndicator exposes the badge count as a Prometheus gauge.
type GaugeIndicator struct {
	Gauge prometheus.Gauge
}

// Publish implements Indicator.
func (g GaugeIndicator) Publish(_ context.Context, b Badge) error {
	g.Gauge.Set(float64(b.Count))
	return nil
}

// MultiIndicator fans a badge out to several indicators. Every indicator is
// tried; the first error is returned.
type MultiIndicator []Indicator

// Publish implements Indicator.
func (m MultiIndicator) Publish(ctx context.Context, b Badge) error {
	var firstErr error
	for _, ind := range m {
		if err := ind.Publish(ctx, b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
