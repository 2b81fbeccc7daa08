package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/repowatch/internal/model"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Summarize(model.Notifications{}))
	assert.Zero(t, Summarize(nil))

	n := model.Notifications{
		"o/r": {model.CategoryIssues: {3, 4}, model.CategoryActions: {101}},
		"a/b": {model.CategoryNewReleases: {7}, model.CategoryNewPRs: {}},
	}
	assert.Equal(t, 4, Summarize(n))
}

func TestBadgeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Badge{}, BadgeFor(0))
	assert.Equal(t, Badge{Count: 12, Text: "+12", Color: BadgeColor}, BadgeFor(12))
}

type failingIndicator struct{ err error }

func (f failingIndicator) Publish(context.Context, Badge) error { return f.err }

func TestMultiIndicatorPublishesToAll(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_badge_count"})
	boom := errors.New("boom")

	m := MultiIndicator{
		failingIndicator{err: boom},
		LogIndicator{Logger: slog.New(slog.NewTextHandler(&buf, nil))},
		GaugeIndicator{Gauge: gauge},
	}

	err := m.Publish(context.Background(), BadgeFor(5))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "text=+5")
	assert.Equal(t, float64(5), testutil.ToFloat64(gauge))
}
