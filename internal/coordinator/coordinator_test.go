package coordinator

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/orchestrator/internal/schema"
	workerpkg "github.com/lyzr/orchestrator/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startCountingWorker spins up a real worker behind an httptest server and
// returns its URL plus a counter incremented on every /execute call.
func startCountingWorker(t *testing.T, id string) (url string, count *atomic.Int64) {
	t.Helper()
	count = &atomic.Int64{}

	e := echo.New()
	e.HideBanner = true
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/execute" {
				count.Add(1)
			}
			return next(c)
		}
	})
	workerpkg.New(id).RegisterRoutes(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL, count
}

func TestSubmit_RoundRobinDispatchAcrossTwoWorkers(t *testing.T) {
	url1, count1 := startCountingWorker(t, "w1")
	url2, count2 := startCountingWorker(t, "w2")

	c := New()
	c.RegisterWorker(context.Background(), "w1", url1)
	c.RegisterWorker(context.Background(), "w2", url2)

	wf := schema.Workflow{
		Name: "fan-out",
		Nodes: []schema.Node{
			{ID: "A", Type: "delay", Params: map[string]any{"milliseconds": float64(50)}},
			{ID: "B", Type: "delay", Params: map[string]any{"milliseconds": float64(50)}},
			{ID: "C", Type: "delay", Params: map[string]any{"milliseconds": float64(50)}},
			{ID: "D", Type: "delay", Params: map[string]any{"milliseconds": float64(50)}},
		},
	}

	jobID := c.Submit(context.Background(), wf)

	var last StatusSnapshot
	progressed := []float64{}
	require.Eventually(t, func() bool {
		last = c.Status(jobID)
		progressed = append(progressed, last.Progress)
		return last.Status == "completed" || last.Status == "failed"
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, "completed", last.Status)
	assert.Equal(t, int64(2), count1.Load())
	assert.Equal(t, int64(2), count2.Load())

	for i := 1; i < len(progressed); i++ {
		assert.GreaterOrEqual(t, progressed[i], progressed[i-1], "status progress must be monotonically non-decreasing")
	}
}

func TestStatus_UnknownJobID(t *testing.T) {
	c := New()
	snap := c.Status("does-not-exist")
	assert.Equal(t, "not_found", snap.Status)
}

func TestRegisterWorker_IncrementsCount(t *testing.T) {
	c := New()
	count := c.RegisterWorker(context.Background(), "w1", "http://localhost:9001")
	assert.Equal(t, 1, count)
	count = c.RegisterWorker(context.Background(), "w2", "http://localhost:9002")
	assert.Equal(t, 2, count)
	assert.Len(t, c.Workers(), 2)
}
