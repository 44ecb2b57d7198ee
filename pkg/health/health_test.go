package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passingCheck() CheckFunc {
	return func(context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func hit(t *testing.T, endpoint http.HandlerFunc) (int, report) {
	t.Helper()

	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		code, body := hit(t, New().LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		assert.Empty(t, body.Checks)
	})

	t.Run("passing checks are listed", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, passingCheck())

		code, body := hit(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]string{"goroutines": "ok"}, body.Checks)
	})

	t.Run("failing check past threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))
		for range 3 {
			h.liveness[0].run(context.Background())
		}

		code, body := hit(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "connection refused", body.Checks["db"])
	})

	t.Run("failures below threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("flaky", time.Second, failingCheck("temporary"))
		h.liveness[0].run(context.Background())
		h.liveness[0].run(context.Background())

		code, _ := hit(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not marked ready", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, passingCheck())

		code, body := hit(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "service is not ready", body.Checks["_readiness"])
		assert.Equal(t, "ok", body.Checks["postgres"])
	})

	t.Run("ready and passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, passingCheck())
		h.SetReady(true)

		code, body := hit(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("one of many failing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, passingCheck())
		h.AddReadinessCheck("redis", time.Second, failingCheck("i/o timeout"), WithFailureThreshold(1))
		h.SetReady(true)
		h.readiness[1].run(context.Background())

		code, body := hit(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "ok", body.Checks["postgres"])
		assert.Equal(t, "i/o timeout", body.Checks["redis"])
	})

	t.Run("set ready false", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		code, _ := hit(t, h.ReadyEndpoint)
		require.Equal(t, http.StatusOK, code)

		h.SetReady(false)
		code, _ = hit(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckThresholds(t *testing.T) {
	failing := true
	c := newCheck("flaky", time.Second, func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	}, []CheckOption{WithFailureThreshold(2), WithSuccessThreshold(2)})
	ctx := context.Background()

	c.run(ctx)
	_, ok := c.status()
	assert.True(t, ok)
	c.run(ctx)
	reason, ok := c.status()
	assert.False(t, ok)
	assert.Equal(t, "down", reason)

	failing = false
	c.run(ctx)
	_, ok = c.status()
	assert.False(t, ok, "one success is below the success threshold")
	c.run(ctx)
	_, ok = c.status()
	assert.True(t, ok)
}

func TestCheckTimeout(t *testing.T) {
	c := newCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, []CheckOption{WithFailureThreshold(1)})

	c.run(context.Background())
	reason, ok := c.status()
	assert.False(t, ok)
	assert.Contains(t, reason, "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("live", time.Second, failingCheck("err"), WithFailureThreshold(1))
	h.AddReadinessCheck("ready", time.Second, passingCheck())
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		_, ok := h.liveness[0].status()
		return !ok
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingCheck(pingerFunc(func(context.Context) error { return nil }))(ctx))
	err := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))(ctx)
	assert.EqualError(t, err, "ping: refused")

	assert.NoError(t, GoroutineCountCheck(100000)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "exceeds threshold")

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}
