package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Client is one API client's view of the metrics.
// A nil *Client is valid and counts nothing.
type Client struct {
	success prometheus.Counter
	fails   prometheus.Counter
	io      prometheus.Observer
}

func (c *Client) SuccessAdd(n int) {
	if c == nil || n == 0 {
		return
	}
	c.success.Add(float64(n))
}

func (c *Client) FailsAdd(n int) {
	if c == nil || n == 0 {
		return
	}
	c.fails.Add(float64(n))
}

// NewIOTimer starts timing one physical call; the returned func records
// the elapsed time.
func (c *Client) NewIOTimer() func() {
	if c == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		c.io.Observe(float64(time.Since(start).Nanoseconds()))
	}
}
