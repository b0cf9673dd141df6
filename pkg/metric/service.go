package metric

import "github.com/prometheus/client_golang/prometheus"

// Service owns the metric vectors shared by all API clients.
type Service struct {
	success *prometheus.CounterVec
	fails   *prometheus.CounterVec
	io      *prometheus.HistogramVec
}

func New() *Service {

	m := &Service{
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firebase",
			Name:      "requests_success",
			Help:      "Successful API requests"},
			[]string{"api", "projectId"}),
		fails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firebase",
			Name:      "requests_failed",
			Help:      "Failed API requests"},
			[]string{"api", "projectId"}),
		io: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "firebase",
			Name:      "io",
			Help:      "Time spent in I/O with the backend (in nanoseconds)"},
			[]string{"api"}),
	}

	for _, c := range []prometheus.Collector{
		m.success,
		m.fails,
		m.io,
	} {
		if err := prometheus.Register(c); err != nil {
			switch err.(type) {
			case prometheus.AlreadyRegisteredError:
				break
			default:
				panic(err)
			}
		}
	}

	return m
}

// GetClientMetrics binds the vectors to one API client's label set.
func (m *Service) GetClientMetrics(api, projectID string) (*Client, error) {

	var err error

	c := &Client{}
	c.fails, err = m.fails.GetMetricWith(prometheus.Labels{"api": api, "projectId": projectID})
	if err != nil {
		return nil, err
	}

	c.success, err = m.success.GetMetricWith(prometheus.Labels{"api": api, "projectId": projectID})
	if err != nil {
		return nil, err
	}

	c.io, err = m.io.GetMetricWith(prometheus.Labels{"api": api})
	if err != nil {
		return nil, err
	}

	return c, nil
}
