package server

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

func (s *Server) Cached(key string, render func(io.Writer) error) ([]byte, error) {
	return s.cached(key, render)
}

func (s *Server) RequestsTotal() *prometheus.CounterVec {
	return s.metrics.requestsTotal
}

func (s *Server) CacheHits() prometheus.Counter {
	return s.metrics.cacheHits
}

func (s *Server) CacheMisses() prometheus.Counter {
	return s.metrics.cacheMisses
}

func (s *Server) ReloadsTotal() prometheus.Counter {
	return s.metrics.reloadsTotal
}
