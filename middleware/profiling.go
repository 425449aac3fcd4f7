package middleware

import (
	"fmt"

	"github.com/duynhne/profile-card-service/config"
	"github.com/grafana/pyroscope-go"
)

var profiler *pyroscope.Profiler

// InitProfiling starts continuous profiling against the Pyroscope endpoint
func InitProfiling(cfg config.ProfilingConfig, service config.ServiceConfig) error {
	name, namespace := serviceIdentity(service.Name)

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: name,
		ServerAddress:   cfg.Endpoint,
		Tags: map[string]string{
			"service":   name,
			"namespace": namespace,
			"version":   service.Version,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return fmt.Errorf("start pyroscope: %w", err)
	}
	profiler = p
	return nil
}

// StopProfiling flushes and stops the profiler if it was started
func StopProfiling() {
	if profiler != nil {
		_ = profiler.Stop()
	}
}
