package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	unknownService = "unknown-service"

	serviceAccountNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
)

// serviceIdentity resolves the name and namespace reported to tracing and
// profiling backends. OTEL_SERVICE_NAME wins over the configured name;
// the namespace comes from OTEL_RESOURCE_ATTRIBUTES, the mounted service
// account, POD_NAMESPACE, then "default".
func serviceIdentity(configured string) (name, namespace string) {
	name = os.Getenv("OTEL_SERVICE_NAME")
	if name == "" {
		name = configured
	}
	if name == "" {
		name = unknownService
	}

	for _, attr := range strings.Split(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"), ",") {
		if k, v, ok := strings.Cut(attr, "="); ok && k == "service.namespace" && v != "" {
			return name, v
		}
	}
	if data, err := os.ReadFile(serviceAccountNamespaceFile); err == nil {
		if ns := strings.TrimSpace(string(data)); ns != "" {
			return name, ns
		}
	}
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return name, ns
	}
	return name, "default"
}

// newResource describes this process to the trace exporter. On partial
// detection failure it still returns a usable minimal resource.
func newResource(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
	name, namespace := serviceIdentity(serviceName)

	attrs := []resource.Option{
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceNamespaceKey.String(namespace),
			semconv.ServiceVersionKey.String(version),
		),
	}

	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(name),
			semconv.ServiceNamespaceKey.String(namespace),
		), fmt.Errorf("resource detection partial failure: %w", err)
	}
	return res, nil
}
