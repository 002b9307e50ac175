// Package testcontainers starts throwaway infrastructure for integration tests
package testcontainers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationEnv gates container-backed tests
const IntegrationEnv = "FERN_INTEGRATION"

// SkipUnlessIntegration skips the test in short mode or when FERN_INTEGRATION is unset
func SkipUnlessIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv(IntegrationEnv) == "" {
		t.Skipf("set %s=1 to run integration tests", IntegrationEnv)
	}
}

// GraphContainer is a running Memgraph instance speaking Bolt
type GraphContainer struct {
	container testcontainers.Container
	URL       string
}

// StartGraph starts a Memgraph container and waits until it accepts connections
func StartGraph(ctx context.Context) (*GraphContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "memgraph/memgraph:latest",
		ExposedPorts: []string{"7687/tcp"},
		WaitingFor: wait.ForLog("Server is fully armed and operational").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start graph container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get graph container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get graph container port: %w", err)
	}

	return &GraphContainer{
		container: container,
		URL:       fmt.Sprintf("bolt://%s:%s", host, port.Port()),
	}, nil
}

// Terminate stops and removes the container
func (g *GraphContainer) Terminate(ctx context.Context) error {
	return g.container.Terminate(ctx)
}
