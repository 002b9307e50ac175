// Package graph writes catalog records into a Neo4j/Memgraph database over Bolt
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrUnavailable marks errors caused by the graph store being unreachable
var ErrUnavailable = errors.New("graph store unavailable")

// Client wraps the Neo4j driver. The driver is shared by every write in a
// pass and each write opens its own session.
type Client struct {
	driver neo4j.DriverWithContext
	logger ectologger.Logger
}

// Config holds graph database configuration
type Config struct {
	// URI takes precedence over Host and Port when set (e.g. neo4j+s://host:7687)
	URI      string
	Host     string
	Port     int
	Username string
	Password string
}

// Target returns the connection URI
func (c Config) Target() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("bolt://%s:%d", c.Host, c.Port)
}

// NewClient creates a new graph database client
func NewClient(cfg Config, logger ectologger.Logger) (*Client, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Target(), auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}

	logger.Infof("Graph driver created for %s", cfg.Target())

	return &Client{
		driver: driver,
		logger: logger,
	}, nil
}

// Close closes the driver connection
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// VerifyConnectivity checks if the database is reachable
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Session creates a new session with the given access mode
func (c *Client) Session(ctx context.Context, accessMode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode: accessMode,
	})
}

// ExecuteWrite runs a write transaction
func (c *Client) ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.ExecuteWrite")
	defer span.End()

	session := c.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// ExecuteRead runs a read transaction
func (c *Client) ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.ExecuteRead")
	defer span.End()

	session := c.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}

// Run executes a single write statement in its own transaction
func (c *Client) Run(ctx context.Context, stmt Statement) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.Run")
	defer span.End()

	result, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, stmt.Cypher, stmt.Params)
		if err != nil {
			return nil, err
		}

		summary := &Summary{}
		if res.Next(ctx) {
			if matched, ok := res.Record().Get("matched"); ok {
				if n, ok := matched.(int64); ok {
					summary.Matched = n
				}
			}
		}

		rs, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}

		counters := rs.Counters()
		summary.NodesCreated = int64(counters.NodesCreated())
		summary.RelationshipsCreated = int64(counters.RelationshipsCreated())
		summary.PropertiesSet = int64(counters.PropertiesSet())
		return summary, nil
	})
	if err != nil {
		if neo4j.IsConnectivityError(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}

	return result.(*Summary), nil
}

// CountNodes returns how many nodes carry the label and attribute values
func (c *Client) CountNodes(ctx context.Context, match NodeMatch) (int64, error) {
	params := map[string]any{}
	cypher := fmt.Sprintf("MATCH %s RETURN count(n) AS total", matchPattern("n", match, params))

	result, err := c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		total, _ := record.Get("total")
		return total, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s nodes: %w", match.Label, err)
	}

	total, _ := result.(int64)
	return total, nil
}
