// Package graph is a read-only client for the live Neo4j instance the
// agents mutate. The cockpit uses it for the live-vs-reconstructed
// comparison view; the reconstruction engine itself never touches it.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// Client wraps the Neo4j driver with aggregate stat queries.
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *slog.Logger
	database string
}

// NewClient creates a Neo4j client and verifies connectivity, failing
// fast on startup.
func NewClient(ctx context.Context, uri, user, password, database string) (*Client, error) {
	if uri == "" || user == "" || password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", uri, user)
	}
	if database == "" {
		database = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 50
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = 3600 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger := slog.Default().With("component", "neo4j")
	logger.Info("neo4j client connected", "uri", uri, "database", database)

	return &Client{driver: driver, logger: logger, database: database}, nil
}

// Close closes the Neo4j driver connection.
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Info("neo4j client closed")
	return nil
}

// HealthCheck verifies Neo4j connectivity. Used by the API health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j health check failed: %w", err)
	}
	return nil
}

// Stats returns total node and relationship counts plus a per-label node
// breakdown for the current live graph.
func (c *Client) Stats(ctx context.Context) (*models.GraphStats, error) {
	stats := &models.GraphStats{Labels: make(map[string]int64)}

	nodes, err := c.queryCount(ctx, `MATCH (n) RETURN count(n) AS count`)
	if err != nil {
		return nil, fmt.Errorf("node count failed: %w", err)
	}
	stats.Nodes = nodes

	rels, err := c.queryCount(ctx, `MATCH ()-[r]->() RETURN count(r) AS count`)
	if err != nil {
		return nil, fmt.Errorf("relationship count failed: %w", err)
	}
	stats.Relationships = rels

	result, err := neo4j.ExecuteQuery(ctx, c.driver,
		`MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS count`,
		nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithReadersRouting(),
		neo4j.ExecuteQueryWithDatabase(c.database))
	if err != nil {
		return nil, fmt.Errorf("label breakdown failed: %w", err)
	}
	for _, record := range result.Records {
		label, ok := record.Get("label")
		if !ok {
			continue
		}
		count, ok := record.Get("count")
		if !ok {
			continue
		}
		name, ok := label.(string)
		if !ok {
			continue
		}
		n, ok := count.(int64)
		if !ok {
			continue
		}
		stats.Labels[name] = n
	}

	c.logger.Debug("graph stats collected",
		"nodes", stats.Nodes, "relationships", stats.Relationships)
	return stats, nil
}

func (c *Client) queryCount(ctx context.Context, query string) (int64, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithReadersRouting(),
		neo4j.ExecuteQueryWithDatabase(c.database))
	if err != nil {
		return 0, err
	}
	if len(result.Records) == 0 {
		return 0, nil
	}
	count, ok := result.Records[0].Get("count")
	if !ok {
		return 0, fmt.Errorf("query returned no count")
	}
	n, ok := count.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected type for count: %T (expected int64)", count)
	}
	return n, nil
}
