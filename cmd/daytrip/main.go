package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mkarasev/daytrip/config"
	embopenai "github.com/mkarasev/daytrip/contrib/embedder/openai"
	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/eventstore"
	"github.com/mkarasev/daytrip/eventstore/inmemory"
	"github.com/mkarasev/daytrip/eventstore/pg"
	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/history"
	"github.com/mkarasev/daytrip/memcheck"
	"github.com/mkarasev/daytrip/pipeline"
	"github.com/mkarasev/daytrip/pkg/logging"
	"github.com/mkarasev/daytrip/pkg/telemetry"
	"github.com/mkarasev/daytrip/tool"
	"github.com/mkarasev/daytrip/tool/mcp"
	"github.com/mkarasev/daytrip/tools"
)

func main() {
	query := flag.String("query", "", "user query to plan a day trip for")
	owner := flag.String("owner", event.OwnerShared, "owner tag for event filtering")
	indexFile := flag.String("index", "", "path to a JSON file with events to import")
	flag.Parse()

	if err := run(*query, *owner, *indexFile); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(query, owner, indexFile string) error {
	if query == "" && indexFile == "" {
		return fmt.Errorf("either -query or -index is required")
	}

	log := logging.WithComponent("main")
	ctx := context.Background()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "daytrip",
		Disable:     cfg.DisableTelemetry,
	})
	if err != nil {
		return err
	}
	defer shutdown(ctx)

	gw, err := gateway.NewFromEnv(gateway.WithMaxIterations(cfg.Planning.ToolIterations))
	if err != nil {
		return err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	memory := buildMemcheck(cfg)

	hist, err := buildHistory(cfg)
	if err != nil {
		return err
	}

	registry := tools.BuildRegistry(tools.DepsFromEnv())
	if err := addMCPTools(ctx, registry, log); err != nil {
		return err
	}

	p := pipeline.New(gw, store, pipeline.Options{
		Registry:           registry,
		Memory:             memory,
		History:            hist,
		RetrieveLimit:      cfg.Retrieval.Limit,
		SelfRAGIterations:  cfg.Retrieval.MaxIterations,
		PlanningIterations: cfg.Planning.MaxIterations,
	})
	defer p.Close(ctx)

	if indexFile != "" {
		count, err := importEvents(ctx, p, indexFile)
		if err != nil {
			return err
		}
		log.Info("events imported", "count", count, "file", indexFile)
		if query == "" {
			return nil
		}
	}

	result, err := p.Run(ctx, query, owner)
	if err != nil {
		return err
	}

	fmt.Println(result.FinalText)
	return nil
}

func buildStore(cfg *config.Config) (eventstore.Store, error) {
	embedder, err := embopenai.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("event store needs an embedder: %w", err)
	}

	if cfg.EventStore.Backend == config.BackendPG {
		return pg.New(&pg.Config{
			Host:      cfg.EventStore.Host,
			Port:      cfg.EventStore.Port,
			User:      cfg.EventStore.User,
			Password:  cfg.EventStore.Password,
			DBName:    cfg.EventStore.DBName,
			SSLMode:   cfg.EventStore.SSLMode,
			Dimension: cfg.EventStore.Dimension,
			TableName: cfg.EventStore.TableName,
		}, embedder)
	}
	return inmemory.New(embedder), nil
}

func buildMemcheck(cfg *config.Config) memcheck.Checker {
	if cfg.Memcheck.Backend == config.BackendRedis {
		return memcheck.NewRedis(&memcheck.RedisConfig{
			Addr:     cfg.Memcheck.Addr,
			Password: cfg.Memcheck.Password,
			DB:       cfg.Memcheck.DB,
			Prefix:   cfg.Memcheck.Prefix,
			TTL:      cfg.Memcheck.TTL,
		})
	}
	return memcheck.NewInMemory()
}

func buildHistory(cfg *config.Config) (history.Store, error) {
	if cfg.History.Backend == config.BackendMongo {
		return history.NewMongoStore(&history.MongoConfig{
			URI:        cfg.History.URI,
			Database:   cfg.History.Database,
			Collection: cfg.History.Collection,
		})
	}
	return history.NewInMemory(), nil
}

// addMCPTools merges tools from an MCP server into the registry when
// DAYTRIP_MCP_ENDPOINT is set.
func addMCPTools(ctx context.Context, registry *tool.Registry, log *slog.Logger) error {
	endpoint := os.Getenv("DAYTRIP_MCP_ENDPOINT")
	if endpoint == "" {
		return nil
	}

	provider, err := mcp.NewProvider(ctx, mcp.Config{Endpoint: endpoint})
	if err != nil {
		return fmt.Errorf("mcp connection failed: %w", err)
	}

	mcpTools, err := provider.Tools(ctx)
	if err != nil {
		return err
	}
	for _, t := range mcpTools {
		if err := registry.Upsert(t); err != nil {
			return err
		}
	}
	log.Info("mcp tools registered", "endpoint", endpoint, "count", len(mcpTools))
	return nil
}

func importEvents(ctx context.Context, p *pipeline.Pipeline, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read events file: %w", err)
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return 0, fmt.Errorf("failed to parse events file: %w", err)
	}
	if err := p.IndexEvents(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}
