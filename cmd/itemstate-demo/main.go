// Command itemstate-demo wires the item-state engine to a concrete SPI
// backend and blob store, seeds a small tree, and drives one session
// through the mutate/save/poll/refresh cycle end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"itemstate/internal/blob"
	blobfs "itemstate/internal/blob/fs"
	blobmemory "itemstate/internal/blob/memory"
	blobs3 "itemstate/internal/blob/s3"
	"itemstate/internal/metrics"
	"itemstate/internal/spi"
	"itemstate/internal/spi/memory"
	"itemstate/internal/spi/postgres"
	"itemstate/internal/spi/sqlite"
	"itemstate/internal/state"
	"itemstate/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	var (
		backend     = flag.String("backend", "memory", "SPI backend: memory, sqlite, or postgres")
		sqlitePath  = flag.String("sqlite-path", "itemstate.db", "database file for the sqlite backend")
		postgresDSN = flag.String("postgres-dsn", os.Getenv("ITEMSTATE_POSTGRES_DSN"), "connection string for the postgres backend")
		blobBackend = flag.String("blob-backend", "memory", "binary value store: memory, fs, or s3")
		blobFSRoot  = flag.String("blob-fs-root", "./blobdata", "root directory for the fs blob backend")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
		pollEvery   = flag.Duration("poll-interval", time.Second, "SPI poll interval")
	)
	flag.Parse()

	if err := run(context.Background(), config{
		backend:     *backend,
		sqlitePath:  *sqlitePath,
		postgresDSN: *postgresDSN,
		blobBackend: *blobBackend,
		blobFSRoot:  *blobFSRoot,
		metricsAddr: *metricsAddr,
		pollEvery:   *pollEvery,
	}); err != nil {
		slog.Error("itemstate-demo failed", "error", err)
		exitFunc(1)
	}
}

type config struct {
	backend     string
	sqlitePath  string
	postgresDSN string
	blobBackend string
	blobFSRoot  string
	metricsAddr string
	pollEvery   time.Duration
}

func run(ctx context.Context, cfg config) error {
	logger := slogAdapter{l: slog.Default()}

	recorder, err := buildMetrics(cfg.metricsAddr)
	if err != nil {
		return fmt.Errorf("building metrics: %w", err)
	}

	store, err := buildBlobStore(ctx, cfg.blobBackend, cfg.blobFSRoot)
	if err != nil {
		return fmt.Errorf("building blob store: %w", err)
	}

	service, err := buildService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building SPI backend: %w", err)
	}

	rootID := domain.NewUUIDNodeID(uuid.New())
	rootType := domain.NewQName("itemstate", "root")
	if err := seedRoot(ctx, service, rootID, rootType); err != nil {
		return fmt.Errorf("seeding root node: %w", err)
	}

	manager := state.NewManager(state.ManagerConfig{
		Factory:   spi.Factory{Service: service},
		IDFactory: domain.UUIDIDFactory{},
		Logger:    logger,
		Metrics:   recorder,
	})

	poller := spi.NewPoller(service, manager, logger, 64)
	poller.Start(ctx, cfg.pollEvery)
	defer poller.Stop()

	session := state.NewSession(manager)
	committer := spi.Committer{Service: service}

	root, err := session.GetNodeState(ctx, rootID)
	if err != nil {
		return fmt.Errorf("loading root: %w", err)
	}
	rootNode, _ := state.AsNode(root)

	childID := manager.IDFactory().NewNodeID()
	childType := domain.NewQName("itemstate", "folder")
	childName := domain.NewQName("", "greeting")
	entry := rootNode.AddChildNodeEntry(childName, childID)
	if err := root.SetStatus(domain.StatusExistingModified); err != nil {
		return fmt.Errorf("marking root modified: %w", err)
	}
	logger.Infof("staged new child %s at index via %s", childID, entry.Name())

	stageChild(service, childID, childType, rootID, childName)

	if err := session.Save(ctx, committer); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	logger.Infof("session saved; root status now %s", root.Status())

	key, _, err := store.Put(ctx, newGreetingReader())
	if err != nil {
		return fmt.Errorf("storing greeting blob: %w", err)
	}
	logger.Infof("stored demo blob under key %s", key)

	if cfg.metricsAddr != "" {
		logger.Infof("metrics listening on %s", cfg.metricsAddr)
		<-ctx.Done()
	}
	return nil
}

func buildMetrics(addr string) (*metrics.Prometheus, error) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(reg)
	if addr == "" {
		return recorder, nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return recorder, nil
}

func buildBlobStore(ctx context.Context, backend, fsRoot string) (blob.Store, error) {
	switch backend {
	case "memory":
		return blobmemory.New(), nil
	case "fs":
		return blobfs.New(fsRoot)
	case "s3":
		return blobs3.OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
}

func buildService(ctx context.Context, cfg config) (spi.RepositoryService, error) {
	switch cfg.backend {
	case "memory":
		return memory.NewService(), nil
	case "sqlite":
		return sqlite.NewService(cfg.sqlitePath)
	case "postgres":
		if cfg.postgresDSN == "" {
			return nil, fmt.Errorf("-postgres-dsn (or ITEMSTATE_POSTGRES_DSN) is required for the postgres backend")
		}
		return postgres.NewService(ctx, cfg.postgresDSN)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
}

// seedRoot writes the initial root record directly, bypassing Mutate; each
// backend exposes this as a differently shaped method (the durable backends
// need ctx/return an error for the write-through to disk), so the demo
// dispatches on the concrete type rather than forcing a shared signature
// onto RepositoryService itself.
func seedRoot(ctx context.Context, service spi.RepositoryService, id domain.NodeID, primaryType domain.QName) error {
	rec := spi.NodeRecord{ID: id, PrimaryType: primaryType}
	switch svc := service.(type) {
	case *memory.Service:
		svc.PutNode(rec, nil)
		return nil
	case *sqlite.Service:
		return svc.PutNode(rec, nil)
	case *postgres.Service:
		return svc.PutNode(ctx, rec, nil)
	default:
		return fmt.Errorf("seeding not supported for backend %T", service)
	}
}

// stageChild records the child record a subsequent Mutate call will apply,
// standing in for the payload side channel a real outer session would use
// (see spi.ChangeSet's doc comment). parent/name are carried through to
// StageChildAdd so the resulting EventNodeAdded is addressed at parent,
// matching what the core's refresh path expects.
func stageChild(service spi.RepositoryService, id domain.NodeID, primaryType domain.QName, parent domain.NodeID, name domain.QName) {
	rec := spi.NodeRecord{ID: id, PrimaryType: primaryType}
	switch svc := service.(type) {
	case *memory.Service:
		svc.StageChildAdd(rec, parent, name, nil)
	case *sqlite.Service:
		svc.StageChildAdd(rec, parent, name, nil)
	case *postgres.Service:
		svc.StageChildAdd(rec, parent, name, nil)
	}
}

func newGreetingReader() io.Reader {
	return strings.NewReader("hello from the item-state overlay demo")
}

type slogAdapter struct{ l *slog.Logger }

func (s slogAdapter) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Infof(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Warnf(format string, args ...any)  { s.l.Warn(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Errorf(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }
