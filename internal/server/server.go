package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/config"
	directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"
	"github.com/esportubt/discord-bot/internal/journal"
	"github.com/esportubt/discord-bot/internal/reconcile"
	"github.com/esportubt/discord-bot/internal/scheduler"
)

// SyncService is the reconciler surface the operator API consumes.
type SyncService interface {
	RunFull(ctx context.Context) (*reconcile.Result, error)
	RunIncremental(ctx context.Context) (*reconcile.Result, error)
	LastResult() *reconcile.Result
	LastMark() time.Time
}

// SchedulerControl exposes the periodic trigger to operators.
type SchedulerControl interface {
	Start() error
	Stop()
	Status() scheduler.State
	LastFailure() error
}

// RunLister reads the persisted run journal.
type RunLister interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Server hosts the operator HTTP API. Every command endpoint maps 1:1
// to a reconciler or scheduler operation.
type Server struct {
	cfg       config.Config
	log       *zap.Logger
	sync      SyncService
	sched     SchedulerControl
	runs      RunLister
	directory directorydomain.Directory
	limiter   *rateLimiter
}

func NewServer(
	cfg config.Config,
	log *zap.Logger,
	syncSvc SyncService,
	sched SchedulerControl,
	runs RunLister,
	directory directorydomain.Directory,
) *Server {
	return &Server{
		cfg:       cfg,
		log:       log.Named("server"),
		sync:      syncSvc,
		sched:     sched,
		runs:      runs,
		directory: directory,
		limiter:   newRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitWindow),
	}
}

func (s *Server) Router() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1", s.RateLimited(), s.OperatorRequired())
	v1.POST("/sync/full", s.TriggerFullSync)
	v1.POST("/sync/incremental", s.TriggerIncrementalSync)
	v1.GET("/sync/last", s.LastSyncResult)
	v1.GET("/sync/runs", s.ListSyncRuns)
	v1.POST("/scheduler/start", s.StartScheduler)
	v1.POST("/scheduler/stop", s.StopScheduler)
	v1.GET("/scheduler/status", s.SchedulerStatus)
	v1.GET("/directory/health", s.DirectoryHealth)

	return engine
}

// Run wires the HTTP server into the fx lifecycle.
func Run(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("operator api listening", zap.String("addr", s.cfg.Server.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(func(r *reconcile.Reconciler) SyncService { return r }),
	fx.Provide(func(s *scheduler.Scheduler) SchedulerControl { return s }),
	fx.Provide(func(j *journal.Journal) RunLister { return j }),
	fx.Provide(NewServer),
	fx.Invoke(Run),
)
