package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "Quantra/internal/domain/models"
	icache "Quantra/internal/service/cache"
	"Quantra/internal/service/metrics"
	"Quantra/internal/service/ratelimit"
	"Quantra/internal/usecase"
	pkgcache "Quantra/pkg/cache"
	xhttp "Quantra/pkg/http"
	xlogger "Quantra/pkg/logger"
)

// StrategyHandler exposes training, signal, backtest, and session routes.
type StrategyHandler struct {
	logger   *xlogger.Logger
	trainer  *usecase.TrainUseCase
	signals  *usecase.SignalUseCase
	backtest *usecase.BacktestUseCase
	sessions *usecase.SessionRegistry
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	health   func(ctx context.Context) error
}

func NewStrategyHandler(
	logger *xlogger.Logger,
	trainer *usecase.TrainUseCase,
	signals *usecase.SignalUseCase,
	backtest *usecase.BacktestUseCase,
	sessions *usecase.SessionRegistry,
) *StrategyHandler {
	metrics.Register()
	return &StrategyHandler{
		logger:   logger,
		trainer:  trainer,
		signals:  signals,
		backtest: backtest,
		sessions: sessions,
		rl:       ratelimit.New(),
	}
}

// SetCache injects a response cache for signal and backtest payloads.
func (h *StrategyHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetHealthCheck injects a dependency probe for the health endpoint.
func (h *StrategyHandler) SetHealthCheck(fn func(ctx context.Context) error) { h.health = fn }

func (h *StrategyHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.POST("/backtest", h.Backtest)
	g.GET("/signal", h.Signal)
	g.GET("/models", h.ListModels)
	g.GET("/models/:symbol", h.GetModel)
	g.POST("/models/:symbol/train", h.Train)
	g.DELETE("/models/:symbol", h.DeleteModel)
	g.POST("/sessions", h.StartSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.GET("/sessions/:id/trades", h.SessionTrades)
	g.POST("/sessions/:id/stop", h.StopSession)
	g.DELETE("/sessions/:id", h.StopSession)
}

func (h *StrategyHandler) Healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health(c.Request().Context()); err != nil {
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *StrategyHandler) Train(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.StrategyLatency.WithLabelValues("train").Observe(time.Since(start).Seconds())
	}()

	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":train", 2, 0.2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	m, err := h.trainer.Train(c.Request().Context(), *req)
	if err != nil {
		metrics.StrategyErrors.WithLabelValues("train").Inc()
		h.logger.Error("train usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, appError(err))
	}
	metrics.ModelsTrained.WithLabelValues(m.Symbol).Inc()
	return xhttp.CreatedResponse(c, m.Info())
}

func (h *StrategyHandler) ListModels(c echo.Context) error {
	infos := h.trainer.List()
	return xhttp.ListResponse(c, infos, int64(len(infos)))
}

func (h *StrategyHandler) GetModel(c echo.Context) error {
	info, err := h.trainer.Info(c.Param("symbol"))
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *StrategyHandler) DeleteModel(c echo.Context) error {
	if err := h.trainer.Delete(c.Param("symbol")); err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *StrategyHandler) Signal(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.StrategyLatency.WithLabelValues("signal").Observe(time.Since(start).Seconds())
	}()

	req := &models.SignalQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := "signal:" + req.Symbol
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var res models.SignalResult
			if json.Unmarshal(b, &res) == nil {
				return xhttp.SuccessResponse(c, &res)
			}
		}
	}

	res, err := h.signals.Evaluate(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.StrategyErrors.WithLabelValues("signal").Inc()
		h.logger.Error("signal usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, appError(err))
	}
	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, 60*time.Second); err != nil {
				h.logger.Warn("signal cache set failed", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategyHandler) Backtest(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.StrategyLatency.WithLabelValues("backtest").Observe(time.Since(start).Seconds())
	}()

	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":backtest", 2, 0.5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := backtestCacheKey(req)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var res models.BacktestResult
			if json.Unmarshal(b, &res) == nil {
				return xhttp.SuccessResponse(c, &res)
			}
		}
	}

	res, err := h.backtest.Run(c.Request().Context(), *req)
	if err != nil {
		metrics.StrategyErrors.WithLabelValues("backtest").Inc()
		h.logger.Error("backtest usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, appError(err))
	}
	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, 10*time.Minute); err != nil {
				h.logger.Warn("backtest cache set failed", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategyHandler) StartSession(c echo.Context) error {
	req := &models.SessionStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	info, err := h.sessions.Start(c.Request().Context(), *req)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.CreatedResponse(c, info)
}

func (h *StrategyHandler) ListSessions(c echo.Context) error {
	infos := h.sessions.List()
	return xhttp.ListResponse(c, infos, int64(len(infos)))
}

func (h *StrategyHandler) GetSession(c echo.Context) error {
	info, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *StrategyHandler) SessionTrades(c echo.Context) error {
	trades, err := h.sessions.Trades(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	total := int64(len(trades))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0)
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	return xhttp.ListResponse(c, trades, total)
}

func (h *StrategyHandler) StopSession(c echo.Context) error {
	info, err := h.sessions.Stop(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func backtestCacheKey(req *models.BacktestRequest) string {
	b, _ := json.Marshal(req)
	return pkgcache.GenerateKey("backtest", pkgcache.HashKey(string(b)))
}
