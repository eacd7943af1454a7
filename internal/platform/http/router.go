package http

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/internal/platform/auth"
	"github.com/fleetpilot/fleet-api/internal/platform/ratelimit"
	"github.com/fleetpilot/fleet-api/internal/repository"
	"github.com/fleetpilot/fleet-api/pkg/model"
)

// Router wires HTTP handlers.
type Router struct {
	notices *repository.NoticeRepository
	stats   *repository.StatsRepository
	sweeps  *repository.SweepRepository
	engine  *tollscan.Service
	origins string
}

// NewRouter builds the Gin engine. Search-triggering routes sit behind the
// rate limiter; everything under /api requires an authenticated tenant.
func NewRouter(notices *repository.NoticeRepository, stats *repository.StatsRepository, sweeps *repository.SweepRepository, engine *tollscan.Service, limiter *ratelimit.Limiter, jwtSecret []byte, allowedOrigins string) *gin.Engine {
	r := &Router{
		notices: notices,
		stats:   stats,
		sweeps:  sweeps,
		engine:  engine,
		origins: allowedOrigins,
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), r.corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", auth.Middleware(jwtSecret))
	{
		limited := api.Group("", limiter.Middleware(auth.UserID))
		limited.POST("/tolls/search", r.searchTolls)
		limited.POST("/tolls/sweep", r.startSweep)

		api.GET("/tolls", r.listTolls)
		api.GET("/tolls/export", r.exportTolls)
		api.GET("/tolls/stats", r.getStats)
		api.PATCH("/tolls/:id/pay", r.markPaid)
		api.POST("/tolls/cache/clear", r.clearCache)

		api.GET("/tolls/sweep", r.listSweeps)
		api.GET("/tolls/sweep/:id", r.getSweep)
		api.POST("/tolls/sweep/:id/cancel", r.cancelSweep)
	}

	return router
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	origins := strings.Split(r.origins, ",")
	trimmed := make([]string, 0, len(origins))
	for _, o := range origins {
		if t := strings.TrimSpace(o); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := "*"
		for _, o := range trimmed {
			if o == "*" || o == origin {
				allowed = origin
				break
			}
		}
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

type searchReq struct {
	Plate        string `json:"plate"`
	Jurisdiction string `json:"jurisdiction"`
	NoticeNumber string `json:"noticeNumber"`
	TwoWheeler   bool   `json:"twoWheeler"`
}

func (r *Router) searchTolls(c *gin.Context) {
	var req searchReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	result, err := r.engine.Search(c.Request.Context(), auth.UserID(c),
		req.Plate, model.Jurisdiction(req.Jurisdiction), req.NoticeNumber, req.TwoWheeler)
	if err != nil {
		writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeSearchError maps the engine's failure taxonomy onto responses:
// input errors are the caller's fault; terminal portal failures carry the
// guidance matching their cause (retry vs report).
func writeSearchError(c *gin.Context, err error) {
	if tollscan.IsInputError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// A TerminalError wraps the last portal failure; a structure mismatch
	// that exhausted its single retry surfaces as a bare PortalError.
	// Either way the portal is the failing party.
	var term *tollscan.TerminalError
	var portal *tollscan.PortalError
	if errors.As(err, &term) || errors.As(err, &portal) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": tollscan.UserGuidance(err),
		})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "search timed out"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (r *Router) listTolls(c *gin.Context) {
	owner := auth.UserID(c)

	var paidPtr *bool
	if paidParam := c.Query("paid"); paidParam != "" {
		paid := paidParam == "true"
		paidPtr = &paid
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	query := repository.NoticeQuery{
		Jurisdiction: model.Jurisdiction(c.Query("jurisdiction")),
		Plate:        c.Query("plate"),
		Paid:         paidPtr,
		SortBy:       c.Query("sortBy"),
		SortDesc:     c.DefaultQuery("order", "desc") == "desc",
		Limit:        limit,
	}

	records, err := r.notices.List(c.Request.Context(), owner, query)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSortKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	statistics, err := r.stats.Summary(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":    records,
		"statistics": statistics,
	})
}

func (r *Router) exportTolls(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=toll_notices.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	header := []string{"plate", "jurisdiction", "notice_number", "motorway", "issued_date", "due_date", "trip_status", "admin_fee", "toll_amount", "total_amount", "paid"}
	if err := writer.Write(header); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	err := r.notices.StreamAll(c.Request.Context(), auth.UserID(c), func(n model.TollNotice) error {
		return writer.Write([]string{
			n.Plate,
			string(n.Jurisdiction),
			n.NoticeNumber,
			n.Motorway,
			n.IssuedDate,
			n.DueDate,
			n.TripStatus,
			fmt.Sprintf("%.2f", n.AdminFee),
			fmt.Sprintf("%.2f", n.TollAmount),
			fmt.Sprintf("%.2f", n.TotalAmount),
			strconv.FormatBool(n.IsPaid),
		})
	})
	if err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (r *Router) getStats(c *gin.Context) {
	statistics, err := r.stats.Summary(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statistics)
}

func (r *Router) markPaid(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notice id"})
		return
	}
	notice, err := r.notices.MarkPaid(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNoticeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Any cached acquisition still shows the notice unpaid; evict it so
	// the next search reflects the mutation.
	r.engine.InvalidateSearch(auth.UserID(c), notice.Plate, notice.Jurisdiction)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *Router) clearCache(c *gin.Context) {
	cleared := r.engine.ClearCache()
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

type sweepReq struct {
	Plates []model.SweepVehicle `json:"plates"`
}

func (r *Router) startSweep(c *gin.Context) {
	var req sweepReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	sweepID, err := r.engine.StartSweep(c.Request.Context(), auth.UserID(c), req.Plates)
	if err != nil {
		if tollscan.IsInputError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sweepId": sweepID,
		"message": "Sweep started. Check status with GET /api/tolls/sweep/" + sweepID,
	})
}

func (r *Router) listSweeps(c *gin.Context) {
	runs, err := r.sweeps.ListRuns(c.Request.Context(), auth.UserID(c), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (r *Router) getSweep(c *gin.Context) {
	run, err := r.sweeps.GetRun(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrSweepNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sweep not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) cancelSweep(c *gin.Context) {
	sweepID := c.Param("id")
	if !r.engine.CancelSweep(sweepID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "sweep not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"canceled": sweepID})
}
