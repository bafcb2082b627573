// Package httpapi exposes the ledger over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/ledger"
	"github.com/mesh-intelligence/docket/pkg/types"
)

// Ledger is what the handlers need from *ledger.Ledger.
type Ledger interface {
	CreateContract(ctx context.Context, c types.Contract) error
	GetContract(ctx context.Context, caseNumber string) (*types.Contract, bool, error)
	CreateAppointment(ctx context.Context, req ledger.AppointmentRequest) (uint64, error)
	GetAppointment(ctx context.Context, clientName string) (*types.Appointment, bool, error)
	QuoteFee(totalDuration uint64) uint64
}

// Config tunes the router.
type Config struct {
	// AllowOrigins lists CORS origins. Empty allows none.
	AllowOrigins []string
}

// Server holds the handlers.
type Server struct {
	ledger Ledger
	log    *zap.Logger
}

// New returns a Server over l. A nil logger disables logging.
func New(l Ledger, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{ledger: l, log: log}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router(cfg Config) *gin.Engine {
	router := gin.New()
	// Keys are opaque and may contain "/". Route on the escaped path so
	// "2024%2F17" stays one segment, then hand handlers the decoded value.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(gin.Recovery(), s.requestLog())

	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/contracts", s.createContract)
		v1.GET("/contracts/:case_number", s.getContract)
		v1.POST("/appointments", s.createAppointment)
		v1.GET("/appointments/:client_name", s.getAppointment)
		v1.GET("/fees", s.quoteFee)
	}
	return router
}

// requestLog tags each request with an id and logs it on completion.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) createContract(c *gin.Context) {
	var contract types.Contract
	if err := c.ShouldBindJSON(&contract); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.ledger.CreateContract(c.Request.Context(), contract); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"case_number": contract.CaseNumber})
}

func (s *Server) getContract(c *gin.Context) {
	contract, ok, err := s.ledger.GetContract(c.Request.Context(), c.Param("case_number"))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		s.fail(c, http.StatusNotFound, errors.New("contract not found"))
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (s *Server) createAppointment(c *gin.Context) {
	var req ledger.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	fee, err := s.ledger.CreateAppointment(c.Request.Context(), req)
	if errors.Is(err, ledger.ErrBookingConflict) {
		s.fail(c, http.StatusConflict, ledger.ErrBookingConflict)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client_name": req.ClientName, "consultation_fee": fee})
}

func (s *Server) getAppointment(c *gin.Context) {
	appt, ok, err := s.ledger.GetAppointment(c.Request.Context(), c.Param("client_name"))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		s.fail(c, http.StatusNotFound, errors.New("appointment not found"))
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (s *Server) quoteFee(c *gin.Context) {
	d, err := strconv.ParseUint(c.Query("duration"), 10, 64)
	if err != nil {
		s.fail(c, http.StatusBadRequest, errors.New("duration must be a non-negative integer number of minutes"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_duration": d, "consultation_fee": s.ledger.QuoteFee(d)})
}
