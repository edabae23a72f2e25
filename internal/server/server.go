package server

import (
	"InvoicePayer/internal/automation"
	"InvoicePayer/internal/metrics"
	"InvoicePayer/internal/models"
	"InvoicePayer/internal/payment"
	"InvoicePayer/pkg/config"
	"InvoicePayer/utils"
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const maxPageSize = 100

// Server is the JSON API in front of the payment service.
type Server struct {
	echo    *echo.Echo
	cfg     config.ServerConfig
	started time.Time
}

// Handler handles HTTP requests for invoice payments.
type Handler struct {
	svc payment.ServiceInterface
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(svc payment.ServiceInterface, m *metrics.Metrics, cfg config.ServerConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{echo: e, cfg: cfg, started: time.Now()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s %d %s %s", v.Method, v.URI, v.Status, v.Latency.Round(time.Millisecond), v.RemoteIP)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, "X-API-Key"},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	e.GET("/health", s.health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	h := &Handler{svc: svc}
	api := e.Group("/api/v1")
	if cfg.ApiKey != "" {
		api.Use(apiKeyAuth(cfg.ApiKey))
	}
	if cfg.RequestTimeout > 0 {
		api.Use(middleware.ContextTimeout(cfg.RequestTimeout))
	}
	api.POST("/payments/invoice", h.PayInvoice)
	api.POST("/payments/invoice/verify", h.VerifyInvoice)
	api.GET("/payments", h.ListAttempts)
	api.GET("/payments/:id", h.GetAttempt)

	return s
}

// ServeHTTP lets the server be mounted in tests or another mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start blocks serving on the configured port until Shutdown is called.
func (s *Server) Start() error {
	addr := ":" + s.cfg.Port
	log.Printf("Starting API server on port %s", s.cfg.Port)
	log.Printf("Endpoint available at http://localhost%s/api/v1/payments/invoice", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (h *Handler) PayInvoice(c echo.Context) error {
	var req models.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
	}

	res, err := h.svc.PayInvoice(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: res})
}

func (h *Handler) VerifyInvoice(c echo.Context) error {
	var req models.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
	}

	res, err := h.svc.VerifyInvoice(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: res})
}

func (h *Handler) ListAttempts(c echo.Context) error {
	page := 1
	limit := 20
	if pageStr := c.QueryParam("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxPageSize {
			limit = l
		}
	}

	filters := models.AttemptFilters{
		Status:        c.QueryParam("status"),
		InvoiceNumber: c.QueryParam("invoice_number"),
		Kind:          c.QueryParam("kind"),
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}

	list, err := h.svc.ListAttempts(c.Request().Context(), filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: list})
}

func (h *Handler) GetAttempt(c echo.Context) error {
	attempt, err := h.svc.GetAttempt(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Payment attempt not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: attempt})
}

func apiKeyAuth(key string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:X-API-Key",
		Validator: func(got string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		},
	})
}

// errorHandler turns every error returned by a handler into the JSON error body.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		log.Printf("ERROR: writing error response: %v", writeErr)
	}
}

func errorResponse(err error) (int, models.ErrorResponse) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, models.ErrorResponse{Errors: ve.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, models.ErrorResponse{Error: msg}
	}

	switch {
	case errors.Is(err, models.ErrInvoiceVerification), errors.Is(err, models.ErrPaymentDeclined):
		return http.StatusBadRequest, models.ErrorResponse{Error: clientMessage(err)}
	case errors.Is(err, models.ErrPaymentInProgress), errors.Is(err, models.ErrAlreadyPaid):
		return http.StatusConflict, models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, models.ErrorResponse{Error: "Not found"}
	case errors.Is(err, models.ErrBrowserUnavailable):
		return http.StatusServiceUnavailable, models.ErrorResponse{Error: "Payment service is busy, try again later"}
	case errors.Is(err, models.ErrNoOutcome):
		return http.StatusBadGateway, models.ErrorResponse{Error: clientMessage(err)}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"}
}

// clientMessage drops the failed step prefix; the message text comes from the
// payment page and is shown as is.
func clientMessage(err error) string {
	var se *automation.StepError
	if errors.As(err, &se) {
		err = se.Err
	}
	return utils.MaskCardNumbers(err.Error())
}
