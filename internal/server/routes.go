package server

import (
	"errors"
	"net/http"
	"time"

	"drivee2mqtt/internal/core/domain"
	"drivee2mqtt/pkg/driveeapi"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const commandTimeout = 60 * time.Second

type errorResponse struct {
	Error string `json:"error"`
}

type commandResponse struct {
	Success bool `json:"success"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/snapshot", s.SnapshotHandler)
	e.POST("/api/refresh", s.RefreshHandler)
	e.POST("/api/charging/start", s.StartChargingHandler)
	e.POST("/api/charging/stop", s.StopChargingHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// SnapshotHandler returns the last assembled charger snapshot. Before the
// first successful poll cycle there is nothing to serve and the endpoint
// responds 503.
func (s *Server) SnapshotHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.GetSnapshotResponse)
	if !ok {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, response.Snapshot)
}

func (s *Server) RefreshHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ForceRefreshRequest{}, commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.ForceRefreshResponse)
	if !ok {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, commandResponse{Success: true})
}

func (s *Server) StartChargingHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ChargeControlStartRequest{}, commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.ChargeControlStartResponse)
	if !ok {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return chargeControlError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, commandResponse{Success: response.Started})
}

func (s *Server) StopChargingHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ChargeControlStopRequest{}, commandTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	response, ok := res.(domain.ChargeControlStopResponse)
	if !ok {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return chargeControlError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, commandResponse{Success: response.Stopped})
}

// chargeControlError maps a rejected command to 409 and anything else to a
// gateway error.
func chargeControlError(c echo.Context, err error) error {
	var sessionErr *driveeapi.SessionError
	if errors.As(err, &sessionErr) {
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
}
