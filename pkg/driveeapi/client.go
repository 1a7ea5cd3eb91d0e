package driveeapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://drivee.eu.charge.ampeco.tech/api/v1"

	defaultTimeout      = 30 * time.Second
	defaultHistoryDays  = 30
	defaultRetryCount   = 2
	defaultRetryWaitMin = 4 * time.Second
	defaultRetryWaitMax = 10 * time.Second

	tokenPath        = "app/oauth/token"
	chargePointsPath = "app/personal/charge-points"
	historyPath      = "app/profile/session_history"

	oauthGrantType    = "password"
	oauthClientID     = "1"
	oauthClientSecret = "IRPoTPxre3pEvWU3TQKVIltc0aVnIuzLJlfVp6Gh"

	historyDateLayout = "2006-01-02"
)

// The mobile app sends these on every request and the backend is picky
// about them.
var fixedHeaders = map[string]string{
	"accept":          "application/json, text/plain, */*",
	"accept-language": "da-DK",
	"Content-Type":    "application/json;charset=utf-8",
	"User-Agent":      "okhttp/4.9.2",
	"x-device-id":     "b1a9feedadc049ba",
	"x-app-version":   "2.126.0",
}

// ChargerAPI is the surface the rest of the application sees. Implemented by
// Client against the real backend and by TestChargerAPI in tests.
type ChargerAPI interface {
	GetChargePoint(ctx context.Context) (*ChargePoint, error)
	GetChargingHistory(ctx context.Context) (*ChargingHistory, error)
	GetPricePeriods(ctx context.Context, chargePointID string) (*PricePeriods, error)
	StartCharging(ctx context.Context, evseID string) (*ChargingSession, error)
	EndCharging(ctx context.Context, sessionID string) (*ChargingSession, error)
	Close()
}

type Config struct {
	BaseURL      string
	Username     string
	Password     string
	Timeout      time.Duration
	HistoryDays  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Location     *time.Location
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaultHistoryDays
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = defaultRetryWaitMin
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = defaultRetryWaitMax
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return cfg
}

// Client talks to the charging backend. Two HTTP clients are kept: a plain
// one for the token endpoint and one with auth middleware and retry for data
// calls. Sharing them would recurse through the auth hook.
type Client struct {
	cfg    Config
	tokens *tokenManager
	http   *resty.Client
}

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	authHTTP := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeaders(fixedHeaders)

	tokens := newTokenManager(authHTTP, cfg.Username, cfg.Password)

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeaders(fixedHeaders).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(cfg.RetryWaitMin).
		SetRetryMaxWaitTime(cfg.RetryWaitMax).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// Only rejected credentials are worth retrying. Transport
			// failures and server errors surface immediately.
			if resp != nil && resp.StatusCode() == 401 {
				return true
			}
			var authErr *AuthenticationError
			return errors.As(err, &authErr)
		})

	http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		token, err := tokens.EnsureValid(req.Context())
		if err != nil {
			return err
		}
		req.SetAuthToken(token)
		return nil
	})
	http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.StatusCode() == 401 {
			tokens.Invalidate()
		}
		return nil
	})

	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   http,
	}
}

// execute runs one data request and maps the outcome onto the error
// taxonomy. The resty client has already run its retry loop by the time
// this sees a response.
func (c *Client) execute(req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		return nil, &NetworkError{Err: err}
	}
	switch resp.StatusCode() {
	case 200, 202:
		return resp.Body(), nil
	case 401:
		return nil, &AuthenticationError{Body: string(resp.Body())}
	default:
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
}

// GetChargePoint fetches the account's single charge point with its EVSE,
// connectors and any active session.
func (c *Client) GetChargePoint(ctx context.Context) (*ChargePoint, error) {
	body, err := c.execute(c.http.R().SetContext(ctx), resty.MethodGet, chargePointsPath)
	if err != nil {
		return nil, err
	}
	return parseChargePoints(body)
}

// GetChargingHistory fetches the session history for the configured trailing
// window ending today.
func (c *Client) GetChargingHistory(ctx context.Context) (*ChargingHistory, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -c.cfg.HistoryDays)
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("start_date", start.Format(historyDateLayout)).
		SetQueryParam("end_date", now.Format(historyDateLayout))
	body, err := c.execute(req, resty.MethodGet, historyPath)
	if err != nil {
		return nil, err
	}
	return parseChargingHistory(body)
}

// GetPricePeriods fetches the tariff schedule for a charge point.
func (c *Client) GetPricePeriods(ctx context.Context, chargePointID string) (*PricePeriods, error) {
	path := fmt.Sprintf("app/personal/charge-points/%s/price-periods", chargePointID)
	body, err := c.execute(c.http.R().SetContext(ctx), resty.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return parsePricePeriods(body, c.cfg.Location)
}

// StartCharging asks the backend to start a session on an EVSE and returns
// the new session.
func (c *Client) StartCharging(ctx context.Context, evseID string) (*ChargingSession, error) {
	path := fmt.Sprintf("app/evse/%s/start", evseID)
	body, err := c.execute(c.http.R().SetContext(ctx), resty.MethodPost, path)
	if err != nil {
		return nil, err
	}
	return parseChargingResponse(body)
}

// EndCharging asks the backend to stop a running session and returns its
// final state.
func (c *Client) EndCharging(ctx context.Context, sessionID string) (*ChargingSession, error) {
	path := fmt.Sprintf("app/session/%s/end", sessionID)
	body, err := c.execute(c.http.R().SetContext(ctx), resty.MethodPost, path)
	if err != nil {
		return nil, err
	}
	return parseChargingResponse(body)
}

// Close releases idle connections. The client must not be used afterwards.
func (c *Client) Close() {
	c.http.GetClient().CloseIdleConnections()
	c.tokens.http.GetClient().CloseIdleConnections()
}
