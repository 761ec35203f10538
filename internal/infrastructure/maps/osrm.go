// Package maps adapts an OSRM-compatible directions service.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// DefaultEndpoint is the public OSRM demo server.
const DefaultEndpoint = "https://router.project-osrm.org"

// SecretSource yields the API key for hosted deployments. It may be nil.
type SecretSource interface {
	Secret(providerID string) (string, error)
}

// Client fetches alternative routes from an OSRM /route/v1 endpoint.
type Client struct {
	id         string
	endpoint   string
	profile    string
	httpClient *http.Client
	secrets    SecretSource
}

// NewClient builds a directions client from settings.
func NewClient(settings domain.MapsSettings, secrets SecretSource) *Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		id:         defaultString(settings.ID, "maps"),
		endpoint:   strings.TrimRight(defaultString(settings.Endpoint, DefaultEndpoint), "/"),
		profile:    defaultString(settings.Profile, "driving"),
		httpClient: &http.Client{Timeout: timeout},
		secrets:    secrets,
	}
}

// WithHTTPClient overrides the transport.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

func (c *Client) ID() string {
	return c.id
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
		Legs     []struct {
			Summary string `json:"summary"`
		} `json:"legs"`
	} `json:"routes"`
}

// Routes returns candidate routes, best first as ranked by the service.
// "No route" answers are an empty list, not an error.
func (c *Client) Routes(ctx context.Context, origin, destination domain.LatLng) ([]domain.Route, error) {
	secret := ""
	if c.secrets != nil {
		secret, _ = c.secrets.Secret(c.id)
	}
	return c.routes(ctx, origin, destination, secret)
}

func (c *Client) routes(ctx context.Context, origin, destination domain.LatLng, secret string) ([]domain.Route, error) {
	endpoint := fmt.Sprintf("%s/route/v1/%s/%s;%s?%s",
		c.endpoint,
		url.PathEscape(c.profile),
		coord(origin),
		coord(destination),
		url.Values{
			"alternatives": {"true"},
			"overview":     {"simplified"},
			"geometries":   {"polyline"},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(domain.ErrorKindMalformedRequest, 0, "", err)
	}
	req.Header.Set("accept", "application/json")
	if secret != "" {
		req.Header.Set("authorization", "Bearer "+secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, c.transportError(err)
	}

	var parsed osrmResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && isNoRoute(parsed.Code) {
			return nil, nil
		}
		return nil, c.fail(domain.ClassifyHTTPStatus(resp.StatusCode, parsed.Code), resp.StatusCode, parsed.Code,
			fmt.Errorf("directions: %s %s", resp.Status, parsed.Message))
	}
	if decodeErr != nil {
		return nil, c.fail(domain.ErrorKindMalformedResponse, resp.StatusCode, "", decodeErr)
	}
	if isNoRoute(parsed.Code) {
		return nil, nil
	}
	if parsed.Code != "" && parsed.Code != "Ok" {
		return nil, c.fail(domain.ErrorKindMalformedRequest, resp.StatusCode, parsed.Code, errors.New(parsed.Message))
	}

	routes := make([]domain.Route, 0, len(parsed.Routes))
	for _, r := range parsed.Routes {
		route := domain.Route{
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
			Geometry:        r.Geometry,
		}
		if len(r.Legs) > 0 {
			route.Summary = r.Legs[0].Summary
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// Probe asks for a zero-length route, which exercises auth without real routing work.
func (c *Client) Probe(ctx context.Context, secret string) error {
	here := domain.LatLng{Lat: 0, Lng: 0}
	_, err := c.routes(ctx, here, here, secret)
	return err
}

func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return c.fail(domain.ErrorKindTimeout, 0, "", err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return c.fail(domain.ErrorKindTimeout, 0, "", err)
	}
	return c.fail(domain.ErrorKindNetwork, 0, "", err)
}

func (c *Client) fail(kind domain.ErrorKind, status int, code string, err error) error {
	return &domain.ProviderError{ProviderID: c.id, Kind: kind, HTTPStatus: status, Code: code, Err: err}
}

func isNoRoute(code string) bool {
	return code == "NoRoute" || code == "NoSegment"
}

func coord(p domain.LatLng) string {
	// OSRM wants lng,lat
	return fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

var (
	_ ports.DirectionsProvider = (*Client)(nil)
	_ ports.CredentialProber   = (*Client)(nil)
)
