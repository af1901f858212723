package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/hereroute/internal/adapters/http"
	"github.com/samirrijal/hereroute/internal/adapters/here"
	"github.com/samirrijal/hereroute/internal/core/ports"
	"github.com/samirrijal/hereroute/internal/core/usecases"
)

// The shape is the reference example of the encoded polyline format.
const hereOK = `{"response":{"route":[{
  "shape": ["38.5,-120.2", "40.7,-120.95", "43.252,-126.453"],
  "leg": [
    {"maneuver": [{"length": 100, "travelTime": 10, "instruction": "Head north."}]},
    {"maneuver": [{"length": 200, "travelTime": 20, "instruction": "Arrive."}]}
  ]
}]}}`

// ---- Fake HERE transport ----

type fakeHERE struct {
	mu    sync.Mutex
	urls  []string
	body  string
	err   error
	delay time.Duration
}

func (f *fakeHERE) Get(ctx context.Context, u string) ([]byte, error) {
	f.mu.Lock()
	f.urls = append(f.urls, u)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return []byte(f.body), f.err
}

func (f *fakeHERE) lastQuery(t *testing.T) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.urls) == 0 {
		t.Fatal("no request reached the routing service")
	}
	u, err := url.Parse(f.urls[len(f.urls)-1])
	if err != nil {
		t.Fatalf("bad url: %v", err)
	}
	return u.Query()
}

var _ ports.Transport = (*fakeHERE)(nil)

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(tr *fakeHERE, opts ...func(*here.Config)) *handler.Dependencies {
	cfg := here.Config{ServiceURL: "https://route.here.test/routing/7.2/calculateroute.json", Timeout: time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	router := here.New(cfg, here.Credentials{AppID: "app", AppCode: "code"}, tr)
	return &handler.Dependencies{
		Routing:        usecases.NewRoutingService(router, nil),
		Upstream:       cfg.ServiceURL,
		RequestTimeout: 5 * time.Second,
		SpecPath:       "../../../api/openapi.yaml",
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return data
}

type routeBody struct {
	RequestID string `json:"request_id"`
	Routes    []struct {
		Polyline string `json:"polyline"`
		Summary  struct {
			TotalDistance float64 `json:"total_distance"`
			TotalTime     float64 `json:"total_time"`
		} `json:"summary"`
		Bounds *struct {
			MinLat float64 `json:"min_lat"`
			MaxLat float64 `json:"max_lat"`
		} `json:"bounds"`
		Coordinates    []map[string]float64 `json:"coordinates"`
		Instructions   []map[string]any     `json:"instructions"`
		InputWaypoints []struct {
			Name string `json:"name"`
		} `json:"input_waypoints"`
	} `json:"routes"`
}

type errorBody struct {
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Upstream *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Subtype string `json:"subtype"`
	} `json:"upstream"`
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (int, []byte, map[string]string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	headers := map[string]string{
		"Cache-Control":        resp.Header.Get("Cache-Control"),
		"X-Routing-Request-ID": resp.Header.Get("X-Routing-Request-ID"),
	}
	return resp.StatusCode, readBody(t, resp.Body), headers
}

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(&fakeHERE{body: hereOK}))

	status, body, _ := doRequest(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result map[string]interface{}
	json.Unmarshal(body, &result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
	if result["upstream"] != "route.here.test" {
		t.Errorf("expected upstream host, got %v", result["upstream"])
	}
}

func TestReady_WithoutNATS(t *testing.T) {
	app := setupApp(makeDeps(&fakeHERE{body: hereOK}))

	status, body, _ := doRequest(t, app, "GET", "/v1/ready", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), `"nats":"not configured"`) {
		t.Errorf("expected nats check in %s", body)
	}
}

func TestRouteGet_Success(t *testing.T) {
	tr := &fakeHERE{body: hereOK}
	app := setupApp(makeDeps(tr))

	status, body, headers := doRequest(t, app, "GET", "/v1/route?waypoints=38.5,-120.2;43.252,-126.453&language=eu-es", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res routeBody
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(res.Routes))
	}
	r := res.Routes[0]
	if r.Summary.TotalDistance != 300 || r.Summary.TotalTime != 30 {
		t.Errorf("expected 300 m / 30 s, got %v / %v", r.Summary.TotalDistance, r.Summary.TotalTime)
	}
	if r.Polyline != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Errorf("unexpected polyline %q", r.Polyline)
	}
	if r.Bounds == nil || r.Bounds.MinLat != 38.5 || r.Bounds.MaxLat != 43.252 {
		t.Errorf("unexpected bounds %+v", r.Bounds)
	}
	if len(r.Coordinates) != 3 || len(r.Instructions) != 2 || len(r.InputWaypoints) != 2 {
		t.Errorf("unexpected route shape: %d coords, %d instructions, %d waypoints",
			len(r.Coordinates), len(r.Instructions), len(r.InputWaypoints))
	}

	if headers["Cache-Control"] != "no-store" {
		t.Errorf("expected no-store, got %q", headers["Cache-Control"])
	}
	if headers["X-Routing-Request-ID"] != res.RequestID || res.RequestID == "" {
		t.Errorf("request id header %q does not match body %q", headers["X-Routing-Request-ID"], res.RequestID)
	}

	q := tr.lastQuery(t)
	if q.Get("waypoint0") != "geo!38.5,-120.2" || q.Get("waypoint1") != "geo!43.252,-126.453" {
		t.Errorf("unexpected waypoints in %v", q)
	}
	if q.Get("language") != "eu-es" {
		t.Errorf("expected language to be forwarded, got %q", q.Get("language"))
	}
	if q.Get("app_id") != "app" {
		t.Errorf("expected credentials, got %q", q.Get("app_id"))
	}
}

func TestRouteGet_Geohash(t *testing.T) {
	tr := &fakeHERE{body: hereOK}
	app := setupApp(makeDeps(tr))

	status, body, _ := doRequest(t, app, "GET", "/v1/route?waypoints=gh:ezs42;43.26,-2.93", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	wp0 := tr.lastQuery(t).Get("waypoint0")
	if !strings.HasPrefix(wp0, "geo!42.6") {
		t.Errorf("expected geohash ezs42 to decode near 42.6,-5.6, got %q", wp0)
	}
}

func TestRouteGet_BadRequests(t *testing.T) {
	tests := []struct {
		name, target, want string
	}{
		{"missing waypoints", "/v1/route", "waypoints is required"},
		{"bad token", "/v1/route?waypoints=43.26", "want \"lat,lng\""},
		{"bad latitude", "/v1/route?waypoints=abc,1", "invalid latitude"},
		{"out of range", "/v1/route?waypoints=95,1", "Lat must be a valid latitude"},
		{"bad geohash", "/v1/route?waypoints=gh:aaaa", "geohash"},
		{"credential override", "/v1/route?waypoints=1,1&app_code=x", "app_code cannot be set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeHERE{body: hereOK}
			app := setupApp(makeDeps(tr))

			status, body, _ := doRequest(t, app, "GET", tt.target, "")
			if status != 400 {
				t.Fatalf("expected 400, got %d: %s", status, body)
			}
			var e errorBody
			json.Unmarshal(body, &e)
			if e.Code != "bad_request" || !strings.Contains(e.Message, tt.want) {
				t.Errorf("expected bad_request mentioning %q, got %+v", tt.want, e)
			}
			if len(tr.urls) != 0 {
				t.Error("invalid requests must not reach the routing service")
			}
		})
	}
}

func TestRoutePost_Success(t *testing.T) {
	tr := &fakeHERE{body: hereOK}
	app := setupApp(makeDeps(tr))

	body := `{"waypoints":[{"lat":43.263,"lon":-2.935,"name":"Abando"},{"lat":43.2569,"lon":-2.9236,"name":"Moyua"}],"params":{"mode":"fastest;pedestrian"}}`
	status, resp, _ := doRequest(t, app, "POST", "/v1/route", body)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, resp)
	}
	var res routeBody
	json.Unmarshal(resp, &res)
	if res.Routes[0].InputWaypoints[0].Name != "Abando" {
		t.Errorf("expected waypoint names to survive, got %+v", res.Routes[0].InputWaypoints)
	}
	if tr.lastQuery(t).Get("mode") != "fastest;pedestrian" {
		t.Errorf("expected mode override, got %q", tr.lastQuery(t).Get("mode"))
	}
}

func TestRoutePost_Validation(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"no waypoints", `{"waypoints":[]}`, "Waypoints must have at least 1"},
		{"bad longitude", `{"waypoints":[{"lat":1,"lon":200}]}`, "must be a valid longitude"},
		{"missing lon", `{"waypoints":[{"lat":1}]}`, "lat and lon are required"},
		{"mixed", `{"waypoints":[{"lat":1,"lon":1,"geohash":"ezs42"}]}`, "cannot be combined"},
		{"not json", `{`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(&fakeHERE{body: hereOK}))
			status, body, _ := doRequest(t, app, "POST", "/v1/route", tt.body)
			if status != 400 || !strings.Contains(string(body), tt.want) {
				t.Errorf("expected 400 mentioning %q, got %d: %s", tt.want, status, body)
			}
		})
	}
}

func TestRoute_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		tr     *fakeHERE
		opts   []func(*here.Config)
		status int
		code   string
	}{
		{
			name:   "remote error",
			tr:     &fakeHERE{body: `{"type":"ApplicationError","subtype":"NoRouteFound","details":"no route"}`},
			status: 422,
			code:   "routing_error",
		},
		{
			name:   "timeout",
			tr:     &fakeHERE{body: hereOK, delay: 300 * time.Millisecond},
			opts:   []func(*here.Config){func(c *here.Config) { c.Timeout = 5 * time.Millisecond }},
			status: 504,
			code:   "upstream_timeout",
		},
		{
			name:   "transport error",
			tr:     &fakeHERE{err: errors.New("connection refused")},
			status: 502,
			code:   "upstream_unavailable",
		},
		{
			name:   "malformed response",
			tr:     &fakeHERE{body: `{"response":{"route":[{"shape":["x,y"],"leg":[]}]}}`},
			status: 502,
			code:   "bad_upstream_response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(tt.tr, tt.opts...))
			status, body, _ := doRequest(t, app, "GET", "/v1/route?waypoints=1,1;2,2", "")
			if status != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, status, body)
			}
			var e errorBody
			json.Unmarshal(body, &e)
			if e.Code != tt.code {
				t.Errorf("expected code %q, got %+v", tt.code, e)
			}
		})
	}
}

func TestRoute_RemoteErrorIsRelayed(t *testing.T) {
	tr := &fakeHERE{body: `{"type":"ApplicationError","subtype":"NoRouteFound","details":"no route"}`}
	app := setupApp(makeDeps(tr))

	_, body, _ := doRequest(t, app, "GET", "/v1/route?waypoints=1,1;2,2", "")
	var e errorBody
	json.Unmarshal(body, &e)
	if e.Upstream == nil || e.Upstream.Status != "ApplicationError" || e.Upstream.Subtype != "NoRouteFound" || e.Message != "no route" {
		t.Errorf("expected upstream error verbatim, got %+v", e)
	}
}

func TestGraphQL_Route(t *testing.T) {
	tr := &fakeHERE{body: hereOK}
	app := setupApp(makeDeps(tr))

	query := `{"query":"query($w:[WaypointInput!]!){ route(waypoints:$w, params:[{key:\"language\",value:\"es-es\"}]) { request_id routes { polyline summary { total_distance total_time } instructions { text distance } } } }",
	  "variables":{"w":[{"lat":38.5,"lon":-120.2},{"geohash":"ezs42"}]}}`
	status, body, _ := doRequest(t, app, "POST", "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res struct {
		Data struct {
			Route struct {
				RequestID string `json:"request_id"`
				Routes    []struct {
					Polyline string `json:"polyline"`
					Summary  struct {
						TotalDistance float64 `json:"total_distance"`
					} `json:"summary"`
					Instructions []struct {
						Text string `json:"text"`
					} `json:"instructions"`
				} `json:"routes"`
			} `json:"route"`
		} `json:"data"`
		Errors []map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	routes := res.Data.Route.Routes
	if len(routes) != 1 || routes[0].Summary.TotalDistance != 300 || routes[0].Instructions[1].Text != "Arrive." {
		t.Errorf("unexpected result %+v", res.Data.Route)
	}
	if tr.lastQuery(t).Get("language") != "es-es" {
		t.Error("expected params to be forwarded")
	}
}

func TestGraphQL_RoutingErrorSurfaces(t *testing.T) {
	app := setupApp(makeDeps(&fakeHERE{body: `{"type":"InvalidInput","details":"bad waypoint"}`}))

	query := `{"query":"{ route(waypoints:[{lat:1,lon:1}]) { request_id } }"}`
	_, body, _ := doRequest(t, app, "POST", "/graphql", query)
	if !strings.Contains(string(body), "bad waypoint") {
		t.Errorf("expected routing error in GraphQL errors, got %s", body)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(&fakeHERE{body: hereOK}))
	status, _, _ := doRequest(t, app, "GET", "/ws", "")
	if status != 426 {
		t.Errorf("expected 426, got %d", status)
	}
}

func TestDocs_ServesOpenAPI(t *testing.T) {
	app := setupApp(makeDeps(&fakeHERE{body: hereOK}))

	status, body, _ := doRequest(t, app, "GET", "/docs/openapi.yaml", "")
	if status != 200 || !strings.Contains(string(body), "/v1/route") {
		t.Errorf("expected openapi document, got %d", status)
	}
	status, body, _ = doRequest(t, app, "GET", "/docs", "")
	if status != 200 || !strings.Contains(string(body), "swagger-ui") {
		t.Errorf("expected swagger ui, got %d", status)
	}
}

// ---- Shared limiter storage ----

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemStorage() *memStorage { return &memStorage{data: map[string][]byte{}} }

func (m *memStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStorage) Set(key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), val...)
	m.sets++
	return nil
}

func (m *memStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStorage) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	return nil
}

func (m *memStorage) Close() error { return nil }

var _ fiber.Storage = (*memStorage)(nil)

func TestRouteLimiter_SharedAcrossInstances(t *testing.T) {
	store := newMemStorage()
	newReplica := func() *fiber.App {
		deps := makeDeps(&fakeHERE{body: hereOK})
		deps.LimiterStorage = store
		return setupApp(deps)
	}
	first, second := newReplica(), newReplica()

	// Rejected requests still count against the budget.
	for i := 0; i < 60; i++ {
		if status, body, _ := doRequest(t, first, "GET", "/v1/route", ""); status != 400 {
			t.Fatalf("request %d: expected 400, got %d: %s", i, status, body)
		}
	}

	status, body, _ := doRequest(t, second, "GET", "/v1/route", "")
	if status != 429 {
		t.Fatalf("expected the second instance to see the shared budget exhausted, got %d: %s", status, body)
	}
	var e errorBody
	json.Unmarshal(body, &e)
	if e.Code != "rate_limited" {
		t.Errorf("expected rate_limited, got %+v", e)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.sets == 0 {
		t.Error("limiter never wrote to the configured storage")
	}
}

func TestRouteLimiter_HealthNotLimited(t *testing.T) {
	deps := makeDeps(&fakeHERE{body: hereOK})
	deps.LimiterStorage = newMemStorage()
	app := setupApp(deps)

	for i := 0; i < 70; i++ {
		if status, _, _ := doRequest(t, app, "GET", "/v1/health", ""); status != 200 {
			t.Fatalf("health request %d: expected 200, got %d", i, status)
		}
	}
}
