// Package gatewaytest provides an in-process fake of the gateway's admin
// control plane and data plane for tests: canonical route storage, plugin
// availability toggles and failure injection (refused connections,
// per-route upsert status, per-route data-plane status).
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/pkg/gateway"
)

type storedRoute struct {
	doc gateway.RouteDoc
	raw []byte
}

// Fake is one fake gateway instance backed by two httptest servers.
type Fake struct {
	mu             sync.Mutex
	adminKey       string
	routes         map[string]storedRoute
	order          []string
	plugins        map[string]bool
	refuseRequests int
	upsertStatus   map[string]int
	dataStatus     map[string]int

	adminSrv *httptest.Server
	dataSrv  *httptest.Server
}

func New(adminKey string) *Fake {
	f := &Fake{
		adminKey:     adminKey,
		routes:       map[string]storedRoute{},
		plugins:      map[string]bool{},
		upsertStatus: map[string]int{},
		dataStatus:   map[string]int{},
	}

	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	admin := gin.New()
	admin.Use(ginzap.Ginzap(logger, time.RFC3339, true), ginzap.RecoveryWithZap(logger, true))
	admin.Use(f.failureMiddleware, f.authMiddleware)
	admin.GET("/routes", f.listRoutes)
	admin.GET("/routes/:id", f.getRoute)
	admin.PUT("/routes/:id", f.putRoute)
	admin.DELETE("/routes/:id", f.deleteRoute)
	admin.GET("/plugins/:name", f.getPlugin)
	f.adminSrv = httptest.NewServer(admin)

	data := gin.New()
	data.Use(ginzap.RecoveryWithZap(logger, true))
	data.NoRoute(f.proxy)
	f.dataSrv = httptest.NewServer(data)

	return f
}

func (f *Fake) AdminURL() string { return f.adminSrv.URL }
func (f *Fake) DataURL() string  { return f.dataSrv.URL }

func (f *Fake) Close() {
	f.adminSrv.Close()
	f.dataSrv.Close()
}

// SetPlugin toggles a capability's availability.
func (f *Fake) SetPlugin(name string, available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plugins[name] = available
}

// RefuseConnections makes the next n admin requests fail with 503 before
// reaching any handler, simulating a gateway that is still coming up.
func (f *Fake) RefuseConnections(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refuseRequests = n
}

// FailUpsert forces the given status code on upserts of one route id.
func (f *Fake) FailUpsert(routeID string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertStatus[routeID] = status
}

// SetDataStatus forces the data-plane status for requests matching the
// stored route with the given URI. Unset routes answer 200.
func (f *Fake) SetDataStatus(uri string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataStatus[uri] = status
}

// RouteCount returns the number of stored routes.
func (f *Fake) RouteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.routes)
}

// StoredDocument returns the canonical stored bytes for a route id, for
// idempotence assertions.
func (f *Fake) StoredDocument(routeID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routes[routeID]
	if !ok {
		return nil, false
	}
	return slices.Clone(r.raw), true
}

// Seed stores a route directly, bypassing the admin API, to model routes an
// operator added by hand.
func (f *Fake) Seed(routeID string, doc gateway.RouteDoc) {
	raw, _ := json.Marshal(doc)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.routes[routeID]; !exists {
		f.order = append(f.order, routeID)
	}
	f.routes[routeID] = storedRoute{doc: doc, raw: raw}
}

func (f *Fake) failureMiddleware(c *gin.Context) {
	f.mu.Lock()
	refuse := f.refuseRequests > 0
	if refuse {
		f.refuseRequests--
	}
	f.mu.Unlock()

	if refuse {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "not ready"})
	}
}

func (f *Fake) authMiddleware(c *gin.Context) {
	if c.GetHeader("X-API-KEY") != f.adminKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
	}
}

func (f *Fake) listRoutes(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := gin.H{"total": len(f.order)}
	entries := []gin.H{}
	for _, id := range f.order {
		entries = append(entries, gin.H{
			"key":   "/apisix/routes/" + id,
			"value": f.routes[id].doc,
		})
	}
	list["list"] = entries
	c.JSON(http.StatusOK, list)
}

func (f *Fake) getRoute(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := c.Param("id")
	r, ok := f.routes[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": "/apisix/routes/" + id, "value": r.doc})
}

func (f *Fake) putRoute(c *gin.Context) {
	id := c.Param("id")

	f.mu.Lock()
	forced, hasForced := f.upsertStatus[id]
	f.mu.Unlock()
	if hasForced {
		c.JSON(forced, gin.H{"error": "injected failure"})
		return
	}

	var doc gateway.RouteDoc
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Full replace: the previous document does not survive, matching the
	// real admin API's PUT-by-id semantics.
	raw, _ := json.Marshal(doc)

	f.mu.Lock()
	_, existed := f.routes[id]
	if !existed {
		f.order = append(f.order, id)
	}
	f.routes[id] = storedRoute{doc: doc, raw: raw}
	f.mu.Unlock()

	if existed {
		c.JSON(http.StatusOK, gin.H{"key": "/apisix/routes/" + id})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": "/apisix/routes/" + id})
}

func (f *Fake) deleteRoute(c *gin.Context) {
	id := c.Param("id")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.routes[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}
	delete(f.routes, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (f *Fake) getPlugin(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := c.Param("name")
	if f.plugins[name] {
		c.JSON(http.StatusOK, gin.H{"name": name})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "plugin not found"})
}

// proxy models the data plane: requests matching a stored route answer
// with that route's configured status (default 200), everything else 404.
func (f *Fake) proxy(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := c.Request.URL.Path
	for _, id := range f.order {
		r := f.routes[id]
		if !matchURI(r.doc.URI, path) {
			continue
		}
		if len(r.doc.Methods) > 0 && !slices.Contains(r.doc.Methods, c.Request.Method) {
			continue
		}
		status := http.StatusOK
		if forced, ok := f.dataStatus[r.doc.URI]; ok {
			status = forced
		}
		c.JSON(status, gin.H{"route": id})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no matching route"})
}

func matchURI(routeURI, path string) bool {
	if strings.HasSuffix(routeURI, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(routeURI, "*"))
	}
	return routeURI == path
}
