// README: HTTP surface tests over in-memory backends.
package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"rumo/internal/logger"
	"rumo/internal/modules/costcenter"
	"rumo/internal/modules/driver"
	"rumo/internal/modules/fare"
	"rumo/internal/modules/reason"
	"rumo/internal/modules/ride"
	"rumo/internal/modules/unit"
	"rumo/internal/types"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Nop()
	rideStore := ride.NewMemStore()
	ccSvc := costcenter.NewService(costcenter.NewMemStore(), rideStore, nil, log)
	fareSvc := fare.NewService(fare.NewMemStore(), nil, log)
	driverSvc := driver.NewService(driver.NewMemPresence(), driver.NewMemTokenStore(), nil, log)
	rideSvc := ride.NewService(rideStore, fareSvc, ccSvc, nil, driverSvc, nil, log)
	unitSvc := unit.NewService(unit.NewMemStore(), ccSvc, nil, log)
	reasonSvc := reason.NewService(reason.NewMemStore(), nil, log)

	srv := NewServer(ServerDeps{
		Rides:       rideSvc,
		CostCenters: ccSvc,
		Units:       unitSvc,
		Drivers:     driverSvc,
		Fares:       fareSvc,
		Reasons:     reasonSvc,
		JWTSecret:   testSecret,
		Log:         log,
	})
	return srv.Routes()
}

func token(t *testing.T, userID string, role types.Role) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestEstimateWithoutAuth(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/estimate", "", gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("estimate: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		PriceCents     int64  `json:"priceCents"`
		FormattedPrice string `json:"formattedPrice"`
	}
	decode(t, w, &resp)
	// default trip shape: 5 km, 12 min
	if resp.PriceCents != 2350 {
		t.Fatalf("expected 2350 cents, got %d", resp.PriceCents)
	}
	if resp.FormattedPrice != "R$ 23,50" {
		t.Fatalf("expected R$ 23,50, got %q", resp.FormattedPrice)
	}
}

func TestRideFlowOverHTTP(t *testing.T) {
	h := newTestServer(t)
	passTok := token(t, "pass-1", types.RolePassenger)
	drvTok := token(t, "drv-1", types.RoleDriver)

	w := do(t, h, http.MethodPost, "/api/rides", passTok, gin.H{
		"pickupAddress":      "Av. Paulista, 1000",
		"destinationAddress": "Praça da Sé, 1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &created)
	if created.Status != "requested" {
		t.Fatalf("expected requested, got %s", created.Status)
	}

	// drivers see it on the open feed
	w = do(t, h, http.MethodGet, "/api/rides?available=true", drvTok, nil)
	var feed []struct {
		ID string `json:"id"`
	}
	decode(t, w, &feed)
	if len(feed) != 1 || feed[0].ID != created.ID {
		t.Fatalf("feed wrong: %s", w.Body.String())
	}

	// a passenger may not accept
	w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/accept", passTok, gin.H{"driverName": "X"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("passenger accept: %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/accept", drvTok, gin.H{
		"driverName":   "João",
		"vehiclePlate": "ABC1D23",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}

	for _, step := range []string{"arrive", "start"} {
		w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/"+step, drvTok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", step, w.Code, w.Body.String())
		}
	}

	w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/trajectory", drvTok, gin.H{
		"points": []gin.H{{"lat": -23.56, "lng": -46.65}},
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("trajectory: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/complete", drvTok, gin.H{"priceCents": 2500})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}

	// completing twice conflicts with the final state
	w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/complete", drvTok, gin.H{"priceCents": 2500})
	if w.Code != http.StatusConflict {
		t.Fatalf("double complete: %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/rides/"+created.ID+"/rate", passTok, gin.H{"rating": 5})
	if w.Code != http.StatusNoContent {
		t.Fatalf("rate: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthAndRoleGates(t *testing.T) {
	h := newTestServer(t)

	// listing requires a token
	w := do(t, h, http.MethodGet, "/api/rides", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: %d", w.Code)
	}

	// a garbage token is rejected even on optional-auth routes
	req := httptest.NewRequest(http.MethodPost, "/api/rides", bytes.NewBufferString("{}"))
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rec.Code)
	}

	// drivers cannot manage cost centers
	drvTok := token(t, "drv-1", types.RoleDriver)
	w = do(t, h, http.MethodGet, "/api/cost-centers", drvTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("driver cost centers: %d", w.Code)
	}

	// unit managers cannot create them
	unitTok := token(t, "unit-1", types.RoleUnitManager)
	w = do(t, h, http.MethodPost, "/api/cost-centers", unitTok, gin.H{"name": "X"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("unit manager create: %d", w.Code)
	}
}

func TestPolicyRejectionOverHTTP(t *testing.T) {
	h := newTestServer(t)
	centralTok := token(t, "mgr-1", types.RoleCentralManager)
	passTok := token(t, "pass-1", types.RolePassenger)

	w := do(t, h, http.MethodPost, "/api/cost-centers", centralTok, gin.H{"name": "Bloqueado"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create cost center: %d %s", w.Code, w.Body.String())
	}
	var cc struct {
		ID string `json:"id"`
	}
	decode(t, w, &cc)

	w = do(t, h, http.MethodPost, "/api/cost-centers/"+cc.ID+"/members", centralTok, gin.H{"userId": "pass-1"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("add member: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodPatch, "/api/cost-centers/"+cc.ID, centralTok, gin.H{"blocked": true})
	if w.Code != http.StatusOK {
		t.Fatalf("block: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/rides", passTok, gin.H{
		"pickupAddress":      "A",
		"destinationAddress": "B",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blocked cost center ride: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Reason string `json:"reason"`
	}
	decode(t, w, &resp)
	if resp.Reason != costcenter.ReasonBlocked {
		t.Fatalf("expected %s, got %q", costcenter.ReasonBlocked, resp.Reason)
	}

	// the estimate preview runs the same checks and must agree
	w = do(t, h, http.MethodPost, "/api/estimate", passTok, gin.H{})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blocked cost center estimate: %d %s", w.Code, w.Body.String())
	}
	resp.Reason = ""
	decode(t, w, &resp)
	if resp.Reason != costcenter.ReasonBlocked {
		t.Fatalf("estimate reason: expected %s, got %q", costcenter.ReasonBlocked, resp.Reason)
	}

	// anonymous previews carry no cost center and stay unaffected
	w = do(t, h, http.MethodPost, "/api/estimate", "", gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous estimate: %d %s", w.Code, w.Body.String())
	}
}

func TestRequestReasonCatalog(t *testing.T) {
	h := newTestServer(t)
	centralTok := token(t, "mgr-1", types.RoleCentralManager)
	unitTok := token(t, "unit-1", types.RoleUnitManager)
	passTok := token(t, "pass-1", types.RolePassenger)

	w := do(t, h, http.MethodPost, "/api/request-reasons", centralTok, gin.H{"name": "Visita a cliente"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create reason: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	// writes are central-manager only; any manager may read
	w = do(t, h, http.MethodPost, "/api/request-reasons", unitTok, gin.H{"name": "X"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("unit manager create reason: %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/request-reasons", unitTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unit manager list reasons: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodGet, "/api/request-reasons", passTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("passenger list reasons: %d", w.Code)
	}

	w = do(t, h, http.MethodPatch, "/api/request-reasons/"+created.ID, centralTok, gin.H{"name": "Reunião"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename reason: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodDelete, "/api/request-reasons/"+created.ID, centralTok, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete reason: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodDelete, "/api/request-reasons/"+created.ID, centralTok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing reason: %d", w.Code)
	}
}

func TestAnonymousRideCreation(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/rides", "", gin.H{
		"pickupAddress":      "Terminal Rodoviário",
		"destinationAddress": "Aeroporto de Congonhas",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("anonymous create: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		RequesterID  string  `json:"requesterId"`
		CostCenterID *string `json:"costCenterId"`
	}
	decode(t, w, &created)
	if created.RequesterID != "" || created.CostCenterID != nil {
		t.Fatalf("anonymous ride should be personal: %s", w.Body.String())
	}

	// picking a cost center without being a member is refused
	w = do(t, h, http.MethodPost, "/api/rides", "", gin.H{
		"pickupAddress":      "A",
		"destinationAddress": "B",
		"costCenterId":       "cc-ghost",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("anonymous explicit cost center: %d %s", w.Code, w.Body.String())
	}
}

func TestForeignRideReadsAsMissing(t *testing.T) {
	h := newTestServer(t)
	passTok := token(t, "pass-1", types.RolePassenger)
	otherTok := token(t, "pass-2", types.RolePassenger)

	w := do(t, h, http.MethodPost, "/api/rides", passTok, gin.H{
		"pickupAddress":      "A",
		"destinationAddress": "B",
	})
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = do(t, h, http.MethodGet, "/api/rides/"+created.ID, otherTok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign ride: %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/rides/"+created.ID, passTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("own ride: %d", w.Code)
	}
}
