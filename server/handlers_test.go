package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Daskott/safenest/server/models"
	"github.com/Daskott/safenest/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type testResponse struct {
	Errors  []string               `json:"errors"`
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
}

func privateKeyPem(t *testing.T) string {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newTestServer(t *testing.T, triggerMode string) (*Server, *httptest.Server) {
	config := shared.ServerConfig{
		SafeNest: shared.SafeNestConfig{
			PrivateKeyPem: privateKeyPem(t),
			Cron:          shared.CronConfig{TimeZone: "UTC"},
			Listener:      shared.ListenerConfig{Port: 3000},
			Workers:       shared.WorkersConfig{Concurrency: 2},
		},
		Geofence: shared.GeofenceConfig{TriggerMode: triggerMode},
	}

	store := models.InitializeTestDb(t)
	s, err := NewServer(config, store, nil, true)
	require.NoError(t, err)

	require.NoError(t, s.workerPool.Start())
	t.Cleanup(func() {
		s.workerPool.Stop()
		s.hub.Close()
	})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return s, srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (int, testResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	result := testResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	return resp.StatusCode, result
}

func registerGuardian(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()

	status, resp := doRequest(t, srv, "POST", "/api/v1/register", "", map[string]string{
		"name":     "Jessica Pearson",
		"email":    email,
		"password": "Password1!",
	})
	require.Equal(t, http.StatusCreated, status, resp.Errors)

	return resp.Data["token"].(string)
}

func addMember(t *testing.T, srv *httptest.Server, token, name string) uint {
	t.Helper()

	status, resp := doRequest(t, srv, "POST", "/api/v1/family", token, map[string]string{"name": name, "relationship": "son"})
	require.Equal(t, http.StatusCreated, status, resp.Errors)

	member := resp.Data["member"].(map[string]interface{})
	return uint(member["id"].(float64))
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, SERVICE_NAME, body["service"])
}

func TestJWKS(t *testing.T) {
	_, srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/jwks")
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string][]map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body["keys"], 1)
	assert.Equal(t, "RS256", body["keys"][0]["alg"])
}

func TestRegisterAndLogin(t *testing.T) {
	_, srv := newTestServer(t, "")

	token := registerGuardian(t, srv, "jessica@pearson.com")
	assert.NotEmpty(t, token)

	status, resp := doRequest(t, srv, "POST", "/api/v1/register", "", map[string]string{
		"name": "Jessica", "email": "Jessica@Pearson.com", "password": "Password1!",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, resp.Errors, "email already exists")

	status, _ = doRequest(t, srv, "POST", "/api/v1/register", "", map[string]string{
		"name": "Louis", "email": "louis@pearson.com", "password": "has space",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, srv, "POST", "/api/v1/login", "", map[string]string{
		"email": "jessica@pearson.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, srv, "POST", "/api/v1/login", "", map[string]string{
		"email": "nobody@pearson.com", "password": "Password1!",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp = doRequest(t, srv, "POST", "/api/v1/login", "", map[string]string{
		"email": "jessica@pearson.com", "password": "Password1!",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, resp.Data["token"])

	user := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "jessica@pearson.com", user["email"])
	assert.NotContains(t, user, "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, srv := newTestServer(t, "")

	status, resp := doRequest(t, srv, "GET", "/api/v1/family", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, []string{"no token provided"}, resp.Errors)

	status, resp = doRequest(t, srv, "GET", "/api/v1/alerts", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, []string{"invalid token provided"}, resp.Errors)
}

func TestFamilyMembers(t *testing.T) {
	_, srv := newTestServer(t, "")
	token := registerGuardian(t, srv, "jessica@pearson.com")
	otherToken := registerGuardian(t, srv, "daniel@hardman.com")

	mikeID := addMember(t, srv, token, "Mike")
	addMember(t, srv, token, "Rachel")

	status, _ := doRequest(t, srv, "POST", "/api/v1/family", token, map[string]string{"email": "no-name@pearson.com"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, srv, "DELETE", fmt.Sprintf("/api/v1/family/%v", mikeID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status, "guardians can't touch each other's members")

	status, _ = doRequest(t, srv, "DELETE", fmt.Sprintf("/api/v1/family/%v", mikeID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, resp := doRequest(t, srv, "GET", "/api/v1/family", token, nil)
	require.Equal(t, http.StatusOK, status)
	family := resp.Data["family"].([]interface{})
	require.Len(t, family, 1)
	assert.Equal(t, "Rachel", family[0].(map[string]interface{})["name"])
}

func TestZoneExitRaisesOneAlert(t *testing.T) {
	_, srv := newTestServer(t, "")
	token := registerGuardian(t, srv, "jessica@pearson.com")
	memberID := addMember(t, srv, token, "Mike")

	status, resp := doRequest(t, srv, "POST", "/api/v1/safezones", token, map[string]interface{}{
		"name": "Home", "latitude": 43.6532, "longitude": -79.3832, "radius": 100,
	})
	require.Equal(t, http.StatusCreated, status, resp.Errors)

	// ~500m east of the zone's center
	status, resp = doRequest(t, srv, "POST", "/api/v1/locations", token, map[string]interface{}{
		"member_id": memberID, "latitude": 43.6532, "longitude": -79.3770, "battery_level": 80,
	})
	require.Equal(t, http.StatusOK, status, resp.Errors)

	var alerts []interface{}
	require.Eventually(t, func() bool {
		_, resp := doRequest(t, srv, "GET", "/api/v1/alerts", token, nil)
		alerts = resp.Data["alerts"].([]interface{})
		return len(alerts) > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.Len(t, alerts, 1)
	alert := alerts[0].(map[string]interface{})
	assert.Equal(t, models.SAFE_ZONE_EXIT_ALERT, alert["type"])
	assert.Equal(t, "Mike has left Home safe zone", alert["message"])
	assert.Equal(t, "Mike", alert["member_name"])
	assert.Equal(t, float64(memberID), alert["member_id"])

	status, resp = doRequest(t, srv, "GET", "/api/v1/locations/current", token, nil)
	require.Equal(t, http.StatusOK, status)
	current := resp.Data["locations"].([]interface{})[0].(map[string]interface{})
	assert.InDelta(t, -79.3770, current["longitude"], 1e-9)

	alertID := uint(alert["id"].(float64))
	status, _ = doRequest(t, srv, "PUT", fmt.Sprintf("/api/v1/alerts/%v/read", alertID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, srv, "PUT", "/api/v1/alerts/9999/read", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLocationForUnknownMember(t *testing.T) {
	_, srv := newTestServer(t, "")
	token := registerGuardian(t, srv, "jessica@pearson.com")

	status, _ := doRequest(t, srv, "POST", "/api/v1/locations", token, map[string]interface{}{
		"member_id": 42, "latitude": 43.65, "longitude": -79.38,
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, srv, "POST", "/api/v1/locations", token, map[string]interface{}{"member_id": 42})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEmergency(t *testing.T) {
	_, srv := newTestServer(t, "")
	token := registerGuardian(t, srv, "jessica@pearson.com")

	status, resp := doRequest(t, srv, "POST", "/api/v1/emergency", token, nil)
	require.Equal(t, http.StatusOK, status, resp.Errors)
	assert.NotZero(t, resp.Data["alert_id"])
	assert.Len(t, resp.Data["actions"], 3)

	status, resp = doRequest(t, srv, "POST", "/api/v1/emergency", token, map[string]interface{}{
		"message":  "Flat tire on the highway",
		"location": map[string]float64{"latitude": 43.65, "longitude": -79.38},
	})
	require.Equal(t, http.StatusOK, status)

	_, resp = doRequest(t, srv, "GET", "/api/v1/alerts", token, nil)
	alerts := resp.Data["alerts"].([]interface{})
	require.Len(t, alerts, 2)
	assert.Equal(t, "Flat tire on the highway", alerts[0].(map[string]interface{})["message"])
	assert.Equal(t, "Emergency alert triggered", alerts[1].(map[string]interface{})["message"])
}

func TestRequestTimeout(t *testing.T) {
	s, _ := newTestServer(t, "")
	assert.Equal(t, DEFAULT_REQUEST_TIMEOUT, s.requestTimeout)

	s.requestTimeout = 50 * time.Millisecond

	t.Run("request context carries the deadline", func(t *testing.T) {
		var deadline time.Time
		var hasDeadline bool
		handler := s.timeoutMiddleware(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			deadline, hasDeadline = r.Context().Deadline()
		}))

		start := time.Now()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/family", nil))

		require.True(t, hasDeadline)
		assert.WithinDuration(t, start.Add(50*time.Millisecond), deadline, 50*time.Millisecond)
	})

	t.Run("expired request returns 503", func(t *testing.T) {
		var ctxErr error
		handler := s.timeoutMiddleware(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			ctxErr = r.Context().Err()
			writeStoreError(rw, ctxErr)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/family", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
	})
}

func TestInsightsAndChat(t *testing.T) {
	_, srv := newTestServer(t, "")
	token := registerGuardian(t, srv, "jessica@pearson.com")
	addMember(t, srv, token, "Mike")

	status, resp := doRequest(t, srv, "GET", "/api/v1/insights", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), resp.Data["safety_score"])
	assert.Len(t, resp.Data["predictions"], 4)
	assert.Equal(t, []interface{}{"Check in with Mike - no location updates received yet"}, resp.Data["recommendations"])

	status, resp = doRequest(t, srv, "POST", "/api/v1/chat", token, map[string]string{"message": "Where is everyone?"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(resp.Data["response"].(string), "Current Family Location Status"))
}

func TestJobsAreAdminOnly(t *testing.T) {
	s, srv := newTestServer(t, "")
	adminToken := registerGuardian(t, srv, "jessica@pearson.com")
	guardianToken := registerGuardian(t, srv, "louis@pearson.com")

	require.NoError(t, s.snapshotInsights(nil))

	status, _ := doRequest(t, srv, "GET", "/api/v1/jobs", guardianToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, srv, "GET", "/api/v1/jobs?status=unknown", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp := doRequest(t, srv, "GET", "/api/v1/jobs", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, resp.Data, "stats")

	status, resp = doRequest(t, srv, "GET", "/api/v1/insights/history", guardianToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Data["insights"], 1)
}

func TestRealtimeChannelThroughRouter(t *testing.T) {
	s, srv := newTestServer(t, "")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	sender, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer sender.Close()

	receiver, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer receiver.Close()

	require.Eventually(t, func() bool { return s.hub.SessionCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	update := `{"type":"location_update","member_id":1}`
	require.NoError(t, websocket.Message.Send(sender, update))

	_ = receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg string
	require.NoError(t, websocket.Message.Receive(receiver, &msg))
	assert.Equal(t, update, msg)
}
