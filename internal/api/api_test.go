package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtrestaurant/internal/database"
	"qtrestaurant/internal/models"
	"qtrestaurant/internal/models/providers"
	"qtrestaurant/internal/monitoring"
	"qtrestaurant/internal/proxy"
)

const adminSecret = "test-admin-secret"

type chatResponse struct {
	Text     string   `json:"text"`
	Action   *string  `json:"action"`
	Items    []string `json:"items"`
	Fallback bool     `json:"fallback"`
	Error    string   `json:"error"`
}

func setupTestAPI(t *testing.T, p providers.Provider) *ChatAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "api.db"), &models.ChatExchange{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	exchanges := database.NewExchangeStore(db)

	monitor := monitoring.NewMonitor()
	metrics := monitoring.NewMetrics()
	svc, err := proxy.NewService(p, proxy.DefaultPromptConfig(),
		proxy.WithRecorder(exchanges),
		proxy.WithObserver(monitor),
		proxy.WithObserver(metrics),
		proxy.WithTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)

	return NewChatAPI(svc, exchanges, monitor, metrics, Options{AdminSecret: adminSecret})
}

func lambProvider() providers.Provider {
	return providers.Func(func(ctx context.Context, messages []providers.Message) (string, error) {
		return `{"text":"Dạ em đã thêm Lamb Rack Herb Crust ạ","action":"add_to_cart","items":["Lamb Rack Herb Crust"]}`, nil
	})
}

func postChat(api *ChatAPI, body string) (*httptest.ResponseRecorder, chatResponse) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	api.Router.ServeHTTP(w, req)

	var resp chatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealth(t *testing.T) {
	api := setupTestAPI(t, lambProvider())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	api.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestChat_Success(t *testing.T) {
	api := setupTestAPI(t, lambProvider())

	w, resp := postChat(api, `{"message":"cho anh sườn cừu","history":[{"role":"user","content":"xin chào"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Fallback)
	require.NotNil(t, resp.Action)
	assert.Equal(t, "add_to_cart", *resp.Action)
	assert.Equal(t, []string{"Lamb Rack Herb Crust"}, resp.Items)

	recent, err := api.Exchanges.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "cho anh sườn cừu", recent[0].Message)

	assert.Equal(t, 1, api.Monitor.Snapshot()["chat_requests_total"])
}

func TestChat_FailuresAreAlways200(t *testing.T) {
	cases := []struct {
		name     string
		provider providers.Provider
		body     string
		reason   string
	}{
		{"provider error", providers.Func(func(ctx context.Context, _ []providers.Message) (string, error) {
			return "", assert.AnError
		}), `{"message":"xin chào"}`, proxy.ReasonProviderError},
		{"provider timeout", providers.Func(func(ctx context.Context, _ []providers.Message) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}), `{"message":"xin chào"}`, proxy.ReasonTimeout},
		{"malformed completion", providers.Func(func(ctx context.Context, _ []providers.Message) (string, error) {
			return `{"text":`, nil
		}), `{"message":"xin chào"}`, proxy.ReasonInvalidCompletion},
		{"bad body", lambProvider(), `message=xin chào`, proxy.ReasonInvalidRequest},
		{"empty body", lambProvider(), ``, proxy.ReasonInvalidRequest},
		{"empty message", lambProvider(), `{"message":""}`, proxy.ReasonEmptyMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := setupTestAPI(t, tc.provider)

			w, resp := postChat(api, tc.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, resp.Fallback)
			assert.Equal(t, proxy.DefaultFallbackText, resp.Text)
			assert.Nil(t, resp.Action)
			assert.NotNil(t, resp.Items)
			assert.Empty(t, resp.Items)
			assert.Equal(t, tc.reason, resp.Error)
		})
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	api := setupTestAPI(t, lambProvider())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(method, "/api/chat", nil)
		api.Router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
	}
}

func TestChat_CORSPreflight(t *testing.T) {
	api := setupTestAPI(t, lambProvider())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	api.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoints(t *testing.T) {
	api := setupTestAPI(t, lambProvider())
	postChat(api, `{"message":"thêm món"}`)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	api.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qt_chat_requests_total")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/metrics", nil)
	api.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime_seconds")
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAdminExchanges(t *testing.T) {
	api := setupTestAPI(t, lambProvider())
	postChat(api, `{"message":"cho anh sườn cừu"}`)
	postChat(api, `oops`)

	get := func(auth, query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/admin/exchanges"+query, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		api.Router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, get("", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer "+adminToken(t, "wrong"), "").Code)
	assert.Equal(t, http.StatusBadRequest, get("Bearer "+adminToken(t, adminSecret), "?limit=abc").Code)

	w := get("Bearer "+adminToken(t, adminSecret), "?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Exchanges []models.ChatExchange `json:"exchanges"`
		Count     int                   `json:"count"`
		Fallbacks int                   `json:"fallbacks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 1, body.Fallbacks)
	assert.True(t, body.Exchanges[0].Fallback)
	assert.Equal(t, proxy.ReasonInvalidRequest, body.Exchanges[0].FallbackReason)
}

func TestAdminResetMetrics(t *testing.T) {
	api := setupTestAPI(t, lambProvider())
	api.Monitor.SetInfo("provider", "stub")
	postChat(api, `{"message":"cho anh sườn cừu"}`)

	reset := func(auth string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/admin/metrics/reset", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		api.Router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, reset("").Code)
	assert.Equal(t, 1, api.Monitor.Snapshot()["chat_requests_total"])

	w := reset("Bearer " + adminToken(t, adminSecret))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Previous map[string]int `json:"previous"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Previous["chat_requests_total"])

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/metrics", nil)
	api.Router.ServeHTTP(w, req)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.NotContains(t, snap, "chat_requests_total")
	assert.Equal(t, "stub", snap["provider"])
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, err := proxy.NewService(lambProvider(), proxy.DefaultPromptConfig())
	require.NoError(t, err)
	api := NewChatAPI(svc, nil, nil, nil, Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/admin/exchanges", nil)
	api.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatWebSocket(t *testing.T) {
	api := setupTestAPI(t, lambProvider())
	srv := httptest.NewServer(api.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"cho anh sườn cừu"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first chatResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.False(t, first.Fallback)
	assert.Equal(t, []string{"Lamb Rack Herb Crust"}, first.Items)

	var second chatResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.True(t, second.Fallback)
	assert.Equal(t, proxy.ReasonInvalidRequest, second.Error)

	assert.Equal(t, 2, api.Monitor.Snapshot()["websocket_requests_total"])
}
