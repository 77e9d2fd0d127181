package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agentportal/aserver/db"
	"github.com/agentportal/aserver/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var agentColumns = []string{
	"agent_id", "username", "first_name", "last_name", "role", "phone", "email",
	"organization", "is_approved", "is_active", "extension", "extension_secret",
	"queue_name", "queue2_name", "layout", "channel",
}

func newAgentHandler(t *testing.T, tokens *services.TokenService) (*AgentHandler, sqlmock.Sqlmock) {
	t.Helper()
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	svc := services.NewAgentService(pg, services.NewExtensionResolver(pg), zap.NewNop())
	svc.LookupConcurrency = 1
	return NewAgentHandler(svc, tokens, zap.NewNop(), true), mock
}

func profileBody() map[string]any {
	return map[string]any{
		"agent_id":     5,
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"role":         "AD Agent",
		"phone":        "555-0100",
		"email":        "ada@example.com",
		"organization": "Support",
		"is_approved":  true,
		"is_active":    true,
		"extension":    "1234",
	}
}

func TestAgentHandler_VerifyAgent(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	columns := append(append([]string{}, agentColumns...), "password")

	t.Run("success issues a token", func(t *testing.T) {
		tokens := services.NewTokenService("test-secret", time.Hour)
		h, mock := newAgentHandler(t, tokens)
		mock.ExpectQuery("FROM agent_data AS ad").
			WithArgs("ada").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				int64(5), "ada", "Ada", "Lovelace", "AD Agent", "555-0100", "ada@example.com",
				"Support", true, true, "1234", "pw", "Q1", nil, nil, nil, string(hash)))

		w := performJSON(t, h.VerifyAgent, "GET", "/agentverify?username=ada&password=s3cret", nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "success", body["message"])
		assert.Len(t, body["data"], 1)

		claims, err := tokens.Validate(body["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, "ada", claims.Username)
	})

	t.Run("missing password", func(t *testing.T) {
		h, _ := newAgentHandler(t, nil)
		w := performJSON(t, h.VerifyAgent, "GET", "/agentverify?username=ada", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing password", decodeBody(t, w)["message"])
	})

	t.Run("unknown user", func(t *testing.T) {
		h, mock := newAgentHandler(t, nil)
		mock.ExpectQuery("FROM agent_data").WillReturnRows(sqlmock.NewRows(columns))
		w := performJSON(t, h.VerifyAgent, "GET", "/agentverify?username=bob&password=x", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Login failed", decodeBody(t, w)["message"])
	})

	t.Run("store failure", func(t *testing.T) {
		h, mock := newAgentHandler(t, nil)
		mock.ExpectQuery("FROM agent_data").WillReturnError(errors.New("broken pipe"))
		w := performJSON(t, h.VerifyAgent, "GET", "/agentverify?username=bob&password=x", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "mysql error", decodeBody(t, w)["message"])
	})
}

func TestAgentHandler_UpdateProfile(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(body map[string]any)
		mockFunc    func(mock sqlmock.Sqlmock)
		wantStatus  int
		wantMessage string
	}{
		{
			name: "success",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions").
					WithArgs("1234").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
				mock.ExpectExec("UPDATE agent_data").WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantStatus:  http.StatusOK,
			wantMessage: "Success!",
		},
		{
			name: "no such agent",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions").
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectExec("UPDATE agent_data").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantStatus:  http.StatusOK,
			wantMessage: "Failed!",
		},
		{
			name: "lookup failure never updates",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions").
					WillReturnError(errors.New("too many connections"))
			},
			wantStatus:  http.StatusOK,
			wantMessage: "Extension lookup error",
		},
		{
			name:        "missing field",
			mutate:      func(body map[string]any) { delete(body, "organization") },
			mockFunc:    func(mock sqlmock.Sqlmock) {},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Missing required field(s)",
		},
		{
			name:        "unparseable extension",
			mutate:      func(body map[string]any) { body["extension"] = "12-34" },
			mockFunc:    func(mock sqlmock.Sqlmock) {},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid extension",
		},
		{
			name: "update failure",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
				mock.ExpectExec("UPDATE agent_data").WillReturnError(errors.New("deadlock"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "MySQL error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newAgentHandler(t, nil)
			tt.mockFunc(mock)

			body := profileBody()
			if tt.mutate != nil {
				tt.mutate(body)
			}
			w := performJSON(t, h.UpdateProfile, "POST", "/updateProfile", body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decodeBody(t, w)["message"])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAgentHandler_AddAgents(t *testing.T) {
	h, mock := newAgentHandler(t, nil)

	mock.ExpectQuery("SELECT id FROM asterisk_extensions").
		WithArgs("1001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT id FROM asterisk_extensions").
		WithArgs("1002").
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectQuery("SELECT id FROM asterisk_extensions").
		WithArgs("1003").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery("INSERT INTO agent_data").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("a1").AddRow("a3"))

	record := func(username, extension string) map[string]any {
		return map[string]any{"username": username, "password": "pw", "extension": extension}
	}
	w := performJSON(t, h.AddAgents, "POST", "/addAgents", map[string]any{
		"data": []any{record("a1", "1001"), record("a2", "1002"), record("a3", "1003")},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Extension lookup errors: a2.", body["message"])
	assert.Equal(t, float64(2), body["created"])
	assert.Equal(t, float64(1), body["lookup_errors"])
	assert.Equal(t, float64(0), body["write_errors"])
	assert.NoError(t, mock.ExpectationsWereMet())

	t.Run("empty payload", func(t *testing.T) {
		h, _ := newAgentHandler(t, nil)
		w := performJSON(t, h.AddAgents, "POST", "/addAgents", map[string]any{"data": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAgentHandler_Reads(t *testing.T) {
	t.Run("all agents empty", func(t *testing.T) {
		h, mock := newAgentHandler(t, nil)
		mock.ExpectQuery("ORDER BY ad.agent_id").WillReturnRows(sqlmock.NewRows(agentColumns))

		r := gin.New()
		r.GET("/getallagentrecs", h.GetAllAgents)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/getallagentrecs", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("agent by username not found", func(t *testing.T) {
		h, mock := newAgentHandler(t, nil)
		mock.ExpectQuery("WHERE ad.username = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(agentColumns))

		r := gin.New()
		r.GET("/getagentrec/:username", h.GetAgent)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/getagentrec/ghost", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"message": "no agent records", "data": ""}, decodeBody(t, w))
	})

	t.Run("welcome", func(t *testing.T) {
		h, _ := newAgentHandler(t, nil)
		w := performJSON(t, h.Welcome, "GET", "/", nil)
		assert.Equal(t, "Welcome to the agent portal.", decodeBody(t, w)["message"])
	})
}

func TestAgentHandler_DeleteAndLayout(t *testing.T) {
	h, mock := newAgentHandler(t, nil)

	mock.ExpectExec("DELETE FROM agent_data").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	w := performJSON(t, h.DeleteAgent, "POST", "/DeleteAgent", map[string]any{"agent_id": 7})
	assert.Equal(t, "Success!", decodeBody(t, w)["message"])

	w = performJSON(t, h.DeleteAgent, "POST", "/DeleteAgent", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mock.ExpectExec("UPDATE agent_data SET layout").
		WithArgs(`{"panels":[1,2]}`, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	w = performJSON(t, h.UpdateLayout, "POST", "/updateLayoutConfig", `{"agent_id":7,"layout":{"panels":[1,2]}}`)
	assert.Equal(t, "Failed!", decodeBody(t, w)["message"])

	w = performJSON(t, h.UpdateLayout, "POST", "/updateLayoutConfig", `{"agent_id":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing Parameters", decodeBody(t, w)["message"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddleware(t *testing.T) {
	tokens := services.NewTokenService("test-secret", time.Hour)
	token, err := tokens.Issue(db.Agent{AgentID: 9, Username: "ada", Role: "AD Agent"})
	require.NoError(t, err)

	newRouter := func(tokens *services.TokenService) *gin.Engine {
		r := gin.New()
		r.Use(NewAuthMiddleware(tokens, zap.NewNop()).RequireAgent())
		r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("username")) })
		return r
	}

	tests := []struct {
		name       string
		tokens     *services.TokenService
		header     string
		wantStatus int
	}{
		{name: "valid token", tokens: tokens, header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "missing header", tokens: tokens, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", tokens: tokens, header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "auth disabled", tokens: nil, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			newRouter(tt.tokens).ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
