package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vulntracker/pkg/api"
)

// issueRouter монтирует handlers находок от имени userID
func issueRouter(h *IssueHandler, userID string) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/issues", withUser(userID, h.List))
	r.Post("/api/issues", withUser(userID, h.Create))
	r.Get("/api/issues/{id}", withUser(userID, h.Get))
	r.Patch("/api/issues/{id}", withUser(userID, h.Update))
	r.Delete("/api/issues/{id}", withUser(userID, h.Delete))
	return r
}

func createIssue(t *testing.T, h http.Handler, req api.CreateIssueRequest) api.IssueResponse {
	t.Helper()
	resp := serve(h, httptest.NewRequest(http.MethodPost, "/api/issues", jsonBody(t, req)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var issue api.IssueResponse
	decodeBody(t, resp, &issue)
	return issue
}

func TestIssueHandler_Create(t *testing.T) {
	tests := []struct {
		req            api.CreateIssueRequest
		name           string
		expectedStatus int
	}{
		{
			name:           "defaults applied",
			req:            api.CreateIssueRequest{Type: "VULNERABILITY", Title: "SQLi", Description: "login form"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown type",
			req:            api.CreateIssueRequest{Type: "RUMOR", Title: "x", Description: "y"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "blank title",
			req:            api.CreateIssueRequest{Type: "BUG", Title: "   ", Description: "y"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing description",
			req:            api.CreateIssueRequest{Type: "BUG", Title: "x"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown priority",
			req:            api.CreateIssueRequest{Type: "BUG", Title: "x", Description: "y", Priority: "URGENT"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			tokens := env.registerAndLogin(t, "alice@example.com")
			router := issueRouter(env.issues, tokens.UserID)

			resp := serve(router, httptest.NewRequest(http.MethodPost, "/api/issues", jsonBody(t, tt.req)))
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var issue api.IssueResponse
				decodeBody(t, resp, &issue)
				assert.NotEmpty(t, issue.ID)
				assert.Equal(t, tokens.UserID, issue.UserID)
				assert.Equal(t, "MEDIUM", issue.Priority)
				assert.Equal(t, "OPEN", issue.Status)
			}
		})
	}
}

func TestIssueHandler_ListFilter(t *testing.T) {
	env := setupTestEnv(t)
	tokens := env.registerAndLogin(t, "alice@example.com")
	router := issueRouter(env.issues, tokens.UserID)

	createIssue(t, router, api.CreateIssueRequest{Type: "VULNERABILITY", Title: "XSS", Description: "search"})
	createIssue(t, router, api.CreateIssueRequest{Type: "FEATURE_REQUEST", Title: "SSO", Description: "saml"})
	createIssue(t, router, api.CreateIssueRequest{Type: "BUG", Title: "crash", Description: "on save"})

	tests := []struct {
		name          string
		query         string
		expectedCount int
		expectedCode  int
	}{
		{name: "all", query: "", expectedCount: 3, expectedCode: http.StatusOK},
		{name: "exact type", query: "?type=BUG", expectedCount: 1, expectedCode: http.StatusOK},
		{name: "lowercase dashed", query: "?type=feature-request", expectedCount: 1, expectedCode: http.StatusOK},
		{name: "mixed case", query: "?type=Vulnerability", expectedCount: 1, expectedCode: http.StatusOK},
		{name: "no matches", query: "?type=improvement", expectedCount: 0, expectedCode: http.StatusOK},
		{name: "invalid", query: "?type=nonsense", expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/issues"+tt.query, nil))
			require.Equal(t, tt.expectedCode, resp.StatusCode)
			if tt.expectedCode != http.StatusOK {
				return
			}
			var list api.IssueListResponse
			decodeBody(t, resp, &list)
			assert.Equal(t, tt.expectedCount, list.Count)
			assert.Len(t, list.Issues, tt.expectedCount)
		})
	}
}

func TestIssueHandler_Ownership(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.registerAndLogin(t, "alice@example.com")
	bob := env.registerAndLogin(t, "bob@example.com")

	aliceRouter := issueRouter(env.issues, alice.UserID)
	bobRouter := issueRouter(env.issues, bob.UserID)

	issue := createIssue(t, aliceRouter, api.CreateIssueRequest{Type: "BUG", Title: "t", Description: "d"})

	notFound := func(resp *http.Response) {
		t.Helper()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var body api.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "issue not found", body.Message)
	}

	// Чужая находка выглядит как отсутствующая
	notFound(serve(bobRouter, httptest.NewRequest(http.MethodGet, "/api/issues/"+issue.ID, nil)))
	notFound(serve(bobRouter, httptest.NewRequest(http.MethodPatch, "/api/issues/"+issue.ID,
		jsonBody(t, api.UpdateIssueRequest{Title: strPtr("hijack")}))))
	notFound(serve(bobRouter, httptest.NewRequest(http.MethodDelete, "/api/issues/"+issue.ID, nil)))
	notFound(serve(aliceRouter, httptest.NewRequest(http.MethodGet, "/api/issues/missing-id", nil)))

	// Список bob пуст
	resp := serve(bobRouter, httptest.NewRequest(http.MethodGet, "/api/issues", nil))
	var list api.IssueListResponse
	decodeBody(t, resp, &list)
	assert.Equal(t, 0, list.Count)

	// Находка alice не изменилась
	resp = serve(aliceRouter, httptest.NewRequest(http.MethodGet, "/api/issues/"+issue.ID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got api.IssueResponse
	decodeBody(t, resp, &got)
	assert.Equal(t, "t", got.Title)
}

func TestIssueHandler_UpdateAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	tokens := env.registerAndLogin(t, "alice@example.com")
	router := issueRouter(env.issues, tokens.UserID)

	issue := createIssue(t, router, api.CreateIssueRequest{Type: "BUG", Title: "t", Description: "d"})

	update := api.UpdateIssueRequest{
		Title:    strPtr("renamed"),
		Priority: strPtr("CRITICAL"),
		Status:   strPtr("IN_PROGRESS"),
	}
	resp := serve(router, httptest.NewRequest(http.MethodPatch, "/api/issues/"+issue.ID, jsonBody(t, update)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated api.IssueResponse
	decodeBody(t, resp, &updated)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "d", updated.Description)
	assert.Equal(t, "CRITICAL", updated.Priority)
	assert.Equal(t, "IN_PROGRESS", updated.Status)
	assert.Equal(t, "BUG", updated.Type)

	resp = serve(router, httptest.NewRequest(http.MethodPatch, "/api/issues/"+issue.ID,
		jsonBody(t, api.UpdateIssueRequest{Status: strPtr("DONE")})))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = serve(router, httptest.NewRequest(http.MethodDelete, "/api/issues/"+issue.ID, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/issues/"+issue.ID, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
