package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/errbus"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]error) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	bus := errbus.New()
	var seen []error
	bus.Subscribe(func(err error) { seen = append(seen, err) })

	c, err := New(server.URL, nil, bus)
	require.NoError(t, err)
	return c, &seen
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func apiError(code, message string, fields map[string][]string) map[string]interface{} {
	detail := map[string]interface{}{"code": code, "message": message}
	if fields != nil {
		detail["fields"] = fields
	}
	return map[string]interface{}{"error": detail}
}

func TestLogin_KeepsSessionCookie(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/session":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "me@example.com", body["email_address"])
			http.SetCookie(w, &http.Cookie{Name: "et_session", Value: "tok", Path: "/", HttpOnly: true})
			writeJSON(w, http.StatusOK, map[string]interface{}{"user": map[string]interface{}{"id": 4, "email_address": "me@example.com"}})
		case "GET /api/session":
			cookie, err := r.Cookie("et_session")
			if err != nil || cookie.Value != "tok" {
				writeJSON(w, http.StatusUnauthorized, apiError("UNAUTHORIZED", "Authentication required", nil))
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"user": map[string]interface{}{"id": 4, "email_address": "me@example.com"}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	user, err := c.Login(ctx, "me@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, uint(4), user.ID)

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", me.EmailAddress)
	assert.Empty(t, *seen)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
		call   func(c *Client) error
		check  func(t *testing.T, err error)
		local  bool
	}{
		{
			name:   "422 is a validation error with fields",
			status: http.StatusUnprocessableEntity,
			body:   apiError("VALIDATION_FAILED", "name has already been taken", map[string][]string{"name": {"has already been taken"}}),
			call: func(c *Client) error {
				_, err := c.CreateCategory(context.Background(), CreateCategoryInput{Name: "Aldi"})
				return err
			},
			check: func(t *testing.T, err error) {
				var v *ValidationError
				require.ErrorAs(t, err, &v)
				assert.Equal(t, []string{"has already been taken"}, v.Fields["name"])
				assert.Contains(t, v.Error(), "name has already been taken")
			},
			local: true,
		},
		{
			name:   "404 is a not-found error",
			status: http.StatusNotFound,
			body:   apiError("CATEGORY_NOT_FOUND", "Could not find requested category", nil),
			call: func(c *Client) error {
				_, err := c.GetCategory(context.Background(), 9)
				return err
			},
			check: func(t *testing.T, err error) {
				var nf *NotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, "CATEGORY_NOT_FOUND", nf.Code)
			},
			local: true,
		},
		{
			name:   "401 anywhere is an auth error",
			status: http.StatusUnauthorized,
			body:   apiError("SESSION_EXPIRED", "Your session has expired", nil),
			call: func(c *Client) error {
				_, err := c.ListExpenses(context.Background(), ExpenseFilter{})
				return err
			},
			check: func(t *testing.T, err error) {
				var a *AuthError
				require.ErrorAs(t, err, &a)
				assert.Equal(t, "SESSION_EXPIRED", a.Code)
			},
		},
		{
			name:   "423 on login is a locked auth error",
			status: http.StatusLocked,
			body:   apiError("ACCOUNT_LOCKED", "Account is temporarily locked", nil),
			call: func(c *Client) error {
				_, err := c.Login(context.Background(), "a@example.com", "x")
				return err
			},
			check: func(t *testing.T, err error) {
				var a *AuthError
				require.ErrorAs(t, err, &a)
				assert.True(t, a.Locked())
			},
		},
		{
			name:   "400 on password reset is an auth error",
			status: http.StatusBadRequest,
			body:   apiError("INVALID_RESET_TOKEN", "Password reset link is invalid or has expired", nil),
			call: func(c *Client) error {
				return c.ResetPassword(context.Background(), "bad", "password123", "password123")
			},
			check: func(t *testing.T, err error) {
				var a *AuthError
				require.ErrorAs(t, err, &a)
				assert.Equal(t, http.StatusBadRequest, a.Status)
			},
		},
		{
			name:   "400 elsewhere is a validation error",
			status: http.StatusBadRequest,
			body:   apiError("INVALID_INPUT", "Invalid id", nil),
			call: func(c *Client) error {
				return c.DeleteExpense(context.Background(), 1)
			},
			check: func(t *testing.T, err error) {
				var v *ValidationError
				require.ErrorAs(t, err, &v)
				assert.Equal(t, "INVALID_INPUT", v.Code)
			},
			local: true,
		},
		{
			name:   "500 is a network error",
			status: http.StatusInternalServerError,
			body:   apiError("INTERNAL_ERROR", "An internal error occurred", nil),
			call: func(c *Client) error {
				_, err := c.ListCategories(context.Background())
				return err
			},
			check: func(t *testing.T, err error) {
				var n *NetworkError
				require.ErrorAs(t, err, &n)
				assert.Equal(t, http.StatusInternalServerError, n.Status)
			},
		},
		{
			name:   "non-JSON error body is a network error",
			status: http.StatusBadGateway,
			body:   nil,
			call: func(c *Client) error {
				_, err := c.ListCategories(context.Background())
				return err
			},
			check: func(t *testing.T, err error) {
				var n *NetworkError
				require.ErrorAs(t, err, &n)
				assert.Equal(t, http.StatusBadGateway, n.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, seen := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					_, _ = io.WriteString(w, "<html>bad gateway</html>")
					return
				}
				writeJSON(w, tt.status, tt.body)
			})

			err := tt.call(c)
			require.Error(t, err)
			tt.check(t, err)

			if tt.local {
				assert.Empty(t, *seen, "form errors stay with the caller")
				assert.False(t, errbus.Emitted(err))
				return
			}
			require.Len(t, *seen, 1)
			assert.True(t, errbus.Emitted(err))
		})
	}
}

func TestUndecodableSuccessBody(t *testing.T) {
	c, seen := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "{not json")
	})

	_, err := c.ListCategories(context.Background())
	var n *NetworkError
	require.ErrorAs(t, err, &n)
	assert.Len(t, *seen, 1)
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := New(url, &http.Client{Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = c.ListCategories(context.Background())
	var n *NetworkError
	require.ErrorAs(t, err, &n)
	assert.Zero(t, n.Status)
	assert.False(t, errbus.Emitted(err), "nil bus disables broadcasting")
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"categories": []interface{}{}})
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ListCategories(ctx)
	var n *NetworkError
	require.ErrorAs(t, err, &n)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRequestShapes(t *testing.T) {
	type captured struct {
		method, path, query string
		body                map[string]interface{}
	}
	var mu sync.Mutex
	var got captured
	last := func() captured {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen := captured{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		_ = json.NewDecoder(r.Body).Decode(&seen.body)
		mu.Lock()
		got = seen
		mu.Unlock()
		switch {
		case r.URL.Path == "/api/categories/update_position", r.URL.Path == "/api/categories":
			writeJSON(w, http.StatusOK, map[string]interface{}{"categories": []interface{}{}})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"category": map[string]interface{}{"id": 3},
				"expense":  map[string]interface{}{"id": 5},
				"expenses": []interface{}{},
			})
		}
	})
	ctx := context.Background()

	t.Run("reorder nests under categories", func(t *testing.T) {
		_, err := c.ReorderCategories(ctx, ReorderInput{IDs: []uint{3, 1, 2}, Positions: []int{0, 1, 2}})
		require.NoError(t, err)
		got := last()
		assert.Equal(t, "/api/categories/update_position", got.path)
		inner := got.body["categories"].(map[string]interface{})
		assert.Equal(t, []interface{}{3.0, 1.0, 2.0}, inner["ids"])
	})

	t.Run("update category sends only set fields", func(t *testing.T) {
		name := "Renamed"
		_, err := c.UpdateCategory(ctx, 3, UpdateCategoryInput{Name: &name, ClearParent: true})
		require.NoError(t, err)
		got := last()
		assert.Equal(t, http.MethodPatch, got.method)
		assert.Equal(t, "/api/categories/3", got.path)
		assert.Equal(t, map[string]interface{}{"name": "Renamed", "clear_parent": true}, got.body)
	})

	t.Run("list expenses encodes the filter", func(t *testing.T) {
		_, err := c.ListExpenses(ctx, ExpenseFilter{StartDate: "2025-01-01", EndDate: "2025-01-31", CategoryID: 4})
		require.NoError(t, err)
		assert.Equal(t, "category_id=4&end_date=2025-01-31&start_date=2025-01-01", last().query)
	})

	t.Run("delete accepts 204", func(t *testing.T) {
		require.NoError(t, c.DeleteCategory(ctx, 3))
		assert.Equal(t, http.MethodDelete, last().method)
	})
}
