package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"expensetracker/internal/config"
	"expensetracker/internal/mailer"
	"expensetracker/internal/services"
	"expensetracker/internal/testutil"
	"expensetracker/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
	config.Set(&config.Config{
		Env:        "test",
		JWTSecret:  "router-test-secret",
		SessionTTL: time.Hour,
	})
}

type outbox struct {
	mu   sync.Mutex
	jobs []mailer.Job
}

func (o *outbox) Send(_ context.Context, job mailer.Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.jobs = append(o.jobs, job)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.jobs)
}

func (o *outbox) last() mailer.Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.jobs[len(o.jobs)-1]
}

// apiClient is a cookie-keeping browser stand-in.
type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T) (*apiClient, *outbox) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mail := &outbox{}

	r := New(Deps{
		Users:      services.NewUserService(db),
		Sessions:   services.NewSessionService(db, time.Hour),
		Categories: services.NewCategoryService(db),
		Expenses:   services.NewExpenseService(db),
		Audit:      services.NewAuditService(db),
		Mailer:     mail,
		AppURL:     "http://app.test",
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		testutil.TeardownTestDB(t, db)
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &apiClient{t: t, base: srv.URL + "/api", http: &http.Client{Jar: jar}}, mail
}

func (c *apiClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			c.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode, out
}

func (c *apiClient) mustStatus(want int, method, path string, body interface{}) map[string]interface{} {
	c.t.Helper()
	got, out := c.do(method, path, body)
	if got != want {
		c.t.Fatalf("%s %s: expected %d, got %d: %v", method, path, want, got, out)
	}
	return out
}

func signup(c *apiClient, email, password string) {
	c.t.Helper()
	c.mustStatus(http.StatusCreated, "POST", "/users", map[string]interface{}{
		"user": map[string]string{
			"email_address":         email,
			"password":              password,
			"password_confirmation": password,
		},
	})
}

func idOf(obj map[string]interface{}, key string) uint {
	return uint(obj[key].(map[string]interface{})["id"].(float64))
}

func categoryNamed(c *apiClient, name string) map[string]interface{} {
	c.t.Helper()
	list := c.mustStatus(http.StatusOK, "GET", "/categories", nil)["categories"].([]interface{})
	for _, item := range list {
		cat := item.(map[string]interface{})
		if cat["name"] == name {
			return cat
		}
	}
	c.t.Fatalf("category %q not found", name)
	return nil
}

func TestHealth(t *testing.T) {
	c, _ := newTestServer(t)
	out := c.mustStatus(http.StatusOK, "GET", "/health", nil)
	if out["status"] != "ok" {
		t.Errorf("unexpected health body: %v", out)
	}
}

func TestSessionLifecycle(t *testing.T) {
	c, mail := newTestServer(t)

	c.mustStatus(http.StatusUnauthorized, "GET", "/session", nil)

	signup(c, "  Owner@Example.com ", "password123")
	if job := mail.last(); job.Kind != mailer.KindWelcome || job.To != "owner@example.com" {
		t.Errorf("unexpected welcome job: %+v", job)
	}

	me := c.mustStatus(http.StatusOK, "GET", "/session", nil)
	if me["user"].(map[string]interface{})["email_address"] != "owner@example.com" {
		t.Errorf("expected normalized email, got %v", me)
	}

	c.mustStatus(http.StatusNoContent, "DELETE", "/session", nil)
	c.mustStatus(http.StatusUnauthorized, "GET", "/session", nil)

	c.mustStatus(http.StatusUnauthorized, "POST", "/session",
		map[string]string{"email_address": "owner@example.com", "password": "wrong-password"})
	c.mustStatus(http.StatusOK, "POST", "/session",
		map[string]string{"email_address": "owner@example.com", "password": "password123"})
	c.mustStatus(http.StatusOK, "GET", "/session", nil)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	c, _ := newTestServer(t)
	signup(c, "dup@example.com", "password123")

	status, out := c.do("POST", "/users", map[string]interface{}{
		"user": map[string]string{
			"email_address":         "DUP@example.com",
			"password":              "password123",
			"password_confirmation": "password123",
		},
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %v", status, out)
	}
	fields := out["error"].(map[string]interface{})["fields"].(map[string]interface{})
	if fields["email_address"] == nil {
		t.Errorf("expected email_address error, got %v", fields)
	}
}

func TestLoginLockout(t *testing.T) {
	c, _ := newTestServer(t)
	signup(c, "locked@example.com", "password123")
	c.mustStatus(http.StatusNoContent, "DELETE", "/session", nil)

	wrong := map[string]string{"email_address": "locked@example.com", "password": "nope-nope"}
	for i := 0; i < 4; i++ {
		c.mustStatus(http.StatusUnauthorized, "POST", "/session", wrong)
	}
	c.mustStatus(http.StatusLocked, "POST", "/session", wrong)
	c.mustStatus(http.StatusLocked, "POST", "/session",
		map[string]string{"email_address": "locked@example.com", "password": "password123"})
}

func TestPasswordReset(t *testing.T) {
	c, mail := newTestServer(t)
	signup(c, "forgetful@example.com", "password123")

	c.mustStatus(http.StatusOK, "POST", "/passwords", map[string]string{"email_address": "nobody@example.com"})
	if n := mail.count(); n != 1 {
		t.Fatalf("expected only the welcome job, got %d", n)
	}

	c.mustStatus(http.StatusOK, "POST", "/passwords", map[string]string{"email_address": "forgetful@example.com"})
	job := mail.last()
	if job.Kind != mailer.KindPasswordReset {
		t.Fatalf("expected reset job, got %+v", job)
	}
	link, err := url.Parse(job.Link)
	if err != nil {
		t.Fatalf("bad link: %v", err)
	}
	token := link.Query().Get("token")

	reset := map[string]string{"token": token, "password": "brand-new-pass", "password_confirmation": "brand-new-pass"}
	c.mustStatus(http.StatusOK, "POST", "/passwords/reset", reset)

	// Sessions are dropped and the token cannot be replayed.
	c.mustStatus(http.StatusUnauthorized, "GET", "/session", nil)
	c.mustStatus(http.StatusBadRequest, "POST", "/passwords/reset", reset)

	c.mustStatus(http.StatusUnauthorized, "POST", "/session",
		map[string]string{"email_address": "forgetful@example.com", "password": "password123"})
	c.mustStatus(http.StatusOK, "POST", "/session",
		map[string]string{"email_address": "forgetful@example.com", "password": "brand-new-pass"})
}

func TestCategoryHierarchy(t *testing.T) {
	c, _ := newTestServer(t)
	signup(c, "tree@example.com", "password123")

	list := c.mustStatus(http.StatusOK, "GET", "/categories", nil)["categories"].([]interface{})
	if len(list) != 13 {
		t.Fatalf("expected 13 seeded categories, got %d", len(list))
	}

	t.Run("sibling names are unique", func(t *testing.T) {
		grocery := categoryNamed(c, "Grocery")
		status, out := c.do("POST", "/categories", map[string]interface{}{"name": "Aldi", "parent_id": grocery["id"]})
		if status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %v", status, out)
		}

		// Same name under another parent is fine.
		utilities := categoryNamed(c, "Utilities")
		c.mustStatus(http.StatusCreated, "POST", "/categories", map[string]interface{}{"name": "Aldi", "parent_id": utilities["id"]})
	})

	t.Run("moving a category under its descendant fails", func(t *testing.T) {
		grocery := categoryNamed(c, "Grocery")
		var aldiID float64
		for _, item := range c.mustStatus(http.StatusOK, "GET", "/categories", nil)["categories"].([]interface{}) {
			cat := item.(map[string]interface{})
			if cat["name"] == "Aldi" && cat["parent_id"] == grocery["id"] {
				aldiID = cat["id"].(float64)
			}
		}

		path := fmt.Sprintf("/categories/%d", uint(grocery["id"].(float64)))
		status, out := c.do("PATCH", path, map[string]interface{}{"parent_id": aldiID})
		if status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %v", status, out)
		}
		after := c.mustStatus(http.StatusOK, "GET", path, nil)
		if after["category"].(map[string]interface{})["parent_id"] != nil {
			t.Errorf("expected Grocery to stay a root, got %v", after)
		}
	})

	t.Run("detail includes ancestors nearest first", func(t *testing.T) {
		tap := categoryNamed(c, "Tap")
		out := c.mustStatus(http.StatusOK, "GET", fmt.Sprintf("/categories/%d", uint(tap["id"].(float64))), nil)
		ancestors := out["ancestors"].([]interface{})
		if len(ancestors) != 2 {
			t.Fatalf("expected 2 ancestors, got %d", len(ancestors))
		}
		if ancestors[0].(map[string]interface{})["name"] != "Water" || ancestors[1].(map[string]interface{})["name"] != "Utilities" {
			t.Errorf("unexpected ancestors: %v", ancestors)
		}
	})

	t.Run("reorder changes sibling order", func(t *testing.T) {
		water := categoryNamed(c, "Water")
		tree := c.mustStatus(http.StatusOK, "GET", "/categories/tree", nil)["categories"].([]interface{})
		var kids []interface{}
		for _, root := range tree {
			for _, child := range root.(map[string]interface{})["children"].([]interface{}) {
				if child.(map[string]interface{})["id"] == water["id"] {
					kids = child.(map[string]interface{})["children"].([]interface{})
				}
			}
		}
		if len(kids) != 3 {
			t.Fatalf("expected 3 children under Water, got %d", len(kids))
		}
		ids := []interface{}{
			kids[2].(map[string]interface{})["id"],
			kids[0].(map[string]interface{})["id"],
			kids[1].(map[string]interface{})["id"],
		}
		c.mustStatus(http.StatusOK, "POST", "/categories/update_position", map[string]interface{}{
			"categories": map[string]interface{}{"ids": ids, "positions": []int{0, 1, 2}},
		})

		options := c.mustStatus(http.StatusOK, "GET", "/categories/options", nil)["options"].([]interface{})
		var labels []string
		for _, o := range options {
			labels = append(labels, o.(map[string]interface{})["label"].(string))
		}
		var under []string
		for _, l := range labels {
			if l == "  —  — Jar" || l == "  —  — Tap" || l == "  —  — Bottled" {
				under = append(under, l)
			}
		}
		if len(under) != 3 || under[0] != "  —  — Jar" || under[1] != "  —  — Tap" || under[2] != "  —  — Bottled" {
			t.Errorf("expected Jar, Tap, Bottled order, got %v", under)
		}
	})

	t.Run("delete cascades to descendants and expenses", func(t *testing.T) {
		utilities := categoryNamed(c, "Utilities")
		tap := categoryNamed(c, "Tap")
		exp := c.mustStatus(http.StatusCreated, "POST", "/expenses", map[string]interface{}{
			"amount": 300, "category_id": tap["id"], "date": "2025-01-10",
		})
		expenseID := idOf(exp, "expense")

		c.mustStatus(http.StatusNoContent, "DELETE", fmt.Sprintf("/categories/%d", uint(utilities["id"].(float64))), nil)

		c.mustStatus(http.StatusNotFound, "GET", fmt.Sprintf("/categories/%d", uint(tap["id"].(float64))), nil)
		c.mustStatus(http.StatusNotFound, "GET", fmt.Sprintf("/expenses/%d", expenseID), nil)
	})
}

func TestExpenses(t *testing.T) {
	c, _ := newTestServer(t)
	signup(c, "spender@example.com", "password123")

	grocery := categoryNamed(c, "Grocery")
	aldi := categoryNamed(c, "Aldi")
	tap := categoryNamed(c, "Tap")

	create := func(amount float64, categoryID interface{}, date string) uint {
		out := c.mustStatus(http.StatusCreated, "POST", "/expenses", map[string]interface{}{
			"amount": amount, "category_id": categoryID, "date": date, "description": "x",
		})
		return idOf(out, "expense")
	}
	jan := create(100, aldi["id"], "2025-01-15")
	feb := create(200, grocery["id"], "2025-02-01")
	create(300, tap["id"], "2025-01-20")

	t.Run("validation is field keyed", func(t *testing.T) {
		status, out := c.do("POST", "/expenses", map[string]interface{}{"description": "x"})
		if status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", status)
		}
		fields := out["error"].(map[string]interface{})["fields"].(map[string]interface{})
		for _, f := range []string{"amount", "category_id", "date"} {
			if fields[f] == nil {
				t.Errorf("expected error on %s, got %v", f, fields)
			}
		}
	})

	t.Run("list filters by date and subtree", func(t *testing.T) {
		all := c.mustStatus(http.StatusOK, "GET", "/expenses", nil)["expenses"].([]interface{})
		if len(all) != 3 {
			t.Fatalf("expected 3 expenses, got %d", len(all))
		}
		if uint(all[0].(map[string]interface{})["id"].(float64)) != feb {
			t.Errorf("expected newest first")
		}

		path := fmt.Sprintf("/expenses?start_date=2025-01-01&end_date=2025-01-31&category_id=%d", uint(grocery["id"].(float64)))
		filtered := c.mustStatus(http.StatusOK, "GET", path, nil)["expenses"].([]interface{})
		if len(filtered) != 1 || uint(filtered[0].(map[string]interface{})["id"].(float64)) != jan {
			t.Errorf("expected only the January Aldi expense, got %v", filtered)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		path := fmt.Sprintf("/expenses/%d", jan)
		out := c.mustStatus(http.StatusOK, "PATCH", path, map[string]interface{}{"amount": 150})
		if out["expense"].(map[string]interface{})["amount"].(float64) != 150 {
			t.Errorf("expected amount 150, got %v", out)
		}
		c.mustStatus(http.StatusNoContent, "DELETE", path, nil)
		c.mustStatus(http.StatusNotFound, "GET", path, nil)
	})

	t.Run("fractional and negative amounts", func(t *testing.T) {
		for _, amount := range []float64{12.5, -20, 0} {
			id := create(amount, grocery["id"], "2025-03-01")
			path := fmt.Sprintf("/expenses/%d", id)
			got := c.mustStatus(http.StatusOK, "GET", path, nil)["expense"].(map[string]interface{})
			if got["amount"].(float64) != amount {
				t.Errorf("expected amount %v, got %v", amount, got["amount"])
			}
			c.mustStatus(http.StatusNoContent, "DELETE", path, nil)
		}
	})

	t.Run("other users cannot see expenses", func(t *testing.T) {
		// A second account on the same server.
		c.mustStatus(http.StatusNoContent, "DELETE", "/session", nil)
		signup(c, "intruder@example.com", "password123")
		c.mustStatus(http.StatusNotFound, "GET", fmt.Sprintf("/expenses/%d", feb), nil)
		list := c.mustStatus(http.StatusOK, "GET", "/expenses", nil)["expenses"].([]interface{})
		if len(list) != 0 {
			t.Errorf("expected no expenses, got %d", len(list))
		}
	})
}
