package web

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/store"
)

func setupTestApp(t *testing.T) (*fiber.App, *calculator.App) {
	t.Helper()
	calc := calculator.New(store.New())
	h := New(calc)
	app := fiber.New()
	h.Register(app)
	return app, calc
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func postForm(t *testing.T, app *fiber.App, form url.Values) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/ui/evaluate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui")
	require.Equal(t, 200, code, html)
	assert.Contains(t, html, "Dashboard")
	assert.Contains(t, html, "No users yet")
	assert.Contains(t, html, "types of queries")
}

func TestDashboardWithData(t *testing.T) {
	app, calc := setupTestApp(t)

	_, err := calc.Execute(context.Background(), "2*3+1", "42")
	require.NoError(t, err)

	code, html := get(t, app, "/ui")
	require.Equal(t, 200, code)
	assert.Contains(t, html, `href="/ui/users/42"`)
	assert.Contains(t, html, "2 * 3 + 1", "expected last expression")
}

func TestUserDetail(t *testing.T) {
	app, calc := setupTestApp(t)
	ctx := context.Background()

	calc.Execute(ctx, "10-2-3-4", "7")
	calc.Execute(ctx, "1/0", "7")

	code, html := get(t, app, "/ui/users/7")
	require.Equal(t, 200, code, html)
	assert.Contains(t, html, "User 7")
	assert.Contains(t, html, "1.0", "expected formatted result")
	assert.Contains(t, html, "divide by zero", "expected failed record error")
	assert.Less(t, strings.Index(html, "1 / 0"), strings.Index(html, "10 - 2 - 3 - 4"), "expected newest record first")
}

func TestUserDetailNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui/users/999")
	require.Equal(t, 404, code)
	assert.Contains(t, html, "User &#39;999&#39; not found")
}

func TestEvaluateForm(t *testing.T) {
	app, calc := setupTestApp(t)

	code, loc, _ := postForm(t, app, url.Values{"expression": {"(1+2)*3"}, "user_id": {"5"}})
	require.Equal(t, 302, code)
	assert.Equal(t, "/ui/users/5", loc)

	op, err := calc.MostUsedOperator(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "+", op)
}

func TestEvaluateFormRejected(t *testing.T) {
	app, _ := setupTestApp(t)

	code, _, body := postForm(t, app, url.Values{"expression": {"2++2"}, "user_id": {"5"}})
	require.Equal(t, 400, code)
	assert.Contains(t, body, "operator followed by operator")
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "ab", truncate("ab", 3))
}
