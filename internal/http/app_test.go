package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"stockroom/internal/config"
	"stockroom/internal/domain"
	"stockroom/internal/http/handlers"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

// 1x1 transparent PNG
var pngBytes, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")

type testEnv struct {
	app  *fiber.App
	deps *handlers.Deps
	cfg  config.Config
}

func seedChair() []domain.Product {
	return []domain.Product{{ID: 1, Name: "Chair", Price: 100000, Stock: 5, Image: "images/chair.png"}}
}

// newTestApp wires the real routes behind the same middlewares as main.
// A nil seed leaves the product file absent.
func newTestApp(t *testing.T, seed []domain.Product) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		ProductsFile: filepath.Join(dir, "products.json"),
		ImagesDir:    filepath.Join(dir, "images"),
		DBDSN:        ":memory:",
		TemplatesDir: "../../web/templates",
		MaxUploadMB:  5,
	}
	if seed != nil {
		if err := repos.NewProductStore(cfg.ProductsFile).Save(seed); err != nil {
			t.Fatalf("seed products: %v", err)
		}
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	deps := handlers.NewDeps(db, cfg)

	app := fiber.New(fiber.Config{Views: handlers.NewViews(cfg.TemplatesDir), BodyLimit: cfg.MaxUploadMB << 20})
	app.Use(requestid.New())
	app.Use(limiter.New(limiter.Config{Max: 100, Expiration: 0}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		ContextKey:     "csrf",
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	handlers.Routes(app, deps)
	return &testEnv{app: app, deps: deps, cfg: cfg}
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

var reKey = regexp.MustCompile(`name="key" value="([^"]+)"`)

// openOrderForm fetches GET /order and returns the csrf token and the
// idempotency key embedded in the form.
func (e *testEnv) openOrderForm(t *testing.T) (csrfTok, key string) {
	t.Helper()
	resp, err := e.app.Test(httptest.NewRequest("GET", "/order", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /order: %d %s", resp.StatusCode, body)
	}
	csrfTok = extractCookie(resp, "csrf_")
	if csrfTok == "" {
		t.Fatal("csrf token missing")
	}
	m := reKey.FindSubmatch(body)
	if m == nil {
		t.Fatalf("idempotency key missing from form: %s", body)
	}
	return csrfTok, string(m[1])
}

func (e *testEnv) postForm(t *testing.T, path, csrfTok string, form url.Values) *http.Response {
	t.Helper()
	form.Set("csrf", csrfTok)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (e *testEnv) stock(t *testing.T, id int) int {
	t.Helper()
	products, err := e.deps.Products.ReadFresh()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range products {
		if p.ID == id {
			return p.Stock
		}
	}
	t.Fatalf("product %d missing", id)
	return 0
}

type logEntry struct {
	Level  string         `json:"level"`
	Kind   string         `json:"kind"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	old := applog.Output()
	applog.SetOutput(&lockedBuf{b: &buf, mu: &mu})
	defer applog.SetOutput(old)

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}
