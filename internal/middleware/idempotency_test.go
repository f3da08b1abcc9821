package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbus/ledgerbus/internal/logging"
)

func setupIdempotentApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	calls := 0
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/deposits", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"calls": calls})
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		calls++
		return fiber.ErrInternalServerError
	})

	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(body)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := setupIdempotentApp(t)

	status, body := post(t, app, "/deposits", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("first request status %d", status)
	}

	status2, body2 := post(t, app, "/deposits", "abc123")
	if status2 != fiber.StatusCreated {
		t.Fatalf("replay status %d", status2)
	}
	if body2 != body {
		t.Fatalf("replay body %q differs from original %q", body2, body)
	}
	if *calls != 1 {
		t.Fatalf("handler invoked %d times, want 1", *calls)
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	app, calls := setupIdempotentApp(t)

	for i := 0; i < 3; i++ {
		if status, _ := post(t, app, "/deposits", ""); status != fiber.StatusCreated {
			t.Fatalf("request %d status %d", i, status)
		}
	}
	if *calls != 3 {
		t.Fatalf("handler invoked %d times, want 3", *calls)
	}
}

func TestIdempotencyDistinctKeysAreIndependent(t *testing.T) {
	app, calls := setupIdempotentApp(t)

	post(t, app, "/deposits", "key-1")
	post(t, app, "/deposits", "key-2")
	if *calls != 2 {
		t.Fatalf("handler invoked %d times, want 2", *calls)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	app, calls := setupIdempotentApp(t)

	if status, _ := post(t, app, "/broken", "retry-me"); status != fiber.StatusInternalServerError {
		t.Fatalf("first status %d", status)
	}
	if status, _ := post(t, app, "/broken", "retry-me"); status != fiber.StatusInternalServerError {
		t.Fatalf("retry status %d", status)
	}
	if *calls != 2 {
		t.Fatalf("server error was replayed, handler invoked %d times", *calls)
	}
}
