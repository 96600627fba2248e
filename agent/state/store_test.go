package state

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/relaylabs/relay/agent/contract"
)

func newTestStore(t *testing.T, handler http.HandlerFunc, opts ...StoreOption) *RedisStore {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := NewRedisStore(RedisConfig{URL: srv.URL, Token: "test-token"}, opts...)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return store
}

func TestNewRedisStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisStore(RedisConfig{Token: "t"}); err == nil {
		t.Fatal("missing url accepted")
	}
	if _, err := NewRedisStore(RedisConfig{URL: "https://example.com"}); err == nil {
		t.Fatal("missing token accepted")
	}
	if _, err := NewRedisStore(RedisConfig{URL: "https://example.com", Token: "t"}, WithTTL(-time.Second)); err == nil {
		t.Fatal("negative ttl accepted")
	}
}

func TestSaveSendsSetWithTTL(t *testing.T) {
	t.Parallel()

	var captured []any
	var auth string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode command: %v", err)
		}
		w.Write([]byte(`{"result":"OK"}`))
	}, WithTTL(time.Hour))

	rec := &TenantRecord{
		UserID: 7,
		History: []contractx.ConversationEntry{
			{Command: "help", Response: "..."},
		},
	}
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if auth != "Bearer test-token" {
		t.Fatalf("authorization = %q", auth)
	}
	if len(captured) != 5 || captured[0] != "SET" {
		t.Fatalf("command = %v", captured)
	}
	if captured[1] != "relay:tenant:7" {
		t.Fatalf("key = %v", captured[1])
	}
	if captured[3] != "EX" || captured[4] != float64(3600) {
		t.Fatalf("ttl args = %v", captured[3:])
	}
	if rec.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}
}

func TestSaveNilRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilRecord) {
		t.Fatalf("err = %v, want ErrNilRecord", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	t.Parallel()

	rec := TenantRecord{
		UserID:    7,
		History:   []contractx.ConversationEntry{{Command: "status"}},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	payload, _ := json.Marshal(rec)

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		// Upstash returns the stored value as a JSON string result.
		resp, _ := json.Marshal(map[string]string{"result": string(payload)})
		w.Write(resp)
	})

	got, err := store.Load(context.Background(), 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.UserID != 7 || len(got.History) != 1 || got.History[0].Command != "status" {
		t.Fatalf("loaded record = %+v", got)
	}
}

func TestLoadMissingRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":null}`))
	})

	if _, err := store.Load(context.Background(), 7); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestLoadInvalidUserID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	if _, err := store.Load(context.Background(), 0); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("err = %v, want ErrInvalidUserID", err)
	}
}

func TestExecSurfacesRESTError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"WRONGPASS invalid token"}`))
	})

	err := store.Delete(context.Background(), 7)
	if err == nil || err.Error() != "WRONGPASS invalid token" {
		t.Fatalf("err = %v", err)
	}
}

func TestExecRejectsHTTPFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if err := store.Delete(context.Background(), 7); err == nil {
		t.Fatal("http 500 not surfaced")
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds = %d, want 2", got)
	}
	if got := ttlSeconds(time.Millisecond); got != 1 {
		t.Fatalf("sub-second ttl = %d, want 1", got)
	}
}

func TestKeyPrefixOption(t *testing.T) {
	t.Parallel()

	var key any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		var cmd []any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &cmd)
		if len(cmd) > 1 {
			key = cmd[1]
		}
		w.Write([]byte(`{"result":1}`))
	}, WithKeyPrefix("custom:"))

	if err := store.Delete(context.Background(), 9); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if key != "custom:9" {
		t.Fatalf("key = %v, want custom:9", key)
	}
}
