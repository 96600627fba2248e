package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	serverapix "github.com/relaylabs/relay/pkg/serverapi"
)

func TestAPISourceMapsDescriptors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"services":[
			{"id":1,"name":"Stripe","type":"payment"},
			{"id":2,"name":"Twilio","type":"communication"}
		]}}`))
	}))
	t.Cleanup(srv.Close)

	client := serverapix.MustNew(serverapix.Config{Host: srv.URL, RetryAttempts: 1})
	source := NewAPISource(client)

	descriptors, err := source.UserCapabilities(context.Background(), 7)
	if err != nil {
		t.Fatalf("UserCapabilities: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("descriptors = %d, want 2", len(descriptors))
	}
	if descriptors[0].Category != "payment" {
		t.Fatalf("category = %q, want payment (mapped from type)", descriptors[0].Category)
	}
	if descriptors[1].ID != 2 || descriptors[1].Name != "Twilio" {
		t.Fatalf("descriptors[1] = %+v", descriptors[1])
	}
}

func TestAPISourcePropagatesErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := serverapix.MustNew(serverapix.Config{Host: srv.URL, RetryAttempts: 1})
	source := NewAPISource(client)

	if _, err := source.UserCapabilities(context.Background(), 7); err == nil {
		t.Fatal("server failure swallowed")
	}
}

func TestAPISinkSendsMessage(t *testing.T) {
	t.Parallel()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"status":"success","data":{}}`))
	}))
	t.Cleanup(srv.Close)

	client := serverapix.MustNew(serverapix.Config{Host: srv.URL, RetryAttempts: 1})
	sink := NewAPISink(client)

	if err := sink.SendMessage(context.Background(), 9, "done"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if path != "/chat/send" {
		t.Fatalf("path = %q", path)
	}
}
