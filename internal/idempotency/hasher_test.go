package idempotency

import (
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	in := KeyInput{
		Method:   "POST",
		Path:     "/api/envelopes/:id/send",
		TenantID: "tenant-1",
		UserID:   "user-1",
		Query:    map[string]any{"dry_run": "false"},
		Body:     map[string]any{"message": "please sign", "send_to_all": true},
		Scope:    "envelope.send",
	}
	a, err := DeriveKey(in)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey(in)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("same input must hash identically: %s vs %s", a.Key, b.Key)
	}
	if len(a.Key) != 64 {
		t.Fatalf("key should be sha256 hex, got len=%d", len(a.Key))
	}
}

func TestDeriveKeyIgnoresMapInsertionOrder(t *testing.T) {
	bodyA := map[string]any{}
	bodyA["alpha"] = 1
	bodyA["beta"] = 2
	bodyA["gamma"] = 3

	bodyB := map[string]any{}
	bodyB["gamma"] = 3
	bodyB["alpha"] = 1
	bodyB["beta"] = 2

	a, err := DeriveKey(KeyInput{Method: "post", Path: "/x", Body: bodyA})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey(KeyInput{Method: "POST", Path: "/x", Body: bodyB})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("insertion order leaked into the key")
	}
}

func TestDeriveKeyStructAndMapBodiesAgree(t *testing.T) {
	type sendBody struct {
		Message   string `json:"message"`
		SendToAll bool   `json:"send_to_all"`
	}
	a, err := DeriveKey(KeyInput{Method: "POST", Path: "/x", Body: sendBody{Message: "hi", SendToAll: true}})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey(KeyInput{Method: "POST", Path: "/x", Body: map[string]any{"send_to_all": true, "message": "hi"}})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("struct body and equivalent map body must hash identically")
	}
}

func TestDeriveKeyDistinguishesInputs(t *testing.T) {
	base := KeyInput{
		Method:   "POST",
		Path:     "/api/envelopes/:id/send",
		TenantID: "tenant-1",
		UserID:   "user-1",
		Body:     map[string]any{"message": "hi"},
		Scope:    "envelope.send",
	}
	baseKey, err := DeriveKey(base)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}

	variants := []KeyInput{
		{Method: "PUT", Path: base.Path, TenantID: base.TenantID, UserID: base.UserID, Body: base.Body, Scope: base.Scope},
		{Method: base.Method, Path: "/api/envelopes/:id/cancel", TenantID: base.TenantID, UserID: base.UserID, Body: base.Body, Scope: base.Scope},
		{Method: base.Method, Path: base.Path, TenantID: "tenant-2", UserID: base.UserID, Body: base.Body, Scope: base.Scope},
		{Method: base.Method, Path: base.Path, TenantID: base.TenantID, UserID: "user-2", Body: base.Body, Scope: base.Scope},
		{Method: base.Method, Path: base.Path, TenantID: base.TenantID, UserID: base.UserID, Body: map[string]any{"message": "bye"}, Scope: base.Scope},
		{Method: base.Method, Path: base.Path, TenantID: base.TenantID, UserID: base.UserID, Body: base.Body, Scope: "envelope.remind"},
	}
	for i, v := range variants {
		k, err := DeriveKey(v)
		if err != nil {
			t.Fatalf("variant %d: %v", i, err)
		}
		if k.Key == baseKey.Key {
			t.Fatalf("variant %d collided with base key", i)
		}
	}
}

func TestDeriveKeyNilBodyAndQuery(t *testing.T) {
	a, err := DeriveKey(KeyInput{Method: "POST", Path: "/x"})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey(KeyInput{Method: "POST", Path: "/x", Query: nil, Body: nil})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if a.Key != b.Key {
		t.Fatalf("nil body/query must be stable")
	}
}
