package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAPIKey_HasScope(t *testing.T) {
	key := &APIKey{Scopes: []string{ScopeRead, ScopeTranslate}}

	if !key.HasScope(ScopeRead) {
		t.Error("expected read scope")
	}
	if !key.HasScope(ScopeTranslate) {
		t.Error("expected translate scope")
	}
	if key.HasScope(ScopeWrite) {
		t.Error("did not expect write scope")
	}
}

func TestAuthContext_HasScope(t *testing.T) {
	authCtx := &AuthContext{Scopes: []string{ScopeWrite}}

	if !authCtx.HasScope(ScopeWrite) {
		t.Error("expected write scope")
	}
	if authCtx.HasScope(ScopeRead) {
		t.Error("did not expect read scope")
	}
}

// The hash and lookup columns never serialize, in any response shape.
func TestAPIKey_SecretsNeverSerialize(t *testing.T) {
	key := &APIKey{
		ID:        1,
		UserID:    2,
		KeyHash:   "super-secret-hash",
		KeyLookup: "deadbeef",
		Label:     "test",
		Scopes:    []string{ScopeRead},
	}

	raw, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(raw), "super-secret-hash") || strings.Contains(string(raw), "deadbeef") {
		t.Errorf("serialized key leaks secret columns: %s", raw)
	}

	raw, err = json.Marshal(key.ToResponse())
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}
	if strings.Contains(string(raw), "super-secret-hash") || strings.Contains(string(raw), "deadbeef") {
		t.Errorf("response leaks secret columns: %s", raw)
	}
}

func TestUser_PasswordHashNeverSerializes(t *testing.T) {
	user := &User{
		ID:           1,
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$...",
	}

	raw, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(raw), "argon2id") {
		t.Errorf("serialized user leaks the password hash: %s", raw)
	}
}
