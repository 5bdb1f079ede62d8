package auth

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey_Live(t *testing.T) {
	t.Parallel()

	key, err := GenerateAPIKey(EnvLive)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	if !strings.HasPrefix(key.Plaintext, "mety_live_") {
		t.Errorf("Key should start with mety_live_, got: %s", key.Plaintext)
	}

	if len(key.Lookup) != KeyLookupLen {
		t.Errorf("Lookup should be %d chars, got: %d", KeyLookupLen, len(key.Lookup))
	}

	if key.Hash == "" {
		t.Error("Hash should not be empty")
	}
	if len(key.Hash) != 64 {
		t.Errorf("Hash should be a 64-char hex digest, got %d chars", len(key.Hash))
	}
	if strings.Contains(key.Hash, key.Plaintext) {
		t.Error("Hash must not contain the plaintext key")
	}

	if !strings.Contains(key.Plaintext, key.Lookup) {
		t.Error("Plaintext should contain the lookup component")
	}
}

func TestGenerateAPIKey_Test(t *testing.T) {
	t.Parallel()

	key, err := GenerateAPIKey(EnvTest)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	if !strings.HasPrefix(key.Plaintext, "mety_test_") {
		t.Errorf("Key should start with mety_test_, got: %s", key.Plaintext)
	}
}

func TestGenerateAPIKey_DefaultsToLive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  string
	}{
		{"invalid env", "invalid"},
		{"empty env", ""},
		{"prod env", "prod"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, err := GenerateAPIKey(tt.env)
			if err != nil {
				t.Fatalf("GenerateAPIKey failed: %v", err)
			}
			if !strings.HasPrefix(key.Plaintext, "mety_live_") {
				t.Errorf("Expected mety_live_ prefix for env %q, got: %s", tt.env, key.Plaintext)
			}
		})
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateAPIKey(EnvLive)
		if err != nil {
			t.Fatalf("GenerateAPIKey failed: %v", err)
		}
		if seen[key.Plaintext] {
			t.Fatal("Generated duplicate key")
		}
		seen[key.Plaintext] = true
	}
}

func TestParseAPIKey(t *testing.T) {
	t.Parallel()

	generated, err := GenerateAPIKey(EnvLive)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	parsed, err := ParseAPIKey(generated.Plaintext)
	if err != nil {
		t.Fatalf("ParseAPIKey failed: %v", err)
	}

	if parsed.Env != EnvLive {
		t.Errorf("Expected env live, got: %s", parsed.Env)
	}
	if parsed.Lookup != generated.Lookup {
		t.Errorf("Expected lookup %s, got: %s", generated.Lookup, parsed.Lookup)
	}
	if len(parsed.Secret) != KeySecretLen {
		t.Errorf("Secret should be %d chars, got: %d", KeySecretLen, len(parsed.Secret))
	}
}

func TestParseAPIKey_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"too few segments", "mety_live"},
		{"wrong prefix", "pk_live_aabbccdd_" + strings.Repeat("a", 64)},
		{"wrong env", "mety_staging_aabbccdd_" + strings.Repeat("a", 64)},
		{"short lookup", "mety_live_aabb_" + strings.Repeat("a", 64)},
		{"short secret", "mety_live_aabbccdd_" + strings.Repeat("a", 32)},
		{"uppercase hex", "mety_live_AABBCCDD_" + strings.Repeat("A", 64)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseAPIKey(tt.key); err == nil {
				t.Errorf("Expected error for key %q", tt.key)
			}
		})
	}
}

func TestVerifyAPIKey(t *testing.T) {
	t.Parallel()

	generated, err := GenerateAPIKey(EnvLive)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	if !VerifyAPIKey(generated.Plaintext, generated.Hash) {
		t.Error("Generated key should verify against its own hash")
	}

	other, err := GenerateAPIKey(EnvLive)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if VerifyAPIKey(other.Plaintext, generated.Hash) {
		t.Error("A different key must not verify")
	}
}
