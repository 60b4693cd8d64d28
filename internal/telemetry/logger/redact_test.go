package logger

import (
	"log/slog"
	"testing"
)

func TestRedactSensitive_BearerValue(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.Info("ingest request", "header", "Bearer s3cr3t-ingest-token-xyz")

	entry := decode(t, buf)
	if got := entry["header"]; got != "Bearer ***xyz" {
		t.Errorf("header = %v, want %q", got, "Bearer ***xyz")
	}
}

func TestRedactSensitive_BcryptHash(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	hash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	l.Info("config loaded", "hash", hash)

	entry := decode(t, buf)
	got, _ := entry["hash"].(string)
	if got == hash {
		t.Fatal("bcrypt hash must be masked")
	}
	if got != "$2a$***hWy" {
		t.Errorf("hash = %q, want %q", got, "$2a$***hWy")
	}
}

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	tests := []string{"password", "ingest_token", "Authorization", "client_secret"}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			l, buf := newBuffered(t, "info", "json")
			l.Info("value", key, "plain")

			entry := decode(t, buf)
			if entry[key] != redactedValue {
				t.Errorf("%s = %v, want %s", key, entry[key], redactedValue)
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.Info("query", "collection", "Overlays", "interval", "42.5")

	entry := decode(t, buf)
	if entry["collection"] != "Overlays" || entry["interval"] != "42.5" {
		t.Errorf("normal values must pass through, got %v", entry)
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("auth", slog.String("token", "abc"), slog.String("user", "ops"))

	got := redactSensitive(a)
	attrs := got.Value.Group()
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("nested token = %q, want redacted", attrs[0].Value.String())
	}
	if attrs[1].Value.String() != "ops" {
		t.Errorf("nested user = %q, want ops", attrs[1].Value.String())
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Bearer abcdefghij", "Bearer ***hij"},
		{"Bearer abc", "Bearer ***"},
		{"$2b$12$abcdefghijkl", "$2b$***jkl"},
		{"hello", "hello"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RedactString(tt.input); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"PASSWORD", true},
		{"ingest_token_hash", true},
		{"authorization", true},
		{"collection", false},
		{"interval", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestIsSensitiveValue(t *testing.T) {
	if !IsSensitiveValue("Bearer x") {
		t.Error("bearer value must be sensitive")
	}
	if !IsSensitiveValue("$2y$10$abc") {
		t.Error("bcrypt hash must be sensitive")
	}
	if IsSensitiveValue("Overlays") {
		t.Error("plain value must not be sensitive")
	}
}

func TestMaskValue(t *testing.T) {
	if got := maskValue("Bearer 1234567", "Bearer "); got != "Bearer ***567" {
		t.Errorf("maskValue() = %q, want %q", got, "Bearer ***567")
	}
	if got := maskValue("Bearer 123456", "Bearer "); got != "Bearer ***" {
		t.Errorf("maskValue() = %q, want %q", got, "Bearer ***")
	}
}
