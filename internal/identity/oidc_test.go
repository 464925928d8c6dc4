package identity

import (
	"testing"
)

func TestStringClaim(t *testing.T) {
	claims := map[string]any{
		"email": "user@example.com",
		"count": 3,
	}

	if got := stringClaim(claims, "email"); got != "user@example.com" {
		t.Errorf("expected user@example.com, got %q", got)
	}
	if got := stringClaim(claims, "missing"); got != "" {
		t.Errorf("expected empty string for missing claim, got %q", got)
	}
	if got := stringClaim(claims, "count"); got != "" {
		t.Errorf("expected empty string for non-string claim, got %q", got)
	}
	if got := stringClaim(claims, ""); got != "" {
		t.Errorf("expected empty string for empty claim name, got %q", got)
	}
}

func TestStringSliceClaim(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   []string
	}{
		{
			name:   "array of strings",
			claims: map[string]any{"cognito:groups": []any{"PLATFORM_ADMIN", "COMPANY_OWNER"}},
			want:   []string{"PLATFORM_ADMIN", "COMPANY_OWNER"},
		},
		{
			name:   "single string",
			claims: map[string]any{"cognito:groups": "TENANT"},
			want:   []string{"TENANT"},
		},
		{
			name:   "empty string",
			claims: map[string]any{"cognito:groups": ""},
			want:   nil,
		},
		{
			name:   "missing claim",
			claims: map[string]any{},
			want:   nil,
		},
		{
			name:   "mixed array skips non-strings",
			claims: map[string]any{"cognito:groups": []any{"TENANT", 42}},
			want:   []string{"TENANT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringSliceClaim(tt.claims, "cognito:groups")
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestTokenDigest(t *testing.T) {
	d1 := tokenDigest("token-a")
	d2 := tokenDigest("token-a")
	d3 := tokenDigest("token-b")

	if d1 != d2 {
		t.Error("digest should be deterministic")
	}
	if d1 == d3 {
		t.Error("different tokens should produce different digests")
	}
	// SHA-256 produces 64 hex characters; cache keys must never be the raw token.
	if len(d1) != 64 {
		t.Errorf("expected digest length 64, got %d", len(d1))
	}
	if d1 == "token-a" {
		t.Error("digest must not equal the raw token")
	}
}
