package invitations

import (
	"strings"
	"testing"
)

func TestGenerateTokenShape(t *testing.T) {
	token, err := generateToken()
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}
	// 32 bytes in unpadded base64url is always 43 characters.
	if len(token) != 43 {
		t.Fatalf("length = %d, want 43", len(token))
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token %q contains characters unsafe in a URL path", token)
	}
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, err := generateToken()
		if err != nil {
			t.Fatalf("generateToken: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d generations", i)
		}
		seen[token] = struct{}{}
	}
}
