package util

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("secret", "lawdesk", 7, 3, "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken("secret", tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.TenantID != 3 || claims.ID != "sess-1" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "lawdesk" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	good, _ := GenerateToken("secret", "", 1, 1, "s", time.Hour)
	noSession, _ := GenerateToken("secret", "", 1, 1, "", time.Hour)

	cases := map[string]string{
		"wrong secret": good,
		"garbage":      "not.a.token",
		"no session":   noSession,
	}
	for name, tok := range cases {
		secret := "secret"
		if name == "wrong secret" {
			secret = "other"
		}
		if _, err := ParseToken(secret, tok); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
