package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"netflixo/internal/adapters/auth"
	"netflixo/internal/domain"
)

const secret = "test-secret"

func TestVerify_RoundTrip(t *testing.T) {
	who := domain.Identity{UserID: "u-1", Name: "Ann", Image: "ann.png", Admin: true}
	tok, err := auth.Issue(secret, who, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := auth.NewVerifier(secret).Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != who {
		t.Fatalf("got %+v, want %+v", got, who)
	}
}

func TestVerify_Rejects(t *testing.T) {
	who := domain.Identity{UserID: "u-1"}
	good, _ := auth.Issue(secret, who, time.Hour)
	expired, _ := auth.Issue(secret, who, -time.Hour)
	wrongKey, _ := auth.Issue("other", who, time.Hour)
	noSub, _ := auth.Issue(secret, domain.Identity{}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]struct {
		secret string
		token  string
	}{
		"expired":      {secret, expired},
		"wrong key":    {secret, wrongKey},
		"no subject":   {secret, noSub},
		"alg none":     {secret, none},
		"garbage":      {secret, "not.a.token"},
		"unconfigured": {"", good},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.NewVerifier(tc.secret).Verify(tc.token)
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
