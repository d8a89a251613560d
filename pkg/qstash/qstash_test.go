package qstash

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const callbackURL = "https://neemo.example.com/api/tasks/low-stock"

func signToken(t *testing.T, key string, claims signatureClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.URLEncoding.EncodeToString(sum[:])
}

func unix(sec int64) *jwt.NumericDate {
	return jwt.NewNumericDate(time.Unix(sec, 0))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		URL:               baseURL,
		Token:             "tok",
		CurrentSigningKey: "current",
		NextSigningKey:    "next",
		Retries:           2,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return c
}

func TestVerifyAcceptsCurrentAndNextKeys(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://qstash.example.com")
	body := []byte(`{"shop_id":"s1"}`)
	claims := signatureClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "Upstash",
			Subject:   callbackURL,
			ExpiresAt: unix(1_700_000_300),
			NotBefore: unix(1_699_999_900),
		},
		Body: bodyHash(body),
	}

	for _, key := range []string{"current", "next"} {
		if err := c.Verify(signToken(t, key, claims), body, callbackURL); err != nil {
			t.Fatalf("Verify(key=%s) error = %v", key, err)
		}
	}
}

func TestVerifyToleratesClockSkew(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://qstash.example.com")
	body := []byte(`{}`)
	claims := signatureClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "Upstash",
			ExpiresAt: unix(1_699_999_980),
			NotBefore: unix(1_700_000_020),
		},
		Body: bodyHash(body),
	}

	if err := c.Verify(signToken(t, "current", claims), body, ""); err != nil {
		t.Fatalf("Verify() within tolerance error = %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://qstash.example.com")
	body := []byte(`{"shop_id":"s1"}`)
	valid := func() signatureClaims {
		return signatureClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "Upstash",
				Subject:   callbackURL,
				ExpiresAt: unix(1_700_000_300),
			},
			Body: bodyHash(body),
		}
	}
	expired := valid()
	expired.ExpiresAt = unix(1_600_000_000)
	otherIssuer := valid()
	otherIssuer.Issuer = "Mallory"
	otherSubject := valid()
	otherSubject.Subject = "https://evil.example.com/hook"

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	tests := []struct {
		name  string
		token string
		body  []byte
	}{
		{name: "wrong key", token: signToken(t, "other", valid()), body: body},
		{name: "body changed", token: signToken(t, "current", valid()), body: []byte(`{"shop_id":"s2"}`)},
		{name: "expired", token: signToken(t, "current", expired), body: body},
		{name: "issuer", token: signToken(t, "current", otherIssuer), body: body},
		{name: "subject", token: signToken(t, "current", otherSubject), body: body},
		{name: "alg none", token: none, body: body},
		{name: "malformed", token: "abc.def", body: body},
	}

	for _, tt := range tests {
		if err := c.Verify(tt.token, tt.body, callbackURL); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("%s: Verify() error = %v, want ErrInvalidSignature", tt.name, err)
		}
	}

	if err := c.Verify("", body, ""); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("Verify(empty) error = %v, want ErrMissingSignature", err)
	}
}

func TestPublishJSON(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotRetries, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		raw, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		gotBody = string(raw)
		fmt.Fprint(w, `{"messageId":"msg_1"}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL)
	c.httpClient = server.Client()

	res, err := c.PublishJSON(context.Background(), "https://neemo.example.com/api/tasks/low-stock", map[string]string{"shop_id": "s1"})
	if err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	if res.MessageID != "msg_1" {
		t.Fatalf("MessageID = %q", res.MessageID)
	}
	if gotPath != "/v2/publish/https://neemo.example.com/api/tasks/low-stock" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotRetries != "2" {
		t.Fatalf("retries = %q", gotRetries)
	}
	if gotBody != `{"shop_id":"s1"}` {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestPublishJSONStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad token"}`)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL)
	c.httpClient = server.Client()

	if _, err := c.PublishJSON(context.Background(), "https://neemo.example.com/x", map[string]string{}); err == nil {
		t.Fatal("expected error on 401")
	}
}
