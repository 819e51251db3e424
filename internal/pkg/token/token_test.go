package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(testSecret)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewService_RejectsShortSecret(t *testing.T) {
	if _, err := NewService("too-short"); err == nil {
		t.Fatalf("expected error for short secret")
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	tok, err := svc.Issue(42, "alice@x.com", KindSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify(tok, KindSession)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user id 42, got %d", id)
	}
	if claims.Email != "alice@x.com" {
		t.Fatalf("expected email alice@x.com, got %s", claims.Email)
	}
	if claims.Kind != KindSession {
		t.Fatalf("expected kind session, got %s", claims.Kind)
	}
}

func TestVerify_Expired(t *testing.T) {
	svc := newTestService(t)

	tok, err := svc.Issue(1, "alice@x.com", KindActivation, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(tok, KindActivation); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_Tampered(t *testing.T) {
	svc := newTestService(t)

	tok, err := svc.Issue(1, "alice@x.com", KindSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// 翻转负载中的一个字节后签名必须失效
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := svc.Verify(tampered, KindSession); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Verify("not.a.token", KindSession); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService("ffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	tok, err := other.Issue(1, "alice@x.com", KindSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(tok, KindSession); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestVerify_KindMismatch(t *testing.T) {
	svc := newTestService(t)

	activation, err := svc.Issue(1, "alice@x.com", KindActivation, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(activation, KindSession); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}

	session, err := svc.Issue(1, "alice@x.com", KindSession, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(session, KindActivation); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}
