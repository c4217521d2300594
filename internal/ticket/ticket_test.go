package ticket

import (
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestIssueVerify(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	iss, err := NewIssuer("s3cret", time.Minute, c.now)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	tok, err := iss.Issue("m1", "u7", 3)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := iss.Verify(tok, "m1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "u7" || claims.Slot != 3 || claims.MatchID != "m1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyFailures(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	iss, _ := NewIssuer("s3cret", time.Minute, c.now)
	other, _ := NewIssuer("different", time.Minute, c.now)
	tok, _ := iss.Issue("m1", "u7", 0)
	forged, _ := other.Issue("m1", "u7", 0)

	tests := []struct {
		name    string
		raw     string
		match   string
		advance time.Duration
		want    error
	}{
		{"garbage", "not-a-token", "m1", 0, ErrInvalid},
		{"wrong secret", forged, "m1", 0, ErrInvalid},
		{"other match", tok, "m2", 0, ErrMatch},
		{"expired", tok, "m1", 2 * time.Minute, ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.t = time.Unix(1_700_000_000, 0).Add(tt.advance)
			if _, err := iss.Verify(tt.raw, tt.match); !errors.Is(err, tt.want) {
				t.Fatalf("Verify err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", 0, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
