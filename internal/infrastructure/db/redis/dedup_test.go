package redis

import (
	"context"
	"testing"
	"time"
)

func TestDedupChecker(t *testing.T) {
	mr, client := newTestClient(t)
	d := NewDedupChecker(client)
	ctx := context.Background()

	dup, err := d.IsDuplicate(ctx, "sid", "bob@x.com:member:/user/dashboard")
	if err != nil || dup {
		t.Fatalf("fresh state: dup=%v err=%v", dup, err)
	}

	if err := d.Mark(ctx, "sid", "bob@x.com:member:/user/dashboard"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	dup, err = d.IsDuplicate(ctx, "sid", "bob@x.com:member:/user/dashboard")
	if err != nil || !dup {
		t.Fatalf("marked state: dup=%v err=%v", dup, err)
	}

	if dup, _ := d.IsDuplicate(ctx, "other", "bob@x.com:member:/user/dashboard"); dup {
		t.Fatal("marks must be per session")
	}
	if dup, _ := d.IsDuplicate(ctx, "sid", "bob@x.com:manager:/manager/dashboard"); dup {
		t.Fatal("marks must be per state")
	}

	if ttl := mr.TTL("portal:dedup:sid:bob@x.com:member:/user/dashboard"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
	mr.FastForward(time.Hour + time.Second)
	if dup, _ := d.IsDuplicate(ctx, "sid", "bob@x.com:member:/user/dashboard"); dup {
		t.Fatal("mark should expire")
	}
}

func TestDedupChecker_ResetForgetsSessionOnly(t *testing.T) {
	_, client := newTestClient(t)
	d := NewDedupChecker(client)
	ctx := context.Background()

	for _, state := range []string{"::/login", "bob@x.com:member:/user/dashboard"} {
		if err := d.Mark(ctx, "sid", state); err != nil {
			t.Fatalf("mark %q: %v", state, err)
		}
	}
	if err := d.Mark(ctx, "other", "::/login"); err != nil {
		t.Fatalf("mark other: %v", err)
	}

	if err := d.Reset(ctx, "sid"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, state := range []string{"::/login", "bob@x.com:member:/user/dashboard"} {
		if dup, _ := d.IsDuplicate(ctx, "sid", state); dup {
			t.Fatalf("%q should be forgotten after reset", state)
		}
	}
	if dup, _ := d.IsDuplicate(ctx, "other", "::/login"); !dup {
		t.Fatal("reset must not touch other sessions")
	}

	if err := d.Reset(ctx, "nobody"); err != nil {
		t.Fatalf("reset of an unknown session: %v", err)
	}
}
