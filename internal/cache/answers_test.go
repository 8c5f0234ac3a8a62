package cache

import (
	"context"
	"testing"

	"caregiver-compass/models"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("bipap warning signs", "claude", []string{"doc-1", "doc-2"})
	b := Key("bipap warning signs", "claude", []string{"doc-1", "doc-2"})
	if a != b {
		t.Fatal("same inputs produced different keys")
	}
}

func TestKeyPassageOrderIndependent(t *testing.T) {
	a := Key("q", "claude", []string{"doc-1", "doc-2", "doc-3"})
	b := Key("q", "claude", []string{"doc-3", "doc-1", "doc-2"})
	if a != b {
		t.Fatal("passage set order changed the key")
	}
}

func TestKeyDiscriminates(t *testing.T) {
	base := Key("q", "claude", []string{"doc-1"})

	if Key("other", "claude", []string{"doc-1"}) == base {
		t.Error("different query collided")
	}
	if Key("q", "openai", []string{"doc-1"}) == base {
		t.Error("different provider collided")
	}
	if Key("q", "claude", []string{"doc-2"}) == base {
		t.Error("different passage set collided")
	}
	if Key("q", "claude", nil) == base {
		t.Error("empty passage set collided")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *AnswerCache
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("nil cache reported a hit")
	}
	c.Set(ctx, "k", models.Answer{Text: "x"}) // must not panic

	disabled := NewAnswerCache(nil, 0)
	if _, ok := disabled.Get(ctx, "k"); ok {
		t.Fatal("cache without a client reported a hit")
	}
	disabled.Set(ctx, "k", models.Answer{Text: "x"})
}
