package primitives

import "testing"

func TestContext_SetGetDelete(t *testing.T) {
	ctx := NewContext()

	if _, ok := ctx.Get("temp"); ok {
		t.Fatalf("expected missing key to report !ok")
	}

	ctx.Set("temp", 42)
	v, ok := ctx.Get("temp")
	if !ok || v != 42 {
		t.Fatalf("Get(temp) = %v, %v; want 42, true", v, ok)
	}

	ctx.Delete("temp")
	if _, ok := ctx.Get("temp"); ok {
		t.Fatalf("expected key to be gone after Delete")
	}
}

func TestContext_Snapshot(t *testing.T) {
	ctx := NewContext()
	ctx.Set("a", 1)
	ctx.Set("b", 2)

	snap := ctx.Snapshot()
	snap["a"] = 999 // mutating the snapshot must not affect the context

	v, _ := ctx.Get("a")
	if v != 1 {
		t.Fatalf("Snapshot is not a defensive copy: Get(a) = %v, want 1", v)
	}
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
}
