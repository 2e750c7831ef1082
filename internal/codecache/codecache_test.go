package codecache

import "testing"

func TestAllocBumpsOffsetAndRespectsCapacity(t *testing.T) {
	c, err := New(64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.Remaining() != 64 {
		t.Fatalf("Remaining() = %d, want 64", c.Remaining())
	}
	buf, addr, err := c.Alloc(40)
	if err != nil {
		t.Fatalf("Alloc(40): %v", err)
	}
	if len(buf) != 40 || addr == 0 {
		t.Fatalf("Alloc(40) = len %d addr %#x", len(buf), addr)
	}
	if c.Remaining() != 24 {
		t.Fatalf("Remaining() after alloc = %d, want 24", c.Remaining())
	}
	if _, _, err := c.Alloc(40); err == nil {
		t.Fatalf("Alloc(40) a second time should fail: only 24 bytes remain")
	}
}

func TestResetReclaimsArena(t *testing.T) {
	c, err := New(64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Alloc(64); err != nil {
		t.Fatalf("Alloc(64): %v", err)
	}
	c.Reset()
	if c.Remaining() != 64 {
		t.Fatalf("Remaining() after Reset = %d, want 64", c.Remaining())
	}
}
