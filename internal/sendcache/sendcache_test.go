package sendcache

import "testing"

func TestPutGet(t *testing.T) {
	c := New(2)
	c.Put("f", 1, []byte("a"), "da")
	e, ok := c.Get("f", 1)
	if !ok || string(e.Payload) != "a" || e.Digest != "da" {
		t.Fatalf("got %+v, %v", e, ok)
	}
}

func TestEvictionLRU(t *testing.T) {
	c := New(2)
	c.Put("f", 1, []byte("a"), "da")
	c.Put("f", 2, []byte("b"), "db")
	// touch 1 so 2 becomes LRU
	c.Get("f", 1)
	c.Put("f", 3, []byte("c"), "dc")

	if _, ok := c.Get("f", 2); ok {
		t.Fatal("expected index 2 to have been evicted")
	}
	if _, ok := c.Get("f", 1); !ok {
		t.Fatal("expected index 1 to survive (recently used)")
	}
	if _, ok := c.Get("f", 3); !ok {
		t.Fatal("expected index 3 present")
	}
}

func TestMustGetEvicted(t *testing.T) {
	c := New(1)
	c.Put("f", 1, []byte("a"), "da")
	c.Put("f", 2, []byte("b"), "db")
	if _, err := c.MustGet("f", 1); err == nil {
		t.Fatal("expected ErrEvicted")
	}
}

func TestDropFile(t *testing.T) {
	c := New(10)
	c.Put("f", 1, []byte("a"), "da")
	c.Put("f", 2, []byte("b"), "db")
	c.Put("g", 1, []byte("z"), "dz")
	c.DropFile("f")
	if c.Len() != 1 {
		t.Fatalf("got len %d, want 1", c.Len())
	}
	if _, ok := c.Get("g", 1); !ok {
		t.Fatal("expected other file's entry to survive")
	}
}
