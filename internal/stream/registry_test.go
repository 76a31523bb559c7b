package stream

import (
	"testing"

	"github.com/mesen-mcp/backend/internal/core"
)

func TestRegistryPutReplacesInPlace(t *testing.T) {
	r := newRegistry()
	r.Put(&Subscription{ID: FeedTrace, Kind: KindTrace, MaxLines: 100})
	r.Put(&Subscription{ID: FeedEvents, Kind: KindEvents})
	r.Put(&Subscription{ID: FeedTrace, Kind: KindTrace, MaxLines: 25})

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(list))
	}
	// replacement keeps the original iteration position
	if list[0].ID != FeedTrace || list[0].MaxLines != 25 {
		t.Errorf("first entry = %+v, want trace with MaxLines 25", list[0])
	}
}

func TestRegistryMemoryAt(t *testing.T) {
	r := newRegistry()
	a := MemoryFeedID(core.SnesWorkRam, 0x100)
	b := MemoryFeedID(core.SnesVideoRam, 0x100)
	c := MemoryFeedID(core.SnesWorkRam, 0x200)
	r.Put(&Subscription{ID: a, Kind: KindMemory, MemoryType: core.SnesWorkRam, Address: 0x100, Length: 8})
	r.Put(&Subscription{ID: b, Kind: KindMemory, MemoryType: core.SnesVideoRam, Address: 0x100, Length: 8})
	r.Put(&Subscription{ID: c, Kind: KindMemory, MemoryType: core.SnesWorkRam, Address: 0x200, Length: 8})

	got := r.MemoryAt(0x100)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("MemoryAt(0x100) = %v, want [%s %s]", got, a, b)
	}

	if !r.Remove(a) {
		t.Error("Remove(a) = false, want true")
	}
	if r.Remove(a) {
		t.Error("second Remove(a) = true, want false")
	}
	if got := r.MemoryAt(0x100); len(got) != 1 || got[0] != b {
		t.Errorf("MemoryAt after remove = %v", got)
	}
}
