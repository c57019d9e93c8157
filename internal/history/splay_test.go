package history

import (
	"fmt"
	"math/rand"
	"testing"
)

func checkInvariants(t *testing.T, tr *Tree) {
	t.Helper()
	chats := tr.InOrder()
	if len(chats) != tr.Len() {
		t.Fatalf("InOrder yielded %d chats, Len() = %d", len(chats), tr.Len())
	}
	for i := 1; i < len(chats); i++ {
		if chats[i-1].ID >= chats[i].ID {
			t.Fatalf("in-order ids not strictly increasing: %q >= %q", chats[i-1].ID, chats[i].ID)
		}
	}
}

func TestInsertSplaysToRoot(t *testing.T) {
	tr := NewTree()
	for i, id := range []string{"c3", "c1", "c2"} {
		tr.Insert(id, fmt.Sprintf("chat %s", id), int64(i))
		root, ok := tr.Root()
		if !ok || root.ID != id {
			t.Fatalf("after Insert(%s), root = (%+v, %v)", id, root, ok)
		}
		checkInvariants(t, tr)
	}
	if tr.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tr.Len())
	}
}

func TestInsertDuplicateUpdatesInPlace(t *testing.T) {
	tr := NewTree()
	tr.Insert("c1", "first title", 100)
	tr.Insert("c2", "other", 200)
	tr.Insert("c1", "second title", 300)

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	root, _ := tr.Root()
	if root.ID != "c1" || root.Title != "second title" || root.Timestamp != 300 {
		t.Errorf("root = %+v, want updated c1", root)
	}
	checkInvariants(t, tr)
}

func TestAccessSplaysHitOnly(t *testing.T) {
	tr := NewTree()
	tr.Insert("c1", "one", 1)
	tr.Insert("c2", "two", 2)
	tr.Insert("c3", "three", 3)

	chat, found := tr.Access("c1")
	if !found || chat.ID != "c1" {
		t.Fatalf("Access(c1) = (%+v, %v), want hit", chat, found)
	}
	root, _ := tr.Root()
	if root.ID != "c1" {
		t.Errorf("root after access = %s, want c1", root.ID)
	}

	// A miss leaves the root unchanged.
	if _, found := tr.Access("zz"); found {
		t.Fatal("Access(zz) should miss")
	}
	root, _ = tr.Root()
	if root.ID != "c1" {
		t.Errorf("root after miss = %s, want c1", root.ID)
	}
	checkInvariants(t, tr)
}

func TestAccessIsIdempotentAtRoot(t *testing.T) {
	tr := NewTree()
	tr.Insert("c1", "one", 1)
	tr.Insert("c2", "two", 2)

	for i := 0; i < 3; i++ {
		chat, found := tr.Access("c2")
		if !found || chat.ID != "c2" {
			t.Fatalf("Access(c2) iteration %d = (%+v, %v)", i, chat, found)
		}
		checkInvariants(t, tr)
	}
}

func TestDelete(t *testing.T) {
	tr := NewTree()
	ids := []string{"c5", "c2", "c8", "c1", "c3", "c7", "c9"}
	for i, id := range ids {
		tr.Insert(id, "t", int64(i))
	}

	// Interior node with two subtrees after splay.
	if !tr.Delete("c5") {
		t.Fatal("Delete(c5) should report presence")
	}
	if tr.Len() != len(ids)-1 {
		t.Fatalf("Len() = %d, want %d", tr.Len(), len(ids)-1)
	}
	if _, found := tr.Access("c5"); found {
		t.Error("c5 still reachable after delete")
	}
	checkInvariants(t, tr)

	if tr.Delete("c5") {
		t.Error("second Delete(c5) should report absence")
	}

	// Drain the rest.
	for _, id := range []string{"c1", "c9", "c2", "c8", "c3", "c7"} {
		if !tr.Delete(id) {
			t.Fatalf("Delete(%s) should report presence", id)
		}
		checkInvariants(t, tr)
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d after draining, want 0", tr.Len())
	}
	if _, ok := tr.Root(); ok {
		t.Error("empty tree should have no root")
	}
}

func TestDeleteReusesArenaSlots(t *testing.T) {
	tr := NewTree()
	tr.Insert("c1", "one", 1)
	tr.Insert("c2", "two", 2)
	tr.Delete("c1")
	tr.Insert("c3", "three", 3)

	if len(tr.nodes) != 2 {
		t.Errorf("arena holds %d slots, want 2 after slot reuse", len(tr.nodes))
	}
	checkInvariants(t, tr)
}

func TestClear(t *testing.T) {
	tr := NewTree()
	tr.Insert("c1", "one", 1)
	tr.Insert("c2", "two", 2)
	tr.Clear()

	if tr.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", tr.Len())
	}
	if _, found := tr.Access("c1"); found {
		t.Error("c1 reachable after Clear")
	}

	// The tree is fully usable after clearing.
	tr.Insert("c9", "nine", 9)
	root, ok := tr.Root()
	if !ok || root.ID != "c9" {
		t.Errorf("root = (%+v, %v), want c9", root, ok)
	}
}

func TestListSortsByTimestampDescending(t *testing.T) {
	tr := NewTree()
	tr.Insert("c1", "oldest", 100)
	tr.Insert("c2", "newest", 300)
	tr.Insert("c3", "middle", 200)
	tr.Insert("c0", "tied", 200)

	chats := tr.List()
	wantIDs := []string{"c2", "c0", "c3", "c1"}
	if len(chats) != len(wantIDs) {
		t.Fatalf("List() returned %d chats, want %d", len(chats), len(wantIDs))
	}
	for i, want := range wantIDs {
		if chats[i].ID != want {
			t.Errorf("List()[%d].ID = %s, want %s", i, chats[i].ID, want)
		}
	}
}

func TestRandomizedOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := NewTree()
	present := make(map[string]bool)

	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("chat-%03d", rng.Intn(100))
		switch rng.Intn(3) {
		case 0:
			tr.Insert(id, "t", int64(i))
			present[id] = true
		case 1:
			_, found := tr.Access(id)
			if found != present[id] {
				t.Fatalf("Access(%s) found=%v, model says %v", id, found, present[id])
			}
		case 2:
			deleted := tr.Delete(id)
			if deleted != present[id] {
				t.Fatalf("Delete(%s) deleted=%v, model says %v", id, deleted, present[id])
			}
			delete(present, id)
		}
	}

	if tr.Len() != len(present) {
		t.Fatalf("Len() = %d, model has %d", tr.Len(), len(present))
	}
	checkInvariants(t, tr)
}
