package history

import "sort"

// null marks an absent child or parent link in the arena.
const null int32 = -1

type node struct {
	chat   Chat
	parent int32
	left   int32
	right  int32
}

// Tree is an arena-backed splay tree over chat ids. Nodes are addressed by
// stable indices; rotations are index reassignments, never pointer moves.
// In-order traversal always yields strictly increasing ids, and the most
// recently inserted or accessed node is the root.
//
// The tree performs no locking; the owning service serializes mutations.
type Tree struct {
	nodes []node
	root  int32
	free  []int32
	size  int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{root: null}
}

// Len is the number of chats currently in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Root returns the chat at the root, if the tree is non-empty.
func (t *Tree) Root() (Chat, bool) {
	if t.root == null {
		return Chat{}, false
	}
	return t.nodes[t.root].chat, true
}

// Insert adds a chat keyed by id, or updates title and timestamp in place
// when the id is already present. Either way the affected node is splayed
// to the root.
func (t *Tree) Insert(id, title string, timestamp int64) Chat {
	if t.root == null {
		idx := t.alloc(Chat{ID: id, Title: title, Timestamp: timestamp})
		t.root = idx
		t.size = 1
		return t.nodes[idx].chat
	}

	cur := t.root
	parent := null
	for cur != null {
		parent = cur
		switch {
		case id == t.nodes[cur].chat.ID:
			t.nodes[cur].chat.Title = title
			t.nodes[cur].chat.Timestamp = timestamp
			t.splay(cur)
			return t.nodes[cur].chat
		case id < t.nodes[cur].chat.ID:
			cur = t.nodes[cur].left
		default:
			cur = t.nodes[cur].right
		}
	}

	idx := t.alloc(Chat{ID: id, Title: title, Timestamp: timestamp})
	t.nodes[idx].parent = parent
	if id < t.nodes[parent].chat.ID {
		t.nodes[parent].left = idx
	} else {
		t.nodes[parent].right = idx
	}
	t.size++
	t.splay(idx)
	return t.nodes[idx].chat
}

// Access looks up a chat by id. On a hit the node is splayed to the root;
// on a miss the tree is left untouched.
func (t *Tree) Access(id string) (Chat, bool) {
	idx := t.find(id)
	if idx == null {
		return Chat{}, false
	}
	t.splay(idx)
	return t.nodes[idx].chat, true
}

// Delete removes a chat by id, reporting whether it was present. The target
// is splayed to the root first; its subtrees are then joined by splaying
// the maximum of the left subtree.
func (t *Tree) Delete(id string) bool {
	idx := t.find(id)
	if idx == null {
		return false
	}
	t.splay(idx)

	left := t.nodes[idx].left
	right := t.nodes[idx].right
	switch {
	case left == null:
		t.root = right
		if right != null {
			t.nodes[right].parent = null
		}
	case right == null:
		t.root = left
		t.nodes[left].parent = null
	default:
		t.nodes[left].parent = null
		t.nodes[right].parent = null

		maxLeft := left
		for t.nodes[maxLeft].right != null {
			maxLeft = t.nodes[maxLeft].right
		}
		t.root = left
		t.splay(maxLeft)
		// maxLeft is now the root of the left subtree with no right child.
		t.nodes[t.root].right = right
		t.nodes[right].parent = t.root
	}

	t.release(idx)
	t.size--
	return true
}

// InOrder collects every chat in ascending id order.
func (t *Tree) InOrder() []Chat {
	chats := make([]Chat, 0, t.size)
	var stack []int32
	cur := t.root
	for cur != null || len(stack) > 0 {
		for cur != null {
			stack = append(stack, cur)
			cur = t.nodes[cur].left
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		chats = append(chats, t.nodes[cur].chat)
		cur = t.nodes[cur].right
	}
	return chats
}

// List collects every chat and sorts by timestamp descending (newest first)
// for presentation, with id ascending as a deterministic tie-break. The
// traversal itself never reorders the tree.
func (t *Tree) List() []Chat {
	chats := t.InOrder()
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].Timestamp != chats[j].Timestamp {
			return chats[i].Timestamp > chats[j].Timestamp
		}
		return chats[i].ID < chats[j].ID
	})
	return chats
}

// Clear discards every node and resets the arena.
func (t *Tree) Clear() {
	t.nodes = t.nodes[:0]
	t.free = t.free[:0]
	t.root = null
	t.size = 0
}

func (t *Tree) find(id string) int32 {
	cur := t.root
	for cur != null {
		switch {
		case id == t.nodes[cur].chat.ID:
			return cur
		case id < t.nodes[cur].chat.ID:
			cur = t.nodes[cur].left
		default:
			cur = t.nodes[cur].right
		}
	}
	return null
}

// splay moves the node at x to the root through zig, zig-zig, and zig-zag
// rotation steps.
func (t *Tree) splay(x int32) {
	for t.nodes[x].parent != null {
		p := t.nodes[x].parent
		g := t.nodes[p].parent
		switch {
		case g == null:
			// Zig: parent is the root.
			if x == t.nodes[p].left {
				t.rotateRight(p)
			} else {
				t.rotateLeft(p)
			}
		case x == t.nodes[p].left && p == t.nodes[g].left:
			// Zig-zig, left spine.
			t.rotateRight(g)
			t.rotateRight(p)
		case x == t.nodes[p].right && p == t.nodes[g].right:
			// Zig-zig, right spine.
			t.rotateLeft(g)
			t.rotateLeft(p)
		case x == t.nodes[p].right && p == t.nodes[g].left:
			// Zig-zag.
			t.rotateLeft(p)
			t.rotateRight(g)
		default:
			// Zig-zag, mirrored.
			t.rotateRight(p)
			t.rotateLeft(g)
		}
	}
}

// rotateRight lifts x's left child into x's place.
func (t *Tree) rotateRight(x int32) {
	y := t.nodes[x].left
	if y == null {
		return
	}
	t.nodes[x].left = t.nodes[y].right
	if t.nodes[y].right != null {
		t.nodes[t.nodes[y].right].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	p := t.nodes[x].parent
	switch {
	case p == null:
		t.root = y
	case t.nodes[p].left == x:
		t.nodes[p].left = y
	default:
		t.nodes[p].right = y
	}
	t.nodes[y].right = x
	t.nodes[x].parent = y
}

// rotateLeft lifts x's right child into x's place.
func (t *Tree) rotateLeft(x int32) {
	y := t.nodes[x].right
	if y == null {
		return
	}
	t.nodes[x].right = t.nodes[y].left
	if t.nodes[y].left != null {
		t.nodes[t.nodes[y].left].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	p := t.nodes[x].parent
	switch {
	case p == null:
		t.root = y
	case t.nodes[p].left == x:
		t.nodes[p].left = y
	default:
		t.nodes[p].right = y
	}
	t.nodes[y].left = x
	t.nodes[x].parent = y
}

func (t *Tree) alloc(chat Chat) int32 {
	n := node{chat: chat, parent: null, left: null, right: null}
	if len(t.free) > 0 {
		idx := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

func (t *Tree) release(idx int32) {
	t.nodes[idx] = node{parent: null, left: null, right: null}
	t.free = append(t.free, idx)
}
