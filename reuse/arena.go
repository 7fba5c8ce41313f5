// reuse/arena.go
package reuse

import (
	"errors"
	"fmt"

	"github.com/xlab/treeprint"
)

// NodeID is a stable handle to a TraceNode owned by an Arena.
// Handles stay valid until the Arena is destroyed.
type NodeID int

// NilNode marks an absent child or an empty tree.
const NilNode NodeID = -1

// ErrArenaFull is returned by Insert when the arena has reached its node capacity.
// No node is linked and the sequence counter is not advanced.
var ErrArenaFull = errors.New("arena: node capacity exhausted")

// TraceNode represents one access event. A new node is created for every
// event, including repeat accesses to the same key; nodes are never mutated
// after insertion except for their links and height during rebalancing.
type TraceNode[P any] struct {
	Sequence uint64 // unique, strictly increasing per Arena
	Payload  P      // opaque record, never interpreted by the engine
	Left     NodeID
	Right    NodeID
	Height   int // leaf = 0
}

// Arena owns every TraceNode of one trace and keeps them in a height-balanced
// (AVL) tree ordered by sequence number.
//
// Thread-safety: NOT thread-safe. Callers feeding events from several
// goroutines must serialize access with a single lock.
type Arena[P any] struct {
	nodes     []TraceNode[P]
	root      NodeID
	nextSeq   uint64
	maxNodes  int // <= 0 means unbounded
	destroyed bool
}

// NewArena creates an empty Arena. maxNodes <= 0 means no capacity limit.
func NewArena[P any](maxNodes int) *Arena[P] {
	return &Arena[P]{
		root:     NilNode,
		maxNodes: maxNodes,
	}
}

// NextSequence returns the sequence number the next inserted node will receive.
func (a *Arena[P]) NextSequence() uint64 {
	return a.nextSeq
}

// Len returns the number of nodes currently owned by the arena.
func (a *Arena[P]) Len() int {
	return len(a.nodes)
}

// Full reports whether the arena has reached its node capacity.
func (a *Arena[P]) Full() bool {
	return a.maxNodes > 0 && len(a.nodes) >= a.maxNodes
}

// Root returns the handle of the tree root, or NilNode for an empty arena.
func (a *Arena[P]) Root() NodeID {
	return a.root
}

// Height returns the height of the whole tree (-1 when empty).
func (a *Arena[P]) Height() int {
	return a.height(a.root)
}

// Node returns a copy of the node behind id. Panics on an invalid handle.
func (a *Arena[P]) Node(id NodeID) TraceNode[P] {
	a.mustBeLive("Node")
	return a.nodes[id]
}

// Sequence returns the sequence number of the node behind id.
func (a *Arena[P]) Sequence(id NodeID) uint64 {
	a.mustBeLive("Sequence")
	return a.nodes[id].Sequence
}

// Insert allocates a node with the next sequence number and links it into
// the tree. Because sequence numbers only grow, the descent always follows
// the right spine; rotations keep the tree balanced.
func (a *Arena[P]) Insert(payload P) (NodeID, error) {
	a.mustBeLive("Insert")
	if a.Full() {
		return NilNode, ErrArenaFull
	}

	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, TraceNode[P]{
		Sequence: a.nextSeq,
		Payload:  payload,
		Left:     NilNode,
		Right:    NilNode,
	})
	a.root = a.insert(a.root, id)
	a.nextSeq++
	return id, nil
}

// insert links id into the subtree rooted at t and returns the new subtree root.
func (a *Arena[P]) insert(t, id NodeID) NodeID {
	if t == NilNode {
		return id
	}

	key := a.nodes[id].Sequence
	if key < a.nodes[t].Sequence {
		left := a.insert(a.nodes[t].Left, id)
		a.nodes[t].Left = left
		if a.height(left)-a.height(a.nodes[t].Right) == 2 {
			if key < a.nodes[left].Sequence {
				t = a.rotateWithLeft(t)
			} else {
				t = a.doubleRotateWithLeft(t)
			}
		}
	} else {
		right := a.insert(a.nodes[t].Right, id)
		a.nodes[t].Right = right
		if a.height(right)-a.height(a.nodes[t].Left) == 2 {
			if key > a.nodes[right].Sequence {
				t = a.rotateWithRight(t)
			} else {
				t = a.doubleRotateWithRight(t)
			}
		}
	}

	a.updateHeight(t)
	return t
}

func (a *Arena[P]) height(id NodeID) int {
	if id == NilNode {
		return -1
	}
	return a.nodes[id].Height
}

func (a *Arena[P]) updateHeight(id NodeID) {
	a.nodes[id].Height = max(a.height(a.nodes[id].Left), a.height(a.nodes[id].Right)) + 1
}

// rotateWithLeft lifts the left child of k2 into its place.
func (a *Arena[P]) rotateWithLeft(k2 NodeID) NodeID {
	k1 := a.nodes[k2].Left
	a.nodes[k2].Left = a.nodes[k1].Right
	a.nodes[k1].Right = k2

	a.updateHeight(k2)
	a.updateHeight(k1)
	return k1
}

// rotateWithRight lifts the right child of k1 into its place.
func (a *Arena[P]) rotateWithRight(k1 NodeID) NodeID {
	k2 := a.nodes[k1].Right
	a.nodes[k1].Right = a.nodes[k2].Left
	a.nodes[k2].Left = k1

	a.updateHeight(k1)
	a.updateHeight(k2)
	return k2
}

func (a *Arena[P]) doubleRotateWithLeft(k3 NodeID) NodeID {
	a.nodes[k3].Left = a.rotateWithRight(a.nodes[k3].Left)
	return a.rotateWithLeft(k3)
}

func (a *Arena[P]) doubleRotateWithRight(k1 NodeID) NodeID {
	a.nodes[k1].Right = a.rotateWithLeft(a.nodes[k1].Right)
	return a.rotateWithRight(k1)
}

// Walk visits nodes in ascending sequence order until fn returns false.
func (a *Arena[P]) Walk(fn func(TraceNode[P]) bool) {
	a.mustBeLive("Walk")
	a.walk(a.root, fn)
}

func (a *Arena[P]) walk(id NodeID, fn func(TraceNode[P]) bool) bool {
	if id == NilNode {
		return true
	}
	n := a.nodes[id]
	return a.walk(n.Left, fn) && fn(n) && a.walk(n.Right, fn)
}

// Validate checks the AVL balance, the sequence ordering and the stored
// heights of every node. It returns the first violation found.
func (a *Arena[P]) Validate() error {
	a.mustBeLive("Validate")
	_, err := a.validate(a.root, nil, nil)
	return err
}

func (a *Arena[P]) validate(id NodeID, lo, hi *uint64) (int, error) {
	if id == NilNode {
		return -1, nil
	}
	n := a.nodes[id]
	if lo != nil && n.Sequence <= *lo {
		return 0, fmt.Errorf("node seq=%d not greater than ancestor bound %d", n.Sequence, *lo)
	}
	if hi != nil && n.Sequence >= *hi {
		return 0, fmt.Errorf("node seq=%d not less than ancestor bound %d", n.Sequence, *hi)
	}
	lh, err := a.validate(n.Left, lo, &n.Sequence)
	if err != nil {
		return 0, err
	}
	rh, err := a.validate(n.Right, &n.Sequence, hi)
	if err != nil {
		return 0, err
	}
	if lh-rh > 1 || rh-lh > 1 {
		return 0, fmt.Errorf("node seq=%d unbalanced: left height %d, right height %d", n.Sequence, lh, rh)
	}
	if h := max(lh, rh) + 1; h != n.Height {
		return 0, fmt.Errorf("node seq=%d stores height %d, actual %d", n.Sequence, n.Height, h)
	}
	return n.Height, nil
}

// Dump renders the tree shape for debugging.
func (a *Arena[P]) Dump() string {
	a.mustBeLive("Dump")
	tree := treeprint.New()
	if a.root != NilNode {
		a.dump(tree, "root", a.root)
	}
	return tree.String()
}

func (a *Arena[P]) dump(branch treeprint.Tree, side string, id NodeID) {
	n := a.nodes[id]
	label := fmt.Sprintf("seq=%d h=%d", n.Sequence, n.Height)
	if n.Left == NilNode && n.Right == NilNode {
		branch.AddMetaNode(side, label)
		return
	}
	sub := branch.AddMetaBranch(side, label)
	if n.Left != NilNode {
		a.dump(sub, "L", n.Left)
	}
	if n.Right != NilNode {
		a.dump(sub, "R", n.Right)
	}
}

// Destroy releases every node with a post-order traversal and returns the
// number of nodes released. It must be the last call on the arena; any later
// use panics.
func (a *Arena[P]) Destroy() int {
	a.mustBeLive("Destroy")
	released := a.release(a.root)
	a.nodes = nil
	a.root = NilNode
	a.destroyed = true
	return released
}

func (a *Arena[P]) release(id NodeID) int {
	if id == NilNode {
		return 0
	}
	n := a.release(a.nodes[id].Left) + a.release(a.nodes[id].Right)
	var zero P
	a.nodes[id].Payload = zero
	a.nodes[id].Left, a.nodes[id].Right = NilNode, NilNode
	return n + 1
}

func (a *Arena[P]) mustBeLive(op string) {
	if a.destroyed {
		panic(fmt.Sprintf("Arena: %s called after Destroy", op))
	}
}
