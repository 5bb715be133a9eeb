// Package categorytree turns a flat, already-fetched list of categories into
// tree-shaped views. It does no I/O. Every traversal is iterative and keeps a
// visited set, so corrupted (cyclic) input terminates instead of recursing
// forever.
package categorytree

import (
	"iter"
	"sort"
	"strings"

	"expensetracker/internal/models"
)

// IndentMarker is repeated once per depth level in option labels.
const IndentMarker = "  —"

// rootKey stands for a nil parent_id. Real IDs start at 1.
const rootKey uint = 0

// Node is a category together with its nested children.
type Node struct {
	models.Category
	Children []*Node `json:"children"`
}

// Option is one entry of a parent-selector control.
type Option struct {
	Value uint   `json:"value"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
}

// Index groups a flat category list by ID and by parent. Build it once per
// list; lookups are then O(1) and child lists come back in sibling order.
type Index struct {
	byID     map[uint]models.Category
	children map[uint][]uint
}

// NewIndex builds the parent→children index for flat in O(n log n).
func NewIndex(flat []models.Category) *Index {
	ix := &Index{
		byID:     make(map[uint]models.Category, len(flat)),
		children: make(map[uint][]uint),
	}
	for _, c := range flat {
		ix.byID[c.ID] = c
		key := parentKey(c.ParentID)
		ix.children[key] = append(ix.children[key], c.ID)
	}
	for key, ids := range ix.children {
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := ix.byID[ids[i]], ix.byID[ids[j]]
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		})
		ix.children[key] = ids
	}
	return ix
}

// Len returns the number of indexed categories.
func (ix *Index) Len() int {
	return len(ix.byID)
}

// Get returns the category with the given ID.
func (ix *Index) Get(id uint) (models.Category, bool) {
	c, ok := ix.byID[id]
	return c, ok
}

// Children returns the direct children of parentID (nil for roots) ordered
// by position, then ID.
func (ix *Index) Children(parentID *uint) []models.Category {
	ids := ix.children[parentKey(parentID)]
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, ix.byID[id])
	}
	return out
}

// Ancestors yields the ancestors of id nearest first, ending at a root. The
// sequence is lazy and restartable. It stops early if the chain leaves the
// index or revisits a category.
func (ix *Index) Ancestors(id uint) iter.Seq[models.Category] {
	return func(yield func(models.Category) bool) {
		current, ok := ix.byID[id]
		if !ok {
			return
		}
		visited := map[uint]bool{id: true}
		for current.ParentID != nil {
			parent, ok := ix.byID[*current.ParentID]
			if !ok || visited[parent.ID] {
				return
			}
			visited[parent.ID] = true
			if !yield(parent) {
				return
			}
			current = parent
		}
	}
}

// Descendants returns every transitive child of id, breadth first, so each
// parent's children appear together.
func (ix *Index) Descendants(id uint) []models.Category {
	var out []models.Category
	visited := map[uint]bool{id: true}
	queue := []uint{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, childID := range ix.children[next] {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			out = append(out, ix.byID[childID])
			queue = append(queue, childID)
		}
	}
	return out
}

// DescendantIDs returns id followed by the IDs of all its descendants.
func (ix *Index) DescendantIDs(id uint) []uint {
	ids := []uint{id}
	for _, c := range ix.Descendants(id) {
		ids = append(ids, c.ID)
	}
	return ids
}

// CreatesCycle reports whether making parentID the parent of id would put id
// into its own ancestor chain. Self-parenting is the zero-length case.
func (ix *Index) CreatesCycle(id, parentID uint) bool {
	if id == parentID {
		return true
	}
	for ancestor := range ix.Ancestors(parentID) {
		if ancestor.ID == id {
			return true
		}
	}
	return false
}

// Path returns the names from the root down to id, inclusive.
func (ix *Index) Path(id uint) []string {
	c, ok := ix.byID[id]
	if !ok {
		return nil
	}
	names := []string{c.Name}
	for ancestor := range ix.Ancestors(id) {
		names = append(names, ancestor.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// BuildTree groups flat into nested nodes under parentID (nil for the whole
// forest). Siblings keep position order. Calling it twice on the same input
// yields equal trees.
func BuildTree(flat []models.Category, parentID *uint) []*Node {
	return NewIndex(flat).Tree(parentID)
}

// Tree is BuildTree over an existing index.
func (ix *Index) Tree(parentID *uint) []*Node {
	visited := make(map[uint]bool)
	roots := ix.newNodes(parentKey(parentID), visited)

	stack := append([]*Node(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.Children = ix.newNodes(n.ID, visited)
		stack = append(stack, n.Children...)
	}
	return roots
}

func (ix *Index) newNodes(key uint, visited map[uint]bool) []*Node {
	ids := ix.children[key]
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if visited[id] {
			continue
		}
		visited[id] = true
		nodes = append(nodes, &Node{Category: ix.byID[id], Children: []*Node{}})
	}
	return nodes
}

// BuildIndentedOptions flattens the forest under parentID into pre-order
// options. Labels carry one IndentMarker per level below depth zero, so a
// selector renders the hierarchy without nesting.
func BuildIndentedOptions(flat []models.Category, parentID *uint, depth int) []Option {
	return NewIndex(flat).Options(parentID, depth)
}

// Options is BuildIndentedOptions over an existing index.
func (ix *Index) Options(parentID *uint, depth int) []Option {
	type frame struct {
		id    uint
		depth int
	}

	var out []Option
	visited := make(map[uint]bool)
	push := func(stack []frame, key uint, d int) []frame {
		ids := ix.children[key]
		for i := len(ids) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: ids[i], depth: d})
		}
		return stack
	}

	stack := push(nil, parentKey(parentID), depth)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.id] {
			continue
		}
		visited[f.id] = true

		c := ix.byID[f.id]
		out = append(out, Option{Value: c.ID, Label: label(c.Name, f.depth), Depth: f.depth})
		stack = push(stack, c.ID, f.depth+1)
	}
	return out
}

func label(name string, depth int) string {
	if depth <= 0 {
		return name
	}
	return strings.Repeat(IndentMarker, depth) + " " + name
}

func parentKey(parentID *uint) uint {
	if parentID == nil {
		return rootKey
	}
	return *parentID
}
