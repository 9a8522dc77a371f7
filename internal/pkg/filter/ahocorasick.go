package filter

import (
	"sync"
)

// ahoCorasickNode represents a node in the Aho-Corasick automaton.
type ahoCorasickNode struct {
	children map[byte]*ahoCorasickNode
	failLink *ahoCorasickNode
	output   []string
}

// AhoCorasick finds every keyword occurring in a text in a single pass.
// Matching is exact and byte-wise: no case folding or normalization.
type AhoCorasick struct {
	root     *ahoCorasickNode
	patterns int
	mu       sync.RWMutex
}

// NewAhoCorasick creates a new Aho-Corasick automaton.
func NewAhoCorasick() *AhoCorasick {
	return &AhoCorasick{
		root: newAhoCorasickNode(),
	}
}

func newAhoCorasickNode() *ahoCorasickNode {
	return &ahoCorasickNode{
		children: make(map[byte]*ahoCorasickNode),
	}
}

// Build replaces the automaton with one over patterns.
// Empty and duplicate patterns are ignored.
func (ac *AhoCorasick) Build(patterns []string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	ac.root = newAhoCorasickNode()
	ac.patterns = 0

	seen := make(map[string]struct{}, len(patterns))
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if _, ok := seen[pattern]; ok {
			continue
		}
		seen[pattern] = struct{}{}
		ac.addPattern(pattern)
	}

	ac.buildFailLinks()
}

// Len returns the number of distinct patterns in the automaton.
func (ac *AhoCorasick) Len() int {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.patterns
}

func (ac *AhoCorasick) addPattern(pattern string) {
	node := ac.root
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if _, ok := node.children[c]; !ok {
			node.children[c] = newAhoCorasickNode()
		}
		node = node.children[c]
	}
	node.output = append(node.output, pattern)
	ac.patterns++
}

// buildFailLinks builds the fail links breadth first.
func (ac *AhoCorasick) buildFailLinks() {
	queue := make([]*ahoCorasickNode, 0)

	for _, child := range ac.root.children {
		child.failLink = ac.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for c, child := range current.children {
			queue = append(queue, child)

			// longest proper suffix that is also a prefix
			failNode := current.failLink
			for failNode != nil && failNode.children[c] == nil {
				failNode = failNode.failLink
			}

			if failNode == nil {
				child.failLink = ac.root
			} else {
				child.failLink = failNode.children[c]
				child.output = append(child.output, child.failLink.output...)
			}
		}
	}
}

func (ac *AhoCorasick) step(node *ahoCorasickNode, c byte) *ahoCorasickNode {
	for node != nil && node.children[c] == nil {
		node = node.failLink
	}
	if node == nil {
		return ac.root
	}
	return node.children[c]
}

// Contained returns the set of patterns occurring at least once in text.
func (ac *AhoCorasick) Contained(text string) map[string]struct{} {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	found := make(map[string]struct{})
	node := ac.root
	for i := 0; i < len(text); i++ {
		node = ac.step(node, text[i])
		for _, pattern := range node.output {
			found[pattern] = struct{}{}
		}
	}
	return found
}
