package huffman

import (
	"container/heap"
)

type huffmanTree interface {
	getFrequency() int
	getId() int
}
type huffmanLeaf struct {
	freq, id int
	symbol   int
}
type huffmanNode struct {
	freq, id    int
	left, right huffmanTree
}

type huffmanHeap []huffmanTree

func (hub *huffmanHeap) Push(item any) {
	*hub = append(*hub, item.(huffmanTree))
}

func (hub *huffmanHeap) Pop() any {
	popped := (*hub)[len(*hub)-1]
	(*hub) = (*hub)[:len(*hub)-1]
	return popped
}

func (hub huffmanHeap) Len() int {
	return len(hub)
}

func (hub huffmanHeap) Less(i, j int) bool {
	if hub[i].getFrequency() != hub[j].getFrequency() {
		return hub[i].getFrequency() < hub[j].getFrequency()
	}
	return hub[i].getId() < hub[j].getId()
}

func (hub huffmanHeap) Swap(i, j int) {
	hub[i], hub[j] = hub[j], hub[i]
}

func (leaf huffmanLeaf) getId() int {
	return leaf.id
}

func (leaf huffmanLeaf) getFrequency() int {
	return leaf.freq
}

func (node huffmanNode) getFrequency() int {
	return node.freq
}

func (node huffmanNode) getId() int {
	return node.id
}

// LengthsFromFrequencies returns a code length per symbol such that no code
// is longer than maxLength. Symbols with zero frequency get length 0; a lone
// used symbol gets length 1.
func LengthsFromFrequencies(freq []int, maxLength int) []uint8 {
	lengths := make([]uint8, len(freq))
	used := 0
	for _, f := range freq {
		if f > 0 {
			used++
		}
	}
	switch used {
	case 0:
		return lengths
	case 1:
		for symbol, f := range freq {
			if f > 0 {
				lengths[symbol] = 1
			}
		}
		return lengths
	}

	scaled := append([]int(nil), freq...)
	for {
		tree := buildTree(scaled)
		clear(lengths)
		if depth := assignDepths(tree, lengths, 0); depth <= maxLength {
			return lengths
		}
		// Flatten the distribution and try again; with all weights equal the
		// tree is balanced, so this terminates for any alphabet that fits.
		for symbol, f := range scaled {
			if f > 0 {
				scaled[symbol] = (f >> 1) | 1
			}
		}
	}
}

func buildTree(symbolFreq []int) huffmanTree {
	var treehub huffmanHeap
	monoId := 0
	for symbol, freq := range symbolFreq {
		if freq == 0 {
			continue
		}
		treehub = append(treehub, huffmanLeaf{
			freq:   freq,
			symbol: symbol,
			id:     monoId,
		})
		monoId++
	}
	heap.Init(&treehub)
	for treehub.Len() > 1 {
		x := heap.Pop(&treehub).(huffmanTree)
		y := heap.Pop(&treehub).(huffmanTree)
		heap.Push(&treehub, huffmanNode{
			freq:  x.getFrequency() + y.getFrequency(),
			left:  x,
			right: y,
			id:    monoId,
		})
		monoId++
	}
	return heap.Pop(&treehub).(huffmanTree)
}

// assignDepths records each leaf's depth in lengths and returns the deepest.
func assignDepths(tree huffmanTree, lengths []uint8, depth int) int {
	switch i := tree.(type) {
	case huffmanLeaf:
		lengths[i.symbol] = uint8(min(depth, 255))
		return depth
	case huffmanNode:
		return max(assignDepths(i.left, lengths, depth+1), assignDepths(i.right, lengths, depth+1))
	}
	return depth
}
