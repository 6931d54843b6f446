// Package merkle builds the audit-batch merkle trees committed on-chain:
// binary sha256 trees over hex-encoded entry hashes, with the last leaf
// duplicated on odd levels.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// EmptyRoot is the root of a tree with no leaves.
var EmptyRoot = strings.Repeat("0", 64)

// Root computes the merkle root of a list of hex-encoded sha256 hashes.
// A single leaf is its own root.
func Root(hashes []string) (string, error) {
	if len(hashes) == 0 {
		return EmptyRoot, nil
	}
	if len(hashes) == 1 {
		return hashes[0], nil
	}

	level, err := decodeLeaves(hashes)
	if err != nil {
		return "", err
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			combined := sha256.Sum256(append(append([]byte{}, left...), right...))
			next = append(next, combined[:])
		}
		level = next
	}
	return hex.EncodeToString(level[0]), nil
}

// RootBytes returns the root as the 32-byte array the program stores.
func RootBytes(hashes []string) ([32]byte, error) {
	var out [32]byte
	root, err := Root(hashes)
	if err != nil {
		return out, err
	}
	raw, err := hex.DecodeString(root)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

// ProofNode is one sibling hash on the path from a leaf to the root.
type ProofNode struct {
	Position string `json:"position"` // "left" or "right"
	Hash     string `json:"hash"`
}

// Proof computes the inclusion proof for the leaf at index.
func Proof(hashes []string, index int) ([]ProofNode, error) {
	if len(hashes) == 0 || index < 0 || index >= len(hashes) {
		return nil, fmt.Errorf("proof index %d out of range for %d leaves", index, len(hashes))
	}

	level, err := decodeLeaves(hashes)
	if err != nil {
		return nil, err
	}

	var proof []ProofNode
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling >= len(level) {
			// odd level: the node is paired with itself
			sibling = index
		}
		position := "right"
		if sibling < index {
			position = "left"
		}
		proof = append(proof, ProofNode{Position: position, Hash: hex.EncodeToString(level[sibling])})

		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			combined := sha256.Sum256(append(append([]byte{}, left...), right...))
			next = append(next, combined[:])
		}
		level = next
		index /= 2
	}
	return proof, nil
}

// Verify checks that entryHash is included in a tree with the given root.
func Verify(entryHash string, proof []ProofNode, root string) bool {
	current, err := hex.DecodeString(entryHash)
	if err != nil {
		return false
	}
	for _, node := range proof {
		sibling, err := hex.DecodeString(node.Hash)
		if err != nil {
			return false
		}
		var combined [32]byte
		if node.Position == "left" {
			combined = sha256.Sum256(append(append([]byte{}, sibling...), current...))
		} else {
			combined = sha256.Sum256(append(append([]byte{}, current...), sibling...))
		}
		current = combined[:]
	}
	return hex.EncodeToString(current) == root
}

func decodeLeaves(hashes []string) ([][]byte, error) {
	out := make([][]byte, len(hashes))
	for i, h := range hashes {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("leaf %d is not valid hex: %w", i, err)
		}
		out[i] = raw
	}
	return out, nil
}
