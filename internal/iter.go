// Package internal holds helpers shared by the aqa32 packages.
package internal

import (
	"iter"
)

// IterSeq2Concat yields every pair of each sequence in order.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, val := range seq {
				if !yield(key, val) {
					return
				}
			}
		}
	}
}
