package storage

import "fmt"

// DefaultChunkSize bounds the number of accounts created per provisioning step.
const DefaultChunkSize = 10_000

// ProvisionedAccountID returns the id of the i-th pre-provisioned account.
func ProvisionedAccountID(i int) string {
	return fmt.Sprintf("ACC-%08d", i)
}

// Chunk is a half-open range [Start, End) of provisioned account indexes.
type Chunk struct {
	Start int
	End   int
}

// Chunks splits [0, n) into ranges of at most size elements.
func Chunks(n, size int) []Chunk {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([]Chunk, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		chunks = append(chunks, Chunk{Start: start, End: min(start+size, n)})
	}
	return chunks
}
