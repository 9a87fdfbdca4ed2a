// Package partition divides a manifest's index space into contiguous,
// disjoint ranges so independent worker processes can each own one slice.
package partition

import (
	"errors"
	"fmt"
)

// ErrInvalidPartition indicates bad partition arithmetic inputs. It is a
// configuration error and always surfaces at startup, never mid-run.
var ErrInvalidPartition = errors.New("invalid partition")

// Range is a half-open [Start, End) slice of the manifest index space.
type Range struct {
	Index int
	Start int
	End   int
}

// Len returns the number of items in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// String renders the range for logs and CLI output.
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// ForIndex computes the range owned by one partition out of partitionCount.
// Each partition holds ceil(totalItems/partitionCount) items; the final
// partition absorbs the remainder so the union of all ranges covers
// [0, totalItems) exactly once.
func ForIndex(totalItems, partitionCount, partitionIndex int) (Range, error) {
	if totalItems < 0 {
		return Range{}, fmt.Errorf("%w: total items %d is negative", ErrInvalidPartition, totalItems)
	}
	if partitionCount <= 0 {
		return Range{}, fmt.Errorf("%w: partition count %d must be positive", ErrInvalidPartition, partitionCount)
	}
	if partitionIndex < 0 || partitionIndex >= partitionCount {
		return Range{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidPartition, partitionIndex, partitionCount)
	}

	itemsPerPartition := (totalItems + partitionCount - 1) / partitionCount
	start := partitionIndex * itemsPerPartition
	end := start + itemsPerPartition
	if partitionIndex == partitionCount-1 {
		end = totalItems
	}
	// Small totals can leave trailing partitions past the end; clamp to an
	// empty range rather than reporting an inverted one.
	if start > totalItems {
		start = totalItems
	}
	if end < start {
		end = start
	}
	return Range{Index: partitionIndex, Start: start, End: end}, nil
}

// Plan computes every partition's range for a fixed partition count.
func Plan(totalItems, partitionCount int) ([]Range, error) {
	ranges := make([]Range, 0, partitionCount)
	for i := 0; i < partitionCount; i++ {
		r, err := ForIndex(totalItems, partitionCount, i)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// FixedSize divides totalItems into chunks of at most chunkSize items, the
// dual formulation used when the scheduler fixes the chunk size and the
// partition count falls out of the division.
func FixedSize(totalItems, chunkSize int) ([]Range, error) {
	if totalItems < 0 {
		return nil, fmt.Errorf("%w: total items %d is negative", ErrInvalidPartition, totalItems)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidPartition, chunkSize)
	}
	if totalItems == 0 {
		return nil, nil
	}
	count := (totalItems + chunkSize - 1) / chunkSize
	ranges := make([]Range, 0, count)
	for i := 0; i < count; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > totalItems {
			end = totalItems
		}
		ranges = append(ranges, Range{Index: i, Start: start, End: end})
	}
	return ranges, nil
}
