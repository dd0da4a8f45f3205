package executor

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// VerificationMismatch is one element whose result differs from the expected value.
type VerificationMismatch struct {
	Index    int
	Expected float32
	Actual   float32
}

func (m VerificationMismatch) String() string {
	return fmt.Sprintf("index %d: expected %g, got %g", m.Index, m.Expected, m.Actual)
}

// VerificationError wraps a non-empty mismatch list.
type VerificationError struct {
	Mismatches []VerificationMismatch
}

func (e *VerificationError) Error() string {
	const shown = 8
	var sb strings.Builder
	fmt.Fprintf(&sb, "verification failed: %d mismatches", len(e.Mismatches))
	for i, m := range e.Mismatches {
		if i == shown {
			fmt.Fprintf(&sb, "; and %d more", len(e.Mismatches)-shown)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(m.String())
	}
	return sb.String()
}

// MismatchError returns a *VerificationError for a non-empty list and nil otherwise.
func MismatchError(mismatches []VerificationMismatch) error {
	if len(mismatches) == 0 {
		return nil
	}
	return &VerificationError{Mismatches: mismatches}
}

// Relation computes the expected result element from the two inputs.
type Relation func(a, b float32) float32

// Add is the default relation.
func Add(a, b float32) float32 { return a + b }

// VerifyResult reads three CPU-visible float32 buffers and compares result[i] against
// relation(a[i], b[i]) for every i below count. Every mismatch is collected.
//
// Parameters:
//   - a: the first input buffer
//   - b: the second input buffer
//   - result: the output buffer
//   - count: the number of elements to check
//   - relation: the expected relation, Add when nil
//
// Returns:
//   - []VerificationMismatch: every mismatching element, empty on success
//   - error: error if a buffer is not CPU-visible or shorter than count elements
func VerifyResult(a, b, result renderer.Buffer, count int, relation Relation) ([]VerificationMismatch, error) {
	if relation == nil {
		relation = Add
	}
	var data [3][]byte
	for i, buf := range []renderer.Buffer{a, b, result} {
		if buf == nil {
			return nil, fmt.Errorf("verify: nil buffer")
		}
		contents := buf.Contents()
		if contents == nil {
			return nil, fmt.Errorf("verify: buffer %q is not CPU-visible", buf.Label())
		}
		if count < 0 || count*4 > len(contents) {
			return nil, fmt.Errorf("verify: %d elements exceed buffer %q of %d bytes", count, buf.Label(), len(contents))
		}
		data[i] = contents
	}

	mismatches := make([]VerificationMismatch, 0)
	for i := 0; i < count; i++ {
		want := relation(common.Float32At(data[0], i), common.Float32At(data[1], i))
		got := common.Float32At(data[2], i)
		if got != want {
			mismatches = append(mismatches, VerificationMismatch{Index: i, Expected: want, Actual: got})
		}
	}
	return mismatches, nil
}
