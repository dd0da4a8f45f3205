package executor

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffer(t *testing.T, dev renderer.Device, label string, values []float32, mode renderer.StorageMode) renderer.Buffer {
	t.Helper()
	buf, err := dev.NewBuffer(renderer.BufferDescriptor{
		Label:       label,
		Length:      len(values) * 4,
		StorageMode: mode,
		Contents:    common.SliceToBytes(values),
	})
	require.NoError(t, err)
	return buf
}

func TestVerifyResultCollectsAllMismatches(t *testing.T) {
	dev := newDevice(t)
	a := newBuffer(t, dev, "a", []float32{1, 2, 3, 4}, renderer.StorageModeShared)
	b := newBuffer(t, dev, "b", []float32{4, 3, 2, 1}, renderer.StorageModeShared)
	result := newBuffer(t, dev, "result", []float32{5, 0, 5, 9}, renderer.StorageModeShared)

	mismatches, err := VerifyResult(a, b, result, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, []VerificationMismatch{
		{Index: 1, Expected: 5, Actual: 0},
		{Index: 3, Expected: 5, Actual: 9},
	}, mismatches)

	err = MismatchError(mismatches)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Mismatches, 2)
	assert.Contains(t, err.Error(), "2 mismatches")
	assert.Contains(t, err.Error(), "index 3: expected 5, got 9")

	assert.NoError(t, MismatchError(nil))
}

func TestVerifyResultRelation(t *testing.T) {
	dev := newDevice(t)
	a := newBuffer(t, dev, "a", []float32{2, 3}, renderer.StorageModeShared)
	b := newBuffer(t, dev, "b", []float32{4, 5}, renderer.StorageModeShared)
	result := newBuffer(t, dev, "result", []float32{8, 15}, renderer.StorageModeShared)

	mismatches, err := VerifyResult(a, b, result, 2, func(x, y float32) float32 { return x * y })
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	mismatches, err = VerifyResult(a, b, result, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestVerifyResultErrors(t *testing.T) {
	dev := newDevice(t)
	a := newBuffer(t, dev, "a", []float32{1, 2}, renderer.StorageModeShared)
	private := newBuffer(t, dev, "private", []float32{1, 2}, renderer.StorageModePrivate)

	_, err := VerifyResult(a, a, private, 2, nil)
	assert.ErrorContains(t, err, "not CPU-visible")

	_, err = VerifyResult(a, a, a, 3, nil)
	assert.ErrorContains(t, err, "exceed")

	_, err = VerifyResult(a, nil, a, 1, nil)
	assert.Error(t, err)
}

func TestVerificationErrorTruncates(t *testing.T) {
	var ms []VerificationMismatch
	for i := 0; i < 10; i++ {
		ms = append(ms, VerificationMismatch{Index: i, Expected: 1})
	}
	assert.Contains(t, MismatchError(ms).Error(), "and 2 more")
}
