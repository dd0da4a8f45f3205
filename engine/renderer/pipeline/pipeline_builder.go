package pipeline

import "github.com/Carmen-Shannon/oxy-frames/engine/renderer"

// PipelineBuilderOption is a functional option used to configure a Descriptor during construction.
type PipelineBuilderOption func(*descriptor)

// WithLabel sets the debug label of the pipeline.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label for this pipeline
func WithLabel(label string) PipelineBuilderOption {
	return func(d *descriptor) {
		d.label = label
	}
}

// WithColorFormat sets the color attachment format of a render pipeline.
//
// Parameters:
//   - format: the pixel format render passes using this pipeline draw into
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format for this pipeline
func WithColorFormat(format renderer.PixelFormat) PipelineBuilderOption {
	return func(d *descriptor) {
		d.colorFormat = format
	}
}

// WithSampleCount sets the rasterisation sample count of a render pipeline.
//
// Parameters:
//   - count: the sample count, matching the render target
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(d *descriptor) {
		d.sampleCount = count
	}
}

// WithBlendEnabled sets whether source-over alpha blending is enabled for a render pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(d *descriptor) {
		d.blendEnabled = enabled
	}
}

// WithMaxThreadsPerGroup caps the thread group size of a compute pipeline below the device limit.
//
// Parameters:
//   - n: the maximum total threads per group
//
// Returns:
//   - PipelineBuilderOption: a function that sets the thread cap for this pipeline
func WithMaxThreadsPerGroup(n uint32) PipelineBuilderOption {
	return func(d *descriptor) {
		d.maxThreadsPerGroup = n
	}
}
