package webgpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// queue submits command buffers to the device queue. Completion is observed in commit order.
type queue struct {
	dev *device

	mu    sync.Mutex
	tail  chan struct{}
	count int
}

var _ renderer.Queue = &queue{}

func (q *queue) Device() renderer.Device {
	return q.dev
}

func (q *queue) CommandBuffer() (renderer.CommandBuffer, error) {
	if err := q.dev.checkAlive(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.count++
	label := fmt.Sprintf("command-buffer-%d", q.count)
	q.mu.Unlock()

	enc, err := q.dev.raw.CreateCommandEncoder(nil)
	if err != nil {
		return nil, &renderer.SubmissionError{Label: label, Op: "create command encoder", Err: err}
	}
	return &commandBuffer{
		dev:    q.dev,
		q:      q,
		label:  label,
		enc:    enc,
		shared: make(map[*buffer]bool),
		done:   make(chan struct{}),
	}, nil
}

func (q *queue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	tail := q.tail
	q.mu.Unlock()
	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue waits for the previous command buffer before observing cb's completion, so completion
// handlers run in commit order.
func (q *queue) enqueue(cb *commandBuffer) {
	q.mu.Lock()
	prev := q.tail
	q.tail = cb.done
	q.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		cb.complete()
	}()
}

// commandBuffer wraps one wgpu command encoder.
type commandBuffer struct {
	dev   *device
	q     *queue
	label string
	enc   *wgpu.CommandEncoder

	mu        sync.Mutex
	open      bool
	status    renderer.CommandBufferStatus
	encodeErr error
	err       error
	done      chan struct{}

	// shared maps every shared buffer bound by this command buffer to whether a shader may write it.
	shared     map[*buffer]bool
	readbacks  []*readback
	transients []*wgpu.Buffer
	bindGroups []*wgpu.BindGroup
	drawables  []*drawable
}

var _ renderer.CommandBuffer = &commandBuffer{}

func (c *commandBuffer) Label() string {
	return c.label
}

func (c *commandBuffer) beginPass() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != renderer.CommandBufferStatusNotEnqueued {
		return fmt.Errorf("command buffer %q already committed", c.label)
	}
	if c.open {
		return fmt.Errorf("command buffer %q has an open encoder", c.label)
	}
	c.open = true
	return nil
}

func (c *commandBuffer) endPass(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	if err != nil && c.encodeErr == nil {
		c.encodeErr = err
	}
}

// use records a shared buffer bound by a pass.
func (c *commandBuffer) use(b *buffer, writable bool) {
	if !b.shared() {
		return
	}
	c.shared[b] = c.shared[b] || writable
}

// transient uploads an inline blob into a buffer that lives until the command buffer completes.
func (c *commandBuffer) transient(name string, data []byte) (*wgpu.Buffer, error) {
	raw, err := c.dev.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name + " bytes",
		Size:  alignedSize(len(data)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("inline bytes %q: %w", name, err)
	}
	if len(data) > 0 {
		c.dev.queue.WriteBuffer(raw, 0, padded(data))
	}
	c.transients = append(c.transients, raw)
	return raw, nil
}

func (c *commandBuffer) BeginComputePass() (renderer.ComputePassEncoder, error) {
	if err := c.beginPass(); err != nil {
		return nil, err
	}
	return &computeEncoder{
		bindingSet: bindingSet{cb: c},
		raw:        c.enc.BeginComputePass(nil),
		slots:      make(map[int]slot),
	}, nil
}

func (c *commandBuffer) BeginRenderPass(desc renderer.RenderPassDescriptor) (renderer.RenderPassEncoder, error) {
	target, ok := desc.Color.Texture.(*texture)
	if !ok || target.dev != c.dev {
		return nil, fmt.Errorf("render pass %q color attachment: %w", desc.Label, renderer.ErrForeignDevice)
	}
	var resolveView *wgpu.TextureView
	if desc.Color.ResolveTexture != nil {
		resolve, ok := desc.Color.ResolveTexture.(*texture)
		if !ok || resolve.dev != c.dev {
			return nil, fmt.Errorf("render pass %q resolve attachment: %w", desc.Label, renderer.ErrForeignDevice)
		}
		if resolve.width != target.width || resolve.height != target.height {
			return nil, fmt.Errorf("render pass %q: resolve attachment size differs from color attachment", desc.Label)
		}
		resolveView = resolve.view
	}
	if !target.usage.Has(renderer.TextureUsageRenderTarget) {
		return nil, fmt.Errorf("render pass %q: texture %q is not a render target", desc.Label, target.label)
	}
	if err := c.beginPass(); err != nil {
		return nil, err
	}

	cc := desc.Color.Clear
	raw := c.enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          target.view,
				ResolveTarget: resolveView,
				LoadOp:        loadOp(desc.Color.Load),
				StoreOp:       storeOp(desc.Color.Store),
				ClearValue:    wgpu.Color{R: cc.R, G: cc.G, B: cc.B, A: cc.A},
			},
		},
	})
	return &renderEncoder{
		bindingSet: bindingSet{cb: c},
		raw:        raw,
		target:     target,
		vertex:     make(map[int]slot),
		fragment:   make(map[int]slot),
	}, nil
}

func (c *commandBuffer) Present(d renderer.Drawable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wd, ok := d.(*drawable)
	if !ok || wd.surface.dev != c.dev {
		if c.encodeErr == nil {
			c.encodeErr = fmt.Errorf("present: %w", renderer.ErrForeignDevice)
		}
		return
	}
	c.drawables = append(c.drawables, wd)
}

// Commit uploads the shadows of bound shared buffers, appends the readback copies of writable ones,
// submits the encoder and presents the scheduled drawables.
func (c *commandBuffer) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != renderer.CommandBufferStatusNotEnqueued {
		return fmt.Errorf("command buffer %q already committed", c.label)
	}
	if c.open {
		return fmt.Errorf("command buffer %q has an open encoder", c.label)
	}
	if c.encodeErr != nil {
		c.releaseResources()
		return c.encodeErr
	}

	for b, writable := range c.shared {
		b.upload()
		if !writable {
			continue
		}
		rb, err := newReadback(c.dev, b)
		if err != nil {
			c.releaseResources()
			return &renderer.SubmissionError{Label: c.label, Op: "readback", Err: err}
		}
		rb.encode(c.enc)
		c.readbacks = append(c.readbacks, rb)
	}

	cmd, err := c.enc.Finish(nil)
	if err != nil {
		c.releaseResources()
		return &renderer.SubmissionError{Label: c.label, Op: "finish", Err: err}
	}
	c.dev.queue.Submit(cmd)
	cmd.Release()
	c.enc.Release()
	c.enc = nil

	for _, d := range c.drawables {
		d.present()
	}
	c.status = renderer.CommandBufferStatusCommitted
	c.q.enqueue(c)
	return nil
}

func (c *commandBuffer) WaitUntilCompleted(ctx context.Context) error {
	if c.Status() == renderer.CommandBufferStatusNotEnqueued {
		return errors.New("command buffer not committed")
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *commandBuffer) Status() renderer.CommandBufferStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// complete waits for the device, refreshes the shadows of written shared buffers and frees the
// per-submission resources.
func (c *commandBuffer) complete() {
	defer close(c.done)

	c.dev.wait()
	var errs []error
	for _, rb := range c.readbacks {
		errs = append(errs, rb.finish(c.dev))
	}
	err := errors.Join(errs...)

	c.mu.Lock()
	c.readbacks = nil
	c.releaseResources()
	c.err = err
	if err != nil {
		c.status = renderer.CommandBufferStatusError
	} else {
		c.status = renderer.CommandBufferStatusCompleted
	}
	c.mu.Unlock()

	if err != nil {
		common.Logger().Error("command buffer failed", "label", c.label, "error", err)
	}
}

// releaseResources frees the bind groups and transient buffers. The caller holds c.mu.
func (c *commandBuffer) releaseResources() {
	for _, bg := range c.bindGroups {
		bg.Release()
	}
	c.bindGroups = nil
	for _, b := range c.transients {
		b.Release()
	}
	c.transients = nil
	for _, rb := range c.readbacks {
		rb.staging.Release()
	}
	c.readbacks = nil
	if c.enc != nil {
		c.enc.Release()
		c.enc = nil
	}
}
