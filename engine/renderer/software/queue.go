package software

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// Submission is the log entry of one executed command buffer.
type Submission struct {
	// Label is the command buffer label.
	Label string

	// Passes lists the encoded passes in execution order.
	Passes []PassRecord

	// Presented is the number of drawables presented after execution.
	Presented int

	// Err is the execution error, if any.
	Err error
}

// PassRecord describes one encoded pass as an ordered list of commands.
type PassRecord struct {
	// Kind is "compute" or "render".
	Kind string

	// Commands are human readable encodings of every command, e.g. "setPipeline add".
	Commands []string
}

// queue executes committed command buffers one after another in commit order.
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

	return &commandBuffer{
		dev:   q.dev,
		q:     q,
		label: label,
		done:  make(chan struct{}),
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

// enqueue chains cb behind the previously committed command buffer.
func (q *queue) enqueue(cb *commandBuffer) {
	q.mu.Lock()
	prev := q.tail
	q.tail = cb.done
	q.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		cb.execute()
	}()
}

// pass is one recorded pass ready for execution.
type pass interface {
	record() PassRecord
	execute(dev *device) error
}

// commandBuffer is a software command buffer.
type commandBuffer struct {
	dev   *device
	q     *queue
	label string

	mu        sync.Mutex
	passes    []pass
	open      bool
	drawables []*drawable
	status    renderer.CommandBufferStatus
	encodeErr error
	err       error
	done      chan struct{}
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

// endPass closes the open encoder, appending p when encoding succeeded.
func (c *commandBuffer) endPass(p pass, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	if err != nil {
		if c.encodeErr == nil {
			c.encodeErr = err
		}
		return
	}
	c.passes = append(c.passes, p)
}

func (c *commandBuffer) BeginComputePass() (renderer.ComputePassEncoder, error) {
	if err := c.beginPass(); err != nil {
		return nil, err
	}
	return &computeEncoder{bindingSet: bindingSet{cb: c}, slots: make(map[int]binding)}, nil
}

func (c *commandBuffer) BeginRenderPass(desc renderer.RenderPassDescriptor) (renderer.RenderPassEncoder, error) {
	target, ok := desc.Color.Texture.(*texture)
	if !ok || target.dev != c.dev {
		return nil, fmt.Errorf("render pass %q color attachment: %w", desc.Label, renderer.ErrForeignDevice)
	}
	var resolve *texture
	if desc.Color.ResolveTexture != nil {
		resolve, ok = desc.Color.ResolveTexture.(*texture)
		if !ok || resolve.dev != c.dev {
			return nil, fmt.Errorf("render pass %q resolve attachment: %w", desc.Label, renderer.ErrForeignDevice)
		}
		if resolve.width != target.width || resolve.height != target.height {
			return nil, fmt.Errorf("render pass %q: resolve attachment size differs from color attachment", desc.Label)
		}
	}
	if !target.usage.Has(renderer.TextureUsageRenderTarget) {
		return nil, fmt.Errorf("render pass %q: texture %q is not a render target", desc.Label, target.label)
	}
	if err := c.beginPass(); err != nil {
		return nil, err
	}
	return &renderEncoder{
		bindingSet: bindingSet{cb: c},
		pass:       &renderPass{color: desc.Color, target: target, resolve: resolve},
		vertex:     make(map[int]binding),
		fragment:   make(map[int]binding),
		viewport:   renderer.Viewport{Width: float64(target.width), Height: float64(target.height), ZFar: 1},
	}, nil
}

func (c *commandBuffer) Present(d renderer.Drawable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sd, ok := d.(*drawable)
	if !ok || sd.surface.dev != c.dev {
		if c.encodeErr == nil {
			c.encodeErr = fmt.Errorf("present: %w", renderer.ErrForeignDevice)
		}
		return
	}
	c.drawables = append(c.drawables, sd)
}

func (c *commandBuffer) Commit() error {
	c.mu.Lock()
	if c.status != renderer.CommandBufferStatusNotEnqueued {
		c.mu.Unlock()
		return fmt.Errorf("command buffer %q already committed", c.label)
	}
	if c.open {
		c.mu.Unlock()
		return fmt.Errorf("command buffer %q has an open encoder", c.label)
	}
	if c.encodeErr != nil {
		err := c.encodeErr
		c.mu.Unlock()
		return err
	}
	c.status = renderer.CommandBufferStatusCommitted
	c.mu.Unlock()

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

// execute runs every pass in order, presents the drawables and logs the submission.
func (c *commandBuffer) execute() {
	defer close(c.done)

	sub := Submission{Label: c.label, Passes: make([]PassRecord, 0, len(c.passes))}
	var err error
	for i, p := range c.passes {
		sub.Passes = append(sub.Passes, p.record())
		if err == nil {
			if perr := p.execute(c.dev); perr != nil {
				err = fmt.Errorf("pass %d: %w", i, perr)
			}
		}
	}

	if err == nil {
		for _, d := range c.drawables {
			d.present()
			sub.Presented++
		}
	}
	sub.Err = err

	c.mu.Lock()
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
	c.dev.logSubmission(sub)
}
