package software

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// dispatch is one recorded DispatchThreadgroups call with its bindings.
type dispatch struct {
	pipeline        *computePipeline
	slots           map[int]binding
	groups          renderer.Size
	threadsPerGroup renderer.Size
}

// computePass is a recorded compute pass.
type computePass struct {
	dispatches []dispatch
	commands   []string
}

func (p *computePass) record() PassRecord {
	return PassRecord{Kind: "compute", Commands: p.commands}
}

func (p *computePass) execute(dev *device) error {
	for i, d := range p.dispatches {
		if err := d.execute(dev); err != nil {
			return fmt.Errorf("dispatch %d: %w", i, err)
		}
	}
	return nil
}

// argsFor resolves the bound slots. A buffer released or shrunk since encoding is reported as an
// error.
func argsFor(slots map[int]binding) (args *Args, err error) {
	defer func() {
		if r := recover(); r != nil {
			args, err = nil, fmt.Errorf("resolve bindings: %v", r)
		}
	}()
	args = &Args{buffers: make(map[int][]byte), textures: make(map[int]*texture)}
	for i, b := range slots {
		if b.tex != nil {
			args.textures[i] = b.tex
			continue
		}
		data, err := b.data()
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		args.buffers[i] = data
	}
	return args, nil
}

// execute runs every thread group on the device worker pool and waits for all of them.
func (d dispatch) execute(dev *device) error {
	args, err := argsFor(d.slots)
	if err != nil {
		return err
	}
	tpg := [3]uint32{d.threadsPerGroup.Width, d.threadsPerGroup.Height, d.threadsPerGroup.Depth}
	kernel := d.pipeline.kernel

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	onPanic := func(r any) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = fmt.Errorf("kernel %q panicked: %v", d.pipeline.function.Name, r)
		}
	}

	for gz := uint32(0); gz < d.groups.Depth; gz++ {
		for gy := uint32(0); gy < d.groups.Height; gy++ {
			for gx := uint32(0); gx < d.groups.Width; gx++ {
				group := [3]uint32{gx, gy, gz}
				dev.submit(&wg, func() {
					runGroup(kernel, args, group, tpg)
				}, onPanic)
			}
		}
	}
	wg.Wait()
	return firstErr
}

func runGroup(kernel Kernel, args *Args, group, tpg [3]uint32) {
	tid := ThreadPosition{Group: group, GroupSize: tpg}
	for lz := uint32(0); lz < tpg[2]; lz++ {
		for ly := uint32(0); ly < tpg[1]; ly++ {
			for lx := uint32(0); lx < tpg[0]; lx++ {
				tid.Local = [3]uint32{lx, ly, lz}
				tid.Global = [3]uint32{
					group[0]*tpg[0] + lx,
					group[1]*tpg[1] + ly,
					group[2]*tpg[2] + lz,
				}
				kernel(tid, args)
			}
		}
	}
}
