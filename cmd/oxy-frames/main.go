// Command oxy-frames runs one of the bundled frame-executor samples on the software or the WebGPU
// device.
//
//	oxy-frames -list
//	oxy-frames -sample adder
//	oxy-frames -sample triangle -backend webgpu
//	oxy-frames -sample offscreen -frames 3
//	oxy-frames -config run.toml -write-config run.toml
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
