// Package chbuild invokes the external CH constructor binary
// (cmd/multi-ch-constructor) as a child process between balancing
// iterations, per spec.md §5: "The external CH builder is invoked as a
// child process, synchronously, on the main thread between iterations."
package chbuild

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Options configures one CH-build invocation.
type Options struct {
	// BinaryPath is the path to the multi-ch-constructor executable;
	// defaults to "multi-ch-constructor" (resolved via PATH) when empty.
	BinaryPath string
	InputPath  string
	OutputPath string
	Dim        int
	// Acc is the edge-difference priority recompute accuracy (0,1]; the
	// constructor recomputes a node's priority exactly every 1/Acc
	// contractions and lazily otherwise.
	Acc float64
}

// Run invokes the CH constructor synchronously and returns its combined
// stdout/stderr on failure, wrapped in the returned error, so a balancing
// iteration's failure is diagnosable without re-running by hand.
func Run(ctx context.Context, opts Options) error {
	bin := opts.BinaryPath
	if bin == "" {
		bin = "multi-ch-constructor"
	}
	if opts.Dim <= 0 {
		return fmt.Errorf("chbuild: dim must be positive, got %d", opts.Dim)
	}
	acc := opts.Acc
	if acc <= 0 || acc > 1 {
		acc = 1
	}

	args := []string{
		"build",
		"--dim", fmt.Sprint(opts.Dim),
		"--acc", fmt.Sprint(acc),
		"--in", opts.InputPath,
		"--out", opts.OutputPath,
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("chbuild: %s %v: %w\n%s", bin, args, err, out.String())
	}
	return nil
}
