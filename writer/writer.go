// Package writer delivers a rendered document to its output targets.
//
// Every target runs the init, write and close steps. A failed step releases
// whatever the earlier steps opened, and one target's failure never stops
// the others.
package writer

import (
	"context"
	"errors"
	"io"

	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/docerrors"
)

// Writer is a single output destination.
type Writer interface {
	Init(ctx context.Context) error
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Aborter is implemented by writers that can discard a partial write. When
// a step fails, Abort is called instead of Close.
type Aborter interface {
	Abort() error
}

// Target binds a writer to the format it receives.
type Target struct {
	// Name identifies the target in errors, e.g. the file path.
	Name   string
	Format string
	Writer Writer
}

// Targets builds one target per configured output. Outputs with path "-"
// write to stdout.
func Targets(outputs []config.Output, stdout io.Writer) []Target {
	targets := make([]Target, 0, len(outputs))
	for _, out := range outputs {
		t := Target{Name: out.Path, Format: out.Format}
		if out.Path == config.Stdout {
			t.Name = "stdout"
			t.Writer = NewStream(stdout)
		} else {
			t.Writer = NewFile(out.Path)
		}
		targets = append(targets, t)
	}
	return targets
}

// Write runs the init, write and close steps of w for data.
func Write(ctx context.Context, w Writer, data []byte) (docerrors.WriteOp, error) {
	if err := ctx.Err(); err != nil {
		return docerrors.OpInit, err
	}
	if err := w.Init(ctx); err != nil {
		abort(w)
		return docerrors.OpInit, err
	}
	if err := w.Write(ctx, data); err != nil {
		abort(w)
		return docerrors.OpWrite, err
	}
	if err := w.Close(); err != nil {
		return docerrors.OpClose, err
	}
	return "", nil
}

func abort(w Writer) {
	if a, ok := w.(Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}

// Result is the outcome of Run.
type Result struct {
	// Written lists the names of the targets that succeeded, in order.
	Written  []string
	Failures []*docerrors.WriteError
}

// Err joins every failure. It is nil on full success.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Run writes every target in order. encode is called once per format.
func Run(ctx context.Context, targets []Target, encode func(format string) ([]byte, error)) Result {
	var res Result
	encoded := make(map[string][]byte)
	encodeErrs := make(map[string]error)

	for _, t := range targets {
		data, ok := encoded[t.Format]
		if !ok {
			if err, failed := encodeErrs[t.Format]; failed {
				res.Failures = append(res.Failures, &docerrors.WriteError{Target: t.Name, Op: docerrors.OpEncode, Cause: err})
				continue
			}
			var err error
			data, err = encode(t.Format)
			if err != nil {
				encodeErrs[t.Format] = err
				res.Failures = append(res.Failures, &docerrors.WriteError{Target: t.Name, Op: docerrors.OpEncode, Cause: err})
				continue
			}
			encoded[t.Format] = data
		}

		if op, err := Write(ctx, t.Writer, data); err != nil {
			res.Failures = append(res.Failures, &docerrors.WriteError{Target: t.Name, Op: op, Cause: err})
			continue
		}
		res.Written = append(res.Written, t.Name)
	}

	return res
}
