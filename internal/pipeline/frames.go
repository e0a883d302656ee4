package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/linuxmatters/syntunes/internal/audio"
	"github.com/linuxmatters/syntunes/internal/renderer"
	"golang.org/x/sync/errgroup"
)

// frameRenderer composes frames in parallel batches and writes each batch to
// the sink in order. Every goroutine owns one FrameWorker, so a batch holds
// exactly one frame per worker.
type frameRenderer struct {
	comp     *renderer.Compositor
	sink     FrameSink
	workers  int
	envelope audio.Envelope
	codec    string

	observer      func(FrameProgress)
	snapshotEvery int
	progressEvery int

	renderTime time.Duration
	writeTime  time.Duration
}

func (r *frameRenderer) run(ctx context.Context) error {
	total := r.comp.NumFrames()
	workers := max(min(r.workers, total), 1)

	pool := make([]*renderer.FrameWorker, workers)
	for i := range pool {
		pool[i] = r.comp.NewWorker()
	}
	defer func() {
		for _, w := range pool {
			w.Release()
		}
	}()

	start := time.Now()
	frames := make([]*image.RGBA, workers)
	for base := 0; base < total; base += workers {
		n := min(workers, total-base)

		t0 := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for k := 0; k < n; k++ {
			k := k
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				frames[k] = pool[k].Render(base + k)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		r.renderTime += time.Since(t0)

		for k := 0; k < n; k++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			i := base + k
			t0 = time.Now()
			if err := r.sink.WriteFrame(frames[k]); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			r.writeTime += time.Since(t0)
			r.report(i, total, frames[k], time.Since(start))
		}
	}
	return nil
}

func (r *frameRenderer) report(i, total int, img *image.RGBA, elapsed time.Duration) {
	if r.observer == nil {
		return
	}
	last := i == total-1
	if i%r.progressEvery != 0 && !last {
		return
	}

	p := FrameProgress{
		Frame:       i + 1,
		TotalFrames: total,
		Elapsed:     elapsed,
		Amplitude:   r.envelope.At(i),
		VideoCodec:  r.codec,
	}
	if s, ok := r.sink.(sizedSink); ok {
		p.FileSize = s.OutputSize()
	}
	if r.snapshotEvery > 0 && i%r.snapshotEvery == 0 {
		p.Snapshot = cloneRGBA(img)
	}
	r.observer(p)
}

// cloneRGBA copies img; worker canvases are reused by the next batch.
func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}
