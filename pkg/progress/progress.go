// Package progress renders terminal progress bars for long-running
// work. The command layer attaches a display to the context; without
// one every bar call is a no-op, which is what tests get.
package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	pb "github.com/schollz/progressbar/v3"
)

type displayKey struct{}

// Open attaches a progress display writing to w.
func Open(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, displayKey{}, w)
}

// Progress is one bar. The zero value discards all updates.
type Progress struct {
	bar *pb.ProgressBar
}

// Count opens a bar over total units, or a spinner when total is -1.
func Count(ctx context.Context, total int64, desc string) *Progress {
	w, ok := ctx.Value(displayKey{}).(io.Writer)
	if !ok {
		return &Progress{}
	}

	opts := []pb.Option{
		pb.OptionSetDescription(desc),
		pb.OptionSetWriter(w),
		pb.OptionSetWidth(20),
		pb.OptionFullWidth(),
		pb.OptionThrottle(65 * time.Millisecond),
		pb.OptionShowBytes(true),
		pb.OptionSpinnerType(14),
		pb.OptionSetTheme(pb.Theme{
			Saucer:        "=",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		pb.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	}

	bar := pb.NewOptions64(total, opts...)
	bar.RenderBlank()

	return &Progress{bar: bar}
}

// Tick advances the bar by one unit.
func (p *Progress) Tick() {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

// Reader counts bytes read through r against the bar. Wraps source
// archive downloads, where total may have been -1 when the server
// sent no Content-Length.
func (p *Progress) Reader(r io.Reader) io.Reader {
	if p.bar == nil {
		return r
	}

	return io.TeeReader(r, p.bar)
}

func (p *Progress) Close() {
	if p.bar != nil {
		p.bar.Close()
	}
}
