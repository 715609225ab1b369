package status

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/morikuni/aec"
	"golang.org/x/sys/unix"
)

// Output is the sink for user-facing install progress: step banners,
// warnings, and the streamed output of external build commands. Colors
// are applied only when the underlying writer is a terminal.
type Output struct {
	w     io.Writer
	color bool
}

func NewOutput(w io.Writer) *Output {
	return &Output{w: w, color: isTerminal(w)}
}

// Discard returns an Output that swallows everything. Used by tests
// and by operations that only want the error values.
func Discard() *Output {
	return &Output{w: io.Discard}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}

func (o *Output) apply(a aec.ANSI, s string) string {
	if !o.color {
		return s
	}

	return a.Apply(s)
}

// Banner prints a "==> " step line, mirroring the top-level phases of
// an install run.
func (o *Output) Banner(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n",
		o.apply(aec.LightCyanF, "==>"),
		fmt.Sprintf(format, args...))
}

func (o *Output) Say(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

func (o *Output) Warn(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n",
		o.apply(aec.YellowF, "warning:"),
		fmt.Sprintf(format, args...))
}

func (o *Output) Error(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n",
		o.apply(aec.RedF, "error:"),
		fmt.Sprintf(format, args...))
}

// CommandLine prints one line of external command output, prefixed by
// the package or tool name that produced it.
func (o *Output) CommandLine(name, line string) {
	fmt.Fprintf(o.w, "%s │ %s\n", o.apply(aec.Faint, name), line)
}

// CommandWriter adapts CommandLine to an io.Writer for collaborators
// that want a stream (git progress, hook output). Partial lines are
// buffered until a newline arrives; Close flushes any remainder.
func (o *Output) CommandWriter(name string) io.WriteCloser {
	return &lineWriter{out: o, name: name}
}

type lineWriter struct {
	out  *Output
	name string
	buf  bytes.Buffer
}

func (l *lineWriter) Write(b []byte) (int, error) {
	l.buf.Write(b)

	for {
		idx := bytes.IndexByte(l.buf.Bytes(), '\n')
		if idx == -1 {
			break
		}

		line := l.buf.Next(idx + 1)
		l.out.CommandLine(l.name, string(bytes.TrimRight(line, " \r\n\t")))
	}

	return len(b), nil
}

func (l *lineWriter) Close() error {
	if l.buf.Len() > 0 {
		l.out.CommandLine(l.name, l.buf.String())
		l.buf.Reset()
	}

	return nil
}
