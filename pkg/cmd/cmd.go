// Package cmd adapts plain `func(ctx, opts) error` bodies into CLI
// commands: the opts struct is parsed by go-flags, INT/QUIT/TERM
// cancel the context, and errors render on one line.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/PanterSoft/tsi/pkg/progress"
)

// ErrHandled signals that the command already rendered its own
// diagnostics and only the exit code remains.
var ErrHandled = errors.New("handled")

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

type Cmd struct {
	name     string
	synopsis string

	body reflect.Value
	opts reflect.Value

	flags *flags.Parser
}

// New wraps body, which must be a func(context.Context, T) error for
// a struct type T carrying go-flags tags.
func New(name, synopsis string, body interface{}) *Cmd {
	bv := reflect.ValueOf(body)
	bt := bv.Type()

	switch {
	case bt.Kind() != reflect.Func:
		panic("command body must be a function")
	case bt.NumIn() != 2 || !bt.In(0).Implements(ctxType):
		panic("command body must take (context.Context, opts)")
	case bt.In(1).Kind() != reflect.Struct:
		panic("command options must be a struct")
	case bt.NumOut() != 1:
		panic("command body must return error only")
	}

	opts := reflect.New(bt.In(1))

	parser := flags.NewNamedParser(name, flags.Default)
	parser.ShortDescription = synopsis
	parser.LongDescription = synopsis

	if _, err := parser.AddGroup("Application Options", "", opts.Interface()); err != nil {
		panic(err)
	}

	return &Cmd{
		name:     name,
		synopsis: synopsis,
		body:     bv,
		opts:     opts,
		flags:    parser,
	}
}

func (c *Cmd) Synopsis() string {
	return c.synopsis
}

func (c *Cmd) Help() string {
	var buf bytes.Buffer
	c.flags.WriteHelp(&buf)
	return buf.String()
}

func (c *Cmd) Run(args []string) int {
	if _, err := c.flags.ParseArgs(args); err != nil {
		// go-flags already printed the usage error
		return 1
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	ctx = progress.Open(ctx, os.Stderr)

	out := c.body.Call([]reflect.Value{reflect.ValueOf(ctx), c.opts.Elem()})

	if out[0].IsNil() {
		return 0
	}

	err := out[0].Interface().(error)
	if !errors.Is(err, ErrHandled) {
		fmt.Printf("! Error: %+v\n", err)
	}

	return 1
}

// interruptibleContext returns a context cancelled by INT, QUIT, or
// TERM.
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, unix.SIGQUIT, unix.SIGTERM)

	go func() {
		for range sig {
			cancel()
		}
	}()

	return ctx, cancel
}
