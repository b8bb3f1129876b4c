// Package render holds the command buffer that rendering systems record into and the commands
// that drive a Device. The buffer knows nothing about the device. Commands receive a shared
// context on every call.
package render

import (
	"errors"
	"slices"

	"github.com/rotisserie/eris"
)

// Command is a unit of work submitted against a shared context.
type Command[C any] interface {
	Call(ctx C) error
}

// Compiler is implemented by commands that prepare resources once, when added to a buffer.
type Compiler[C any] interface {
	Compile(ctx C) error
}

// Destroyer is implemented by commands that own resources to release when removed.
type Destroyer[C any] interface {
	Destroy(ctx C) error
}

// Buffer is an ordered list of commands. Commands are compared by identity, so they should be
// pointers. A Buffer is not safe for concurrent use.
type Buffer[C any] struct {
	ctx      C
	commands []Command[C]
}

// NewBuffer creates an empty buffer bound to ctx.
func NewBuffer[C any](ctx C) *Buffer[C] {
	return &Buffer[C]{
		ctx:      ctx,
		commands: make([]Command[C], 0),
	}
}

// Add appends cmd and compiles it if it implements Compiler. A command that fails to compile is
// not added.
func (b *Buffer[C]) Add(cmd Command[C]) error {
	if cmd == nil {
		return eris.New("command must not be nil")
	}
	if c, ok := cmd.(Compiler[C]); ok {
		if err := c.Compile(b.ctx); err != nil {
			return eris.Wrap(err, "failed to compile command")
		}
	}
	b.commands = append(b.commands, cmd)
	return nil
}

// Remove destroys cmd if it implements Destroyer and removes it. Removing a command that is not
// in the buffer is a no-op. The command is removed even if Destroy fails.
func (b *Buffer[C]) Remove(cmd Command[C]) error {
	i := slices.Index(b.commands, cmd)
	if i < 0 {
		return nil
	}

	var err error
	if d, ok := cmd.(Destroyer[C]); ok {
		err = d.Destroy(b.ctx)
	}
	b.commands = slices.Delete(b.commands, i, i+1)
	if err != nil {
		return eris.Wrap(err, "failed to destroy command")
	}
	return nil
}

// Submit calls every command in order. The first failing command stops submission.
func (b *Buffer[C]) Submit() error {
	for i, cmd := range b.commands {
		if err := cmd.Call(b.ctx); err != nil {
			return eris.Wrapf(err, "command %d failed", i)
		}
	}
	return nil
}

// Destroy tears down every command and empties the buffer. Every command is destroyed even if an
// earlier one fails.
func (b *Buffer[C]) Destroy() error {
	var errs error
	for i, cmd := range b.commands {
		if d, ok := cmd.(Destroyer[C]); ok {
			if err := d.Destroy(b.ctx); err != nil {
				errs = errors.Join(errs, eris.Wrapf(err, "failed to destroy command %d", i))
			}
		}
	}
	clear(b.commands)
	b.commands = b.commands[:0]
	return errs
}

// Len returns the number of commands in the buffer.
func (b *Buffer[C]) Len() int {
	return len(b.commands)
}

// Context returns the context commands are called with.
func (b *Buffer[C]) Context() C {
	return b.ctx
}
