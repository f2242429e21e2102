package ecs

import (
	"fmt"
	"log/slog"
	"time"
)

type System interface {
	Update(ctx *Context, dt time.Duration)
}

// Context is passed to every system during one Update.
type Context struct {
	Store  *Store
	Logger *slog.Logger
	Clock  Clock
	// Tick is the sequence number of the current Update.
	Tick uint64
	// FrameStart is the clock reading taken before the first system ran.
	FrameStart time.Time
}

// Elapsed returns the time spent in the current Update so far.
func (c *Context) Elapsed() time.Duration {
	return c.Clock.Now().Sub(c.FrameStart)
}

type namedSystem struct {
	name string
	fn   func(ctx *Context, dt time.Duration)
}

func (s namedSystem) Update(ctx *Context, dt time.Duration) { s.fn(ctx, dt) }
func (s namedSystem) Name() string                          { return s.name }

// SystemFunc wraps a function into a named System.
func SystemFunc(name string, fn func(ctx *Context, dt time.Duration)) System {
	return namedSystem{name: name, fn: fn}
}

// SystemName returns the Name() of the system if it has one, or its type.
func SystemName(sys System) string {
	if n, ok := sys.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sys)
}

type SystemTime struct {
	Name     string
	Duration time.Duration
}

// Clock provides the current time to systems.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
