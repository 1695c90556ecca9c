/*
Package pipe wires filters together.

Output pipes are typed: a Pipe[T] carries values of exactly one payload
type, and an In[T] can only be connected to a pipe of the same type, so
port binding is checked at graph construction time. Connectors describe
ports by tag and UUID the way a graph editor would refer to them.

Execution is synchronous. Signalling a pipe calls every subscriber before
Signal returns.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package pipe

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster.pipe'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.pipe")
}

// ErrNotConnected is returned when reading from an input without a source.
var ErrNotConnected = errors.New("input pipe not connected")

// Connector describes a port of a filter.
type Connector struct {
	ID       uuid.UUID
	Tag      string
	Optional bool
}

func (c Connector) String() string {
	return fmt.Sprintf("<%s %s>", c.Tag, c.ID)
}

// newConnector creates a connector description. An empty id string creates
// a fresh random UUID.
func newConnector(tag, id string, optional bool) Connector {
	c := Connector{Tag: tag, Optional: optional}
	if id == "" {
		c.ID = uuid.New()
	} else {
		c.ID = uuid.MustParse(id)
	}
	return c
}

// --- Output pipes ----------------------------------------------------------

// Pipe is an output port carrying payloads of type T.
type Pipe[T any] struct {
	Connector
	value    T
	signaled bool
	subs     []func(T)
}

// NewPipe creates an output pipe with a random UUID.
func NewPipe[T any](tag string) *Pipe[T] {
	return &Pipe[T]{Connector: newConnector(tag, "", false)}
}

// Subscribe registers fn to be called on every Signal.
func (p *Pipe[T]) Subscribe(fn func(T)) {
	p.subs = append(p.subs, fn)
}

// Signal publishes v to all subscribers.
func (p *Pipe[T]) Signal(v T) {
	p.value = v
	p.signaled = true
	for _, fn := range p.subs {
		fn(v)
	}
}

// Last returns the most recently signalled value, and false if the pipe
// has never been signalled.
func (p *Pipe[T]) Last() (T, bool) {
	return p.value, p.signaled
}

// --- Input pipes -----------------------------------------------------------

// In is an input port accepting payloads of type T.
type In[T any] struct {
	Connector
	src *Pipe[T]
}

// NewIn creates an input port. id is the port's well-known UUID; pass ""
// for a random one.
func NewIn[T any](tag, id string, optional bool) *In[T] {
	return &In[T]{Connector: newConnector(tag, id, optional)}
}

// Connect binds the input to an output pipe of the same payload type.
func (in *In[T]) Connect(p *Pipe[T]) {
	tracer().Debugf("connect %s -> %s", p.Tag, in.Tag)
	in.src = p
}

// Connected is true if the input has a source.
func (in *In[T]) Connected() bool {
	return in != nil && in.src != nil
}

// Read returns the current value of the connected source.
func (in *In[T]) Read() (T, error) {
	var zero T
	if !in.Connected() {
		return zero, fmt.Errorf("%w: %s", ErrNotConnected, in.Tag)
	}
	v, ok := in.src.Last()
	if !ok {
		return zero, fmt.Errorf("%w: %s has no value yet", ErrNotConnected, in.Tag)
	}
	return v, nil
}

// --- Groups ----------------------------------------------------------------

// Group triggers a filter once all of its grouped inputs have received a
// value for the current trigger.
type Group struct {
	members []uuid.UUID
	arrived map[uuid.UUID]bool
	proceed func()
}

// NewGroup creates a group calling proceed whenever it completes.
func NewGroup(proceed func()) *Group {
	return &Group{
		arrived: make(map[uuid.UUID]bool),
		proceed: proceed,
	}
}

// Join adds a connected input to the group. Inputs must be connected
// before joining.
func Join[T any](g *Group, in *In[T]) error {
	if !in.Connected() {
		return fmt.Errorf("%w: cannot group %s", ErrNotConnected, in.Tag)
	}
	id := in.ID
	g.members = append(g.members, id)
	in.src.Subscribe(func(T) {
		g.arrive(id)
	})
	return nil
}

func (g *Group) arrive(id uuid.UUID) {
	g.arrived[id] = true
	for _, m := range g.members {
		if !g.arrived[m] {
			return
		}
	}
	clear(g.arrived)
	if g.proceed != nil {
		g.proceed()
	}
}
