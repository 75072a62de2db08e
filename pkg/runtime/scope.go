package runtime

import (
	"errors"
	"fmt"
	"sort"
)

// ErrReleasedScope is returned when a scope handle outlives its frame.
var ErrReleasedScope = errors.New("scope frame has been released")

// FrameID addresses a frame inside an Arena. The generation makes handles
// to released frames detectable after their slot is reused.
type FrameID struct {
	index int
	gen   uint32
}

type funcKey struct {
	name  string
	arity int
}

type frame struct {
	gen       uint32
	live      bool
	parent    FrameID
	hasParent bool
	variables map[string]*Variable
	functions map[funcKey]*Function
}

// Arena owns every frame of one scope tree. Frames refer to their parent by
// ID, never by pointer; releasing a frame invalidates its ID.
type Arena struct {
	frames []frame
	free   []int
}

func NewArena() *Arena {
	return &Arena{}
}

// Root allocates a frame with no parent.
func (a *Arena) Root() *Scope {
	return &Scope{arena: a, id: a.alloc(FrameID{}, false)}
}

// Live reports how many frames are currently allocated.
func (a *Arena) Live() int {
	return len(a.frames) - len(a.free)
}

func (a *Arena) alloc(parent FrameID, hasParent bool) FrameID {
	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.frames = append(a.frames, frame{})
		idx = len(a.frames) - 1
	}
	f := &a.frames[idx]
	f.gen++
	f.live = true
	f.parent = parent
	f.hasParent = hasParent
	f.variables = make(map[string]*Variable)
	f.functions = make(map[funcKey]*Function)
	return FrameID{index: idx, gen: f.gen}
}

func (a *Arena) frame(id FrameID) (*frame, error) {
	if id.index < 0 || id.index >= len(a.frames) {
		return nil, ErrReleasedScope
	}
	f := &a.frames[id.index]
	if !f.live || f.gen != id.gen {
		return nil, ErrReleasedScope
	}
	return f, nil
}

func (a *Arena) release(id FrameID) {
	f, err := a.frame(id)
	if err != nil {
		return
	}
	f.live = false
	f.variables = nil
	f.functions = nil
	a.free = append(a.free, id.index)
}

// Scope is a handle on one frame of an Arena. Lookups walk from the frame
// outward to the root and return the innermost match.
type Scope struct {
	arena *Arena
	id    FrameID
}

// NewScope creates a root scope in a fresh arena.
func NewScope() *Scope {
	return NewArena().Root()
}

// Extend allocates a child frame. Callers pair it with Release.
func (s *Scope) Extend() *Scope {
	return &Scope{arena: s.arena, id: s.arena.alloc(s.id, true)}
}

// Release frees the frame. Releasing twice is a no-op.
func (s *Scope) Release() {
	s.arena.release(s.id)
}

// Alive reports whether the frame is still allocated.
func (s *Scope) Alive() bool {
	_, err := s.arena.frame(s.id)
	return err == nil
}

// Arena exposes the arena this scope lives in.
func (s *Scope) Arena() *Arena {
	return s.arena
}

// Parent exposes the lexical parent (nil for a root or released frame).
func (s *Scope) Parent() *Scope {
	f, err := s.arena.frame(s.id)
	if err != nil || !f.hasParent {
		return nil
	}
	return &Scope{arena: s.arena, id: f.parent}
}

// DefineVariable binds v in this frame. Names are unique per frame.
func (s *Scope) DefineVariable(v *Variable) error {
	f, err := s.arena.frame(s.id)
	if err != nil {
		return err
	}
	if _, exists := f.variables[v.Name]; exists {
		return fmt.Errorf("Variable '%s' is already defined in this scope", v.Name)
	}
	f.variables[v.Name] = v
	return nil
}

// LookupVariable searches outward through the scope chain.
func (s *Scope) LookupVariable(name string) (*Variable, error) {
	id, hasID := s.id, true
	for hasID {
		f, err := s.arena.frame(id)
		if err != nil {
			return nil, err
		}
		if v, ok := f.variables[name]; ok {
			return v, nil
		}
		id, hasID = f.parent, f.hasParent
	}
	return nil, fmt.Errorf("Undefined variable '%s'", name)
}

// DefineFunction binds fn under (name, arity) in this frame.
func (s *Scope) DefineFunction(fn *Function) error {
	f, err := s.arena.frame(s.id)
	if err != nil {
		return err
	}
	key := funcKey{name: fn.Name, arity: fn.Arity()}
	if _, exists := f.functions[key]; exists {
		return fmt.Errorf("Function '%s/%d' is already defined in this scope", fn.Name, key.arity)
	}
	f.functions[key] = fn
	return nil
}

// LookupFunction resolves by name and parameter count only.
func (s *Scope) LookupFunction(name string, arity int) (*Function, error) {
	key := funcKey{name: name, arity: arity}
	id, hasID := s.id, true
	for hasID {
		f, err := s.arena.frame(id)
		if err != nil {
			return nil, err
		}
		if fn, ok := f.functions[key]; ok {
			return fn, nil
		}
		id, hasID = f.parent, f.hasParent
	}
	return nil, fmt.Errorf("Undefined function '%s/%d'", name, arity)
}

// Variables returns this frame's variables sorted by name.
func (s *Scope) Variables() []*Variable {
	f, err := s.arena.frame(s.id)
	if err != nil {
		return nil
	}
	out := make([]*Variable, 0, len(f.variables))
	for _, v := range f.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Functions returns this frame's functions sorted by name, then arity.
func (s *Scope) Functions() []*Function {
	f, err := s.arena.frame(s.id)
	if err != nil {
		return nil
	}
	out := make([]*Function, 0, len(f.functions))
	for _, fn := range f.functions {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Arity() < out[j].Arity()
	})
	return out
}
