package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Scope is the stack of lexical frames mapping names to backend values.
//
// Push duplicates the innermost frame instead of opening an empty one, so a
// name saved after a push is only visible from that frame and the frames
// pushed on top of it. Load still walks outward on a miss.
type Scope struct {
	frames []map[string]Value
}

// NewScope returns a scope holding a single empty root frame.
func NewScope() *Scope {
	return &Scope{frames: []map[string]Value{make(map[string]Value)}}
}

// Push copies the innermost frame onto the stack.
func (s *Scope) Push() {
	top := s.frames[len(s.frames)-1]
	next := make(map[string]Value, len(top))
	for name, v := range top {
		next[name] = v
	}
	s.frames = append(s.frames, next)
}

// Pop discards the innermost frame. The root frame is never removed; Pop
// reports false when asked to.
func (s *Scope) Pop() bool {
	if len(s.frames) <= 1 {
		return false
	}
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return true
}

// Depth returns the number of frames, root included.
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Save binds name in the innermost frame, replacing any previous binding
// there.
func (s *Scope) Save(name string, v Value) {
	s.frames[len(s.frames)-1][name] = v
}

// Load returns the innermost binding for name.
func (s *Scope) Load(name string) (Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LoadFunction is Load restricted to function symbols. A name bound to any
// other kind of value is reported as absent.
func (s *Scope) LoadFunction(name string) (Function, bool) {
	v, ok := s.Load(name)
	if !ok {
		return nil, false
	}
	fn, ok := v.(Function)
	return fn, ok
}

// String returns a deterministically ordered dump of every frame.
func (s *Scope) String() string {
	var sb strings.Builder
	for i, frame := range s.frames {
		if i == 0 {
			sb.WriteString("Root:\n")
		} else {
			fmt.Fprintf(&sb, "Frame %d:\n", i)
		}
		if len(frame) == 0 {
			sb.WriteString("  (empty)\n")
			continue
		}
		names := make([]string, 0, len(frame))
		for name := range frame {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %-20s  %s\n", name, describeValue(frame[name]))
		}
	}
	return sb.String()
}

func describeValue(v Value) string {
	if fn, ok := v.(Function); ok {
		body := "declared"
		if fn.HasBody() {
			body = "defined"
		}
		return fmt.Sprintf("function/%d (%s)", fn.Arity(), body)
	}
	if st, ok := v.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%v", v)
}
