package allow

import "fmt"

// Stack manages a LIFO chain of active allowance scopes. Scopes are
// strictly stack-disciplined: an outer scope never resolves before an
// inner one. Nesting is the structural equivalent of AND - each layer
// filters the residue of the layer below it.
//
// A Stack is local to one test case; no allowance state persists
// across test cases.
type Stack struct {
	scopes []*Scope
}

// NewStack creates an empty scope stack.
func NewStack() *Stack { return &Stack{} }

// Push arms a scope as the new innermost filter and returns it.
func (st *Stack) Push(s *Scope) *Scope {
	st.scopes = append(st.scopes, s)
	return s
}

// Pop resolves the innermost scope against a carried error and removes
// it. The returned error is the scope's residue: nil when the scope
// suppressed the failure, the carried error unmodified when it was not
// a structured failure.
//
// Popping an empty stack is a programming error.
func (st *Stack) Pop(carried error) (error, error) {
	if len(st.scopes) == 0 {
		return carried, fmt.Errorf("allowance stack underflow: no scope to resolve")
	}
	inner := st.scopes[len(st.scopes)-1]
	st.scopes = st.scopes[:len(st.scopes)-1]
	return inner.Resolve(carried), nil
}

// Unwind resolves every remaining scope innermost-first, threading the
// residue of each scope into the next. The final residue - nil when
// some scope suppressed the failure - is returned.
func (st *Stack) Unwind(carried error) error {
	for len(st.scopes) > 0 {
		inner := st.scopes[len(st.scopes)-1]
		st.scopes = st.scopes[:len(st.scopes)-1]
		carried = inner.Resolve(carried)
	}
	return carried
}

// Depth returns the number of armed scopes.
func (st *Stack) Depth() int { return len(st.scopes) }
