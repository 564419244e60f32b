package cpp

import "sync"

// Pool-backed allocation for the three record types that churn heavily
// during preprocessing: one IncludeState per pushed source, one
// Conditional per #if nesting level, one Define per macro definition.
// Reusing them through sync.Pool keeps allocation churn bounded under
// deep includes and heavy macro expansion without hand-rolled free-lists.

var includeStatePool = sync.Pool{
	New: func() any { return &IncludeState{} },
}

func getIncludeState() *IncludeState {
	return includeStatePool.Get().(*IncludeState)
}

func putIncludeState(s *IncludeState) {
	if s == nil {
		return
	}
	*s = IncludeState{conditionals: s.conditionals[:0]}
	includeStatePool.Put(s)
}

var conditionalPool = sync.Pool{
	New: func() any { return &Conditional{} },
}

func getConditional() *Conditional {
	return conditionalPool.Get().(*Conditional)
}

func putConditional(c *Conditional) {
	if c == nil {
		return
	}
	*c = Conditional{}
	conditionalPool.Put(c)
}

var definePool = sync.Pool{
	New: func() any { return &Define{} },
}

func getDefine() *Define {
	return definePool.Get().(*Define)
}

func putDefine(d *Define) {
	if d == nil {
		return
	}
	*d = Define{}
	definePool.Put(d)
}
