package replacement

// Result is the outcome of inference: either a match carrying a (possibly
// empty) replacement set, or no match.
type Result struct {
	matched      bool
	replacements *Set
}

// Match returns a matching result carrying set
func Match(set *Set) Result {
	if set == nil {
		set = NewSet()
	}
	return Result{matched: true, replacements: set}
}

// NoMatch returns a result for fragments that do not correspond
func NoMatch() Result {
	return Result{}
}

// Matched reports whether the fragments correspond
func (r Result) Matched() bool {
	return r.matched
}

// Replacements returns the replacement set; nil for NoMatch
func (r Result) Replacements() *Set {
	return r.replacements
}
