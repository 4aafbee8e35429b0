package query

import "fmt"

// UnboundPlaceholderError reports a placeholder with no bound value.
type UnboundPlaceholderError struct {
	Key string
}

func (e *UnboundPlaceholderError) Error() string {
	return fmt.Sprintf("no value bound for placeholder :%s", e.Key)
}

// Bind substitutes placeholder arguments with values. The input calls are
// not mutated. Values must be string, int64, float64, bool, or nil, the
// same natives the parser produces.
func Bind(calls []Call, values map[string]any) ([]Call, error) {
	bound := make([]Call, len(calls))
	for i, c := range calls {
		bound[i] = Call{Verb: c.Verb, Args: make([]any, len(c.Args))}
		for j, a := range c.Args {
			ph, ok := a.(Placeholder)
			if !ok {
				bound[i].Args[j] = a
				continue
			}
			v, ok := values[ph.Key]
			if !ok {
				return nil, &UnboundPlaceholderError{Key: ph.Key}
			}
			bound[i].Args[j] = v
		}
	}
	return bound, nil
}
