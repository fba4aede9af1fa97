// Package explain lets a query report what it did without depending on how
// the report is printed.
package explain

// Explain receives named values and elapsed times from one operation.
type Explain interface {
	KV(key string, value any)
	// Timer starts a timer; calling the returned func records the elapsed
	// time under name.
	Timer(name string) func()
}

type discard struct{}

func (discard) KV(string, any) {}

func (discard) Timer(string) func() { return func() {} }

// Discard drops everything.
var Discard Explain = discard{}

// OrDiscard returns ex, or Discard when ex is nil.
func OrDiscard(ex Explain) Explain {
	if ex == nil {
		return Discard
	}
	return ex
}
