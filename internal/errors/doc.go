// Package errors provides coded, actionable error messages for the gaze CLI.
//
// Each error has a code (e.g. "G101") mapping to a category, a short
// message and a longer explanation. Call sites add detail, a suggestion
// and the underlying cause:
//
//	err := errors.New("G101").
//	    WithDetail("gaze.json: unexpected end of JSON input").
//	    WithSuggestion("Run 'gaze config init' to write a fresh config").
//	    Wrap(cause)
//
//	fmt.Fprint(os.Stderr, err.Format())
//
// # Error Categories
//
//   - config: gaze.json could not be read or is invalid
//   - source: a configured source could not be built or set
//   - snapshot: the snapshot store could not be reached
//   - cli: command line usage errors
package errors
