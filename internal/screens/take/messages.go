package take

import "time"

// loadedMsg is sent when the session finished loading the test.
type loadedMsg struct {
	Err error
}

// startedMsg is sent when the attempt clock was started or resumed.
type startedMsg struct {
	Err error
}

// tickMsg is sent every second while an attempt is running.
type tickMsg time.Time

// tickedMsg carries the outcome of a controller tick, which may include an
// automatic submission.
type tickedMsg struct {
	Remaining int
	Err       error
}

// submittedMsg is sent when a manual submission returns.
type submittedMsg struct {
	Err error
}
