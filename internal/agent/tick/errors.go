package tick

import (
	"fmt"

	"tycoon.ai/internal/sim/command"
)

// ReadError is a failed snapshot read. Step is the policy whose refresh failed, or empty
// for the read at tick start.
type ReadError struct {
	Step string
	Err  error
}

func (e *ReadError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("read snapshot: %v", e.Err)
	}
	return fmt.Sprintf("read snapshot before %s: %v", e.Step, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// CommandError is a rejected command. The tick stops at the first one.
type CommandError struct {
	Policy  string
	Command command.Command
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Policy, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
