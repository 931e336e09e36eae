package session

import (
	"errors"
	"fmt"
)

// ErrQueueFull is returned by Submit when the command buffer is full.
var ErrQueueFull = errors.New("command queue full")

// CommandType identifies a pilot command.
type CommandType string

const (
	CmdSetAltitude CommandType = "set_altitude"
	CmdSetSpeed    CommandType = "set_speed"
	CmdDirectTo    CommandType = "direct_to"
)

// Command is pilot intent posted from outside the control goroutine.
type Command struct {
	Type  CommandType
	Value float64 // Feet or knots
	Code  string  // Waypoint code for CmdDirectTo
}

// SetAltitude returns a command changing the target altitude.
func SetAltitude(ft float64) Command { return Command{Type: CmdSetAltitude, Value: ft} }

// SetSpeed returns a command changing the target speed.
func SetSpeed(kt float64) Command { return Command{Type: CmdSetSpeed, Value: kt} }

// DirectTo returns a command making code the active waypoint.
func DirectTo(code string) Command { return Command{Type: CmdDirectTo, Code: code} }

func (c Command) String() string {
	if c.Type == CmdDirectTo {
		return fmt.Sprintf("%s %s", c.Type, c.Code)
	}
	return fmt.Sprintf("%s %.0f", c.Type, c.Value)
}
