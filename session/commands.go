package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drake/tailpane/event"
	"github.com/drake/tailpane/stream"
)

var errUsage = errors.New("usage")

func eventLoad(path string) event.Event {
	return event.Event{
		Type:    event.SystemControl,
		Control: event.ControlOp{Action: event.ActionLoadScript, ScriptPath: path},
	}
}

// runCommand executes a line typed on the input line. Errors are echoed
// back on the input line.
func (s *Session) runCommand(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	fields := strings.Fields(rest)

	var err error
	switch name {
	case "file", "tail":
		if rest == "" {
			err = fmt.Errorf("%w: %s PATH", errUsage, name)
			break
		}
		err = s.TailFile(rest)
	case "cmd", "run":
		if len(fields) == 0 {
			err = fmt.Errorf("%w: %s COMMAND [ARGS...]", errUsage, name)
			break
		}
		err = s.TailCommand(fields[0], fields[1:])
	case "stop":
		if rest == "" {
			err = fmt.Errorf("%w: stop KEY", errUsage)
			break
		}
		if !s.Stop(rest) {
			err = fmt.Errorf("%s is not running", rest)
		}
	case "close":
		if rest == "" {
			s.closeFocused()
			return
		}
		if !s.dismiss(rest, "closed") && !s.dismiss(stream.FileKey(rest), "closed") {
			err = fmt.Errorf("no pane for %s", rest)
		}
	case "set":
		if len(fields) < 2 {
			err = fmt.Errorf("%w: set OPTION VALUE", errUsage)
			break
		}
		err = s.SetOption(fields[0], strings.Join(fields[1:], " "))
	case "lua":
		err = s.engine.DoString("input", rest)
	case "load":
		s.loadScript(rest)
	case "reload":
		s.reloadConfig()
		return
	case "quit", "exit":
		s.shutdown()
		return
	default:
		err = fmt.Errorf("unknown command %q", name)
	}

	if err != nil {
		s.logger.Debug("command failed", "command", name, "err", err)
		s.stack.Echo(err.Error())
		return
	}
	s.stack.Echo("")
}
