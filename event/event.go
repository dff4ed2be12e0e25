package event

// Type identifies the source of the message
type Type int

const (
	UserInput     Type = iota // A command line typed on the input line
	Resize                    // Terminal size changed
	SystemControl             // Key-bound or scripted control action
	AsyncResult               // Async work completion dispatched onto the session loop
)

// Control action constants
const (
	ActionQuit       = "quit"
	ActionClose      = "close"       // Remove the focused pane
	ActionFocus      = "focus"       // Cycle focus
	ActionReload     = "reload"      // Re-read the config file
	ActionLoadScript = "load_script" // Run a Lua file
)

// ControlOp contains control operation details
type ControlOp struct {
	Action     string // Use Action* constants
	ScriptPath string
}

// Event is the universal packet sent to the session loop
type Event struct {
	Type     Type
	Payload  string    // For UserInput
	Width    int       // For Resize
	Height   int       // For Resize
	Callback func()    // For AsyncResult
	Control  ControlOp // For SystemControl events
}
