package dap

import (
	"encoding/json"
)

// Message types.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// ProtocolMessage is the base for all DAP messages.
type ProtocolMessage struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`
}

// Request is a client request.
type Request struct {
	ProtocolMessage
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// DecodeArguments unmarshals the request arguments into v. Missing arguments
// leave v untouched.
func (r *Request) DecodeArguments(v any) error {
	if len(r.Arguments) == 0 || string(r.Arguments) == "null" {
		return nil
	}
	return json.Unmarshal(r.Arguments, v)
}

// Response answers a request.
type Response struct {
	ProtocolMessage
	RequestSeq int    `json:"request_seq"`
	Success    bool   `json:"success"`
	Command    string `json:"command"`
	Message    string `json:"message,omitempty"`
	Body       any    `json:"body,omitempty"`
}

// Event is sent by the adapter without a request.
type Event struct {
	ProtocolMessage
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// ErrorResponseBody is the body of a failed response.
type ErrorResponseBody struct {
	Error *ErrorMessage `json:"error,omitempty"`
}

// ErrorMessage contains error details.
type ErrorMessage struct {
	ID        int               `json:"id"`
	Format    string            `json:"format"`
	Variables map[string]string `json:"variables,omitempty"`
	ShowUser  bool              `json:"showUser,omitempty"`
}

// Capabilities describes what the adapter supports.
type Capabilities struct {
	SupportsConfigurationDoneRequest   bool                         `json:"supportsConfigurationDoneRequest,omitempty"`
	SupportsFunctionBreakpoints        bool                         `json:"supportsFunctionBreakpoints,omitempty"`
	SupportsConditionalBreakpoints     bool                         `json:"supportsConditionalBreakpoints,omitempty"`
	SupportsEvaluateForHovers          bool                         `json:"supportsEvaluateForHovers,omitempty"`
	ExceptionBreakpointFilters         []ExceptionBreakpointsFilter `json:"exceptionBreakpointFilters,omitempty"`
	SupportsStepBack                   bool                         `json:"supportsStepBack,omitempty"`
	SupportsRestartFrame               bool                         `json:"supportsRestartFrame,omitempty"`
	SupportsRestartRequest             bool                         `json:"supportsRestartRequest,omitempty"`
	SupportTerminateDebuggee           bool                         `json:"supportTerminateDebuggee,omitempty"`
	SupportsLoadedSourcesRequest       bool                         `json:"supportsLoadedSourcesRequest,omitempty"`
	SupportsTerminateRequest           bool                         `json:"supportsTerminateRequest,omitempty"`
	SupportsDataBreakpoints            bool                         `json:"supportsDataBreakpoints,omitempty"`
	SupportsBreakpointLocationsRequest bool                         `json:"supportsBreakpointLocationsRequest,omitempty"`
}

// ExceptionBreakpointsFilter is an exception filter offered to the client.
type ExceptionBreakpointsFilter struct {
	Filter      string `json:"filter"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// InitializeRequestArguments are the arguments for initialize.
type InitializeRequestArguments struct {
	ClientID             string `json:"clientID,omitempty"`
	ClientName           string `json:"clientName,omitempty"`
	AdapterID            string `json:"adapterID"`
	Locale               string `json:"locale,omitempty"`
	LinesStartAt1        *bool  `json:"linesStartAt1,omitempty"`
	ColumnsStartAt1      *bool  `json:"columnsStartAt1,omitempty"`
	PathFormat           string `json:"pathFormat,omitempty"`
	SupportsVariableType bool   `json:"supportsVariableType,omitempty"`
}

// LaunchRequestArguments are the arguments for launch and attach.
type LaunchRequestArguments struct {
	NoDebug     bool `json:"noDebug,omitempty"`
	StopOnEntry bool `json:"stopOnEntry,omitempty"`
}

// SetBreakpointsArguments are the arguments for setBreakpoints.
type SetBreakpointsArguments struct {
	Source         Source             `json:"source"`
	Breakpoints    []SourceBreakpoint `json:"breakpoints,omitempty"`
	Lines          []int              `json:"lines,omitempty"`
	SourceModified bool               `json:"sourceModified,omitempty"`
}

// SetBreakpointsResponseBody is the response body for setBreakpoints,
// setFunctionBreakpoints and setDataBreakpoints.
type SetBreakpointsResponseBody struct {
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// SetFunctionBreakpointsArguments are the arguments for setFunctionBreakpoints.
type SetFunctionBreakpointsArguments struct {
	Breakpoints []FunctionBreakpoint `json:"breakpoints"`
}

// SetExceptionBreakpointsArguments are the arguments for setExceptionBreakpoints.
type SetExceptionBreakpointsArguments struct {
	Filters []string `json:"filters"`
}

// DataBreakpointInfoArguments are the arguments for dataBreakpointInfo.
type DataBreakpointInfoArguments struct {
	VariablesReference int    `json:"variablesReference,omitempty"`
	Name               string `json:"name"`
	FrameID            int    `json:"frameId,omitempty"`
}

// DataBreakpointInfoResponseBody is the response body for dataBreakpointInfo.
// A nil DataID means no data breakpoint can be set.
type DataBreakpointInfoResponseBody struct {
	DataID      *string  `json:"dataId"`
	Description string   `json:"description"`
	AccessTypes []string `json:"accessTypes,omitempty"`
	CanPersist  bool     `json:"canPersist,omitempty"`
}

// SetDataBreakpointsArguments are the arguments for setDataBreakpoints.
type SetDataBreakpointsArguments struct {
	Breakpoints []DataBreakpoint `json:"breakpoints"`
}

// DataBreakpoint is a data breakpoint requested by the client.
type DataBreakpoint struct {
	DataID       string `json:"dataId"`
	AccessType   string `json:"accessType,omitempty"` // "read", "write", "readWrite"
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
}

// BreakpointLocationsArguments are the arguments for breakpointLocations.
type BreakpointLocationsArguments struct {
	Source  Source `json:"source"`
	Line    int    `json:"line"`
	EndLine int    `json:"endLine,omitempty"`
}

// BreakpointLocation is a possible breakpoint position.
type BreakpointLocation struct {
	Line int `json:"line"`
}

// BreakpointLocationsResponseBody is the response body for breakpointLocations.
type BreakpointLocationsResponseBody struct {
	Breakpoints []BreakpointLocation `json:"breakpoints"`
}

// ThreadArguments are the arguments of the run commands: continue, next,
// stepIn, stepOut, stepBack, reverseContinue and pause.
type ThreadArguments struct {
	ThreadID     int    `json:"threadId"`
	SingleThread bool   `json:"singleThread,omitempty"`
	Granularity  string `json:"granularity,omitempty"`
}

// ContinueResponseBody is the response body for continue.
type ContinueResponseBody struct {
	AllThreadsContinued bool `json:"allThreadsContinued"`
}

// RestartFrameArguments are the arguments for restartFrame.
type RestartFrameArguments struct {
	FrameID int `json:"frameId"`
}

// StackTraceArguments are the arguments for stackTrace.
type StackTraceArguments struct {
	ThreadID   int `json:"threadId"`
	StartFrame int `json:"startFrame,omitempty"`
	Levels     int `json:"levels,omitempty"`
}

// StackTraceResponseBody is the response body for stackTrace.
type StackTraceResponseBody struct {
	StackFrames []StackFrame `json:"stackFrames"`
	TotalFrames int          `json:"totalFrames"`
}

// ScopesArguments are the arguments for scopes.
type ScopesArguments struct {
	FrameID int `json:"frameId"`
}

// ScopesResponseBody is the response body for scopes.
type ScopesResponseBody struct {
	Scopes []Scope `json:"scopes"`
}

// VariablesArguments are the arguments for variables.
type VariablesArguments struct {
	VariablesReference int    `json:"variablesReference"`
	Filter             string `json:"filter,omitempty"`
	Start              int    `json:"start,omitempty"`
	Count              int    `json:"count,omitempty"`
}

// VariablesResponseBody is the response body for variables.
type VariablesResponseBody struct {
	Variables []Variable `json:"variables"`
}

// EvaluateArguments are the arguments for evaluate.
type EvaluateArguments struct {
	Expression string `json:"expression"`
	FrameID    int    `json:"frameId,omitempty"`
	Context    string `json:"context,omitempty"`
}

// EvaluateResponseBody is the response body for evaluate.
type EvaluateResponseBody struct {
	Result             string `json:"result"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}

// ThreadsResponseBody is the response body for threads.
type ThreadsResponseBody struct {
	Threads []Thread `json:"threads"`
}

// LoadedSourcesResponseBody is the response body for loadedSources.
type LoadedSourcesResponseBody struct {
	Sources []Source `json:"sources"`
}

// SourceArguments are the arguments for source.
type SourceArguments struct {
	Source          *Source `json:"source,omitempty"`
	SourceReference int     `json:"sourceReference"`
}

// SourceResponseBody is the response body for source.
type SourceResponseBody struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType,omitempty"`
}

// DisconnectArguments are the arguments for disconnect.
type DisconnectArguments struct {
	Restart           bool `json:"restart,omitempty"`
	TerminateDebuggee bool `json:"terminateDebuggee,omitempty"`
}

// TerminateArguments are the arguments for terminate.
type TerminateArguments struct {
	Restart bool `json:"restart,omitempty"`
}

// Source is a source file.
type Source struct {
	Name            string `json:"name,omitempty"`
	Path            string `json:"path,omitempty"`
	SourceReference int    `json:"sourceReference,omitempty"`
}

// SourceBreakpoint is a breakpoint requested on a source line.
type SourceBreakpoint struct {
	Line         int    `json:"line"`
	Column       int    `json:"column,omitempty"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`
}

// FunctionBreakpoint is a breakpoint requested on a function name.
type FunctionBreakpoint struct {
	Name         string `json:"name"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
}

// Breakpoint is the adapter's view of a requested breakpoint.
type Breakpoint struct {
	ID       int     `json:"id,omitempty"`
	Verified bool    `json:"verified"`
	Message  string  `json:"message,omitempty"`
	Source   *Source `json:"source,omitempty"`
	Line     int     `json:"line,omitempty"`
}

// Thread is a thread of execution.
type Thread struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StackFrame is one frame of a stack trace.
type StackFrame struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Source     *Source `json:"source,omitempty"`
	Line       int     `json:"line"`
	Column     int     `json:"column"`
	CanRestart bool    `json:"canRestart,omitempty"`
}

// Scope is a named group of variables.
type Scope struct {
	Name               string `json:"name"`
	PresentationHint   string `json:"presentationHint,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
	Expensive          bool   `json:"expensive"`
}

// Variable is a variable or structure member.
type Variable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	EvaluateName       string `json:"evaluateName,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
}

// StoppedEventBody is the body of the stopped event.
type StoppedEventBody struct {
	Reason            string `json:"reason"` // "step", "breakpoint", "exception", "pause", "entry", "function breakpoint", "data breakpoint"
	Description       string `json:"description,omitempty"`
	ThreadID          int    `json:"threadId,omitempty"`
	Text              string `json:"text,omitempty"`
	AllThreadsStopped bool   `json:"allThreadsStopped,omitempty"`
	HitBreakpointIDs  []int  `json:"hitBreakpointIds,omitempty"`
}

// TerminatedEventBody is the body of the terminated event.
type TerminatedEventBody struct {
	Restart any `json:"restart,omitempty"`
}

// OutputEventBody is the body of the output event.
type OutputEventBody struct {
	Category string `json:"category,omitempty"` // "console", "important", "stdout", "stderr"
	Output   string `json:"output"`
}
