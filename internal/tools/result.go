package tools

// Result is the unified return type from tool execution. ForLLM always goes
// back to the model; ForUser is optional terminal output shown alongside it.
type Result struct {
	ForLLM  string `json:"for_llm"`
	ForUser string `json:"for_user,omitempty"`
	Silent  bool   `json:"silent"`
	IsError bool   `json:"is_error"`
	Async   bool   `json:"async"`
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

// SilentResult suppresses user-facing output for the result.
func SilentResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM, Silent: true}
}

func ErrorResult(message string) *Result {
	return &Result{ForLLM: message, IsError: true}
}

// AsyncResult acknowledges work that continues in the background; the final
// outcome arrives through the async callback.
func AsyncResult(message string) *Result {
	return &Result{ForLLM: message, Async: true}
}
