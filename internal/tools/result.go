package tools

// Result is the unified return type from tool execution. ForLLM always goes
// back into the conversation; ForUser is shown on the console when set.
type Result struct {
	ForLLM  string `json:"for_llm"`
	ForUser string `json:"for_user,omitempty"`
	IsError bool   `json:"is_error"`
	Err     error  `json:"-"` // classification for callers; not serialized
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

func UserResult(content string) *Result {
	return &Result{ForLLM: content, ForUser: content}
}

func ErrorResult(err error) *Result {
	return &Result{ForLLM: err.Error(), IsError: true, Err: err}
}
