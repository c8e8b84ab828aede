package policy

// ErrorKind classifies why a rule failed when the failure is not a plain
// policy verdict.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindSubjectData   ErrorKind = "subject_data"
	ErrorKindStorage       ErrorKind = "storage"
	ErrorKindInternal      ErrorKind = "internal"
	ErrorKindTimeout       ErrorKind = "timeout"
)

// Message is a template id plus positional parameters. Rendering into a
// display string is left to the message catalog.
type Message struct {
	ID     string   `json:"id"`
	Params []string `json:"params,omitempty"`
}

// NewMessage builds a Message.
func NewMessage(id string, params ...string) *Message {
	return &Message{ID: id, Params: params}
}

// Result is the outcome of evaluating one rule against one subject.
// A passing result never carries a message.
type Result struct {
	Passed    bool                   `json:"passed"`
	Message   *Message               `json:"message,omitempty"`
	ErrorKind ErrorKind              `json:"error_kind,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func Pass() Result {
	return Result{Passed: true}
}

func Fail(msg *Message) Result {
	return Result{Passed: false, Message: msg}
}

func FailWithKind(kind ErrorKind, msg *Message) Result {
	return Result{Passed: false, Message: msg, ErrorKind: kind}
}

// WithData returns a copy of r carrying data.
func (r Result) WithData(data map[string]interface{}) Result {
	r.Data = data
	return r
}
