package model

// Action tells the caller what kind of answer the pipeline produced.
type Action string

// Actions understood by the chat front end.
const (
	ActionChat             Action = "chat"
	ActionTransaction      Action = "transaction"
	ActionCancelRecurrence Action = "cancel_recurrence"
)

// Cancellation asks the caller to stop a recurring expense.
type Cancellation struct {
	Name string
}

// Result is the pipeline answer for one message: a chat reply, a
// transaction draft to confirm, or a recurrence cancellation.
type Result struct {
	Draft        *Draft
	Cancellation *Cancellation
	Action       Action
	Message      string
}

// Chat builds a conversational reply.
func Chat(text string) Result {
	return Result{Action: ActionChat, Message: text}
}

// Transaction builds a draft proposal with its confirmation message.
func Transaction(message string, draft *Draft) Result {
	return Result{Action: ActionTransaction, Message: message, Draft: draft}
}

// CancelRecurrence builds a request to stop the named recurring expense.
func CancelRecurrence(message, name string) Result {
	return Result{
		Action:       ActionCancelRecurrence,
		Message:      message,
		Cancellation: &Cancellation{Name: name},
	}
}

// IsTransaction reports whether the result carries a draft.
func (r Result) IsTransaction() bool {
	return r.Action == ActionTransaction && r.Draft != nil
}

// IsChat reports whether the result is a plain reply.
func (r Result) IsChat() bool {
	return r.Action == ActionChat
}
