// Package history implements the chat-session cache: a self-adjusting
// splay tree keyed by chat id, with a load-at-start / replace-on-mutation
// snapshot contract.
package history

// Chat is one chat-session record. The id is an opaque key under string
// ordering; the timestamp drives presentation order only.
type Chat struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}
