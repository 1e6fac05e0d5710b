// Package chat formats the plain-text chat payloads broadcast over Chat
// frames.
package chat

import "fmt"

// Format builds the wire payload for a chat message: the sender's display
// name and avatar letter, followed by the message body. maxPayload bounds
// the total length: the body is truncated to fit, and the prefix itself is
// cut only when it alone is longer than maxPayload.
func Format(name string, avatar byte, body []byte, maxPayload int) []byte {
	prefix := fmt.Sprintf("%s[%c] ", name, avatar)
	room := maxPayload - len(prefix)
	if room < 0 {
		if maxPayload < 0 {
			maxPayload = 0
		}
		return []byte(prefix[:maxPayload])
	}
	if len(body) > room {
		body = body[:room]
	}
	return append([]byte(prefix), body...)
}
