package agent

import "github.com/nyxhq/nyx/plugin/ai"

// Session is the in-memory ordered replay of the conversation used to drive
// the live model exchange. The history store is the source of truth; the
// session is a cache owned exclusively by the engine and rebuilt from the
// store whenever an exchange aborts mid-flight.
type Session struct {
	contents []ai.Content
}

// NewSession creates a session seeded with the given replayed history.
func NewSession(contents []ai.Content) *Session {
	return &Session{contents: contents}
}

// Append adds one content group to the end of the session.
func (s *Session) Append(content ai.Content) {
	s.contents = append(s.contents, content)
}

// Contents returns the ordered conversation. The returned slice must not be
// mutated by callers; the engine is the only writer.
func (s *Session) Contents() []ai.Content {
	return s.contents
}

// Len returns the number of content groups held.
func (s *Session) Len() int {
	return len(s.contents)
}
