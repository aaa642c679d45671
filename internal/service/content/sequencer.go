package content

import "sync"

// Ticket tags an in-flight fetch with the selection that started it
type Ticket struct {
	DocumentID string
	generation uint64
}

// Sequencer decides whether a fetch result may still be applied.
// The most recent selection wins: every Begin invalidates earlier tickets,
// including ones for the same document.
type Sequencer struct {
	mu          sync.Mutex
	generation  uint64
	requested   string
	lastApplied string
}

// NewSequencer creates a sequencer with nothing requested
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Begin records documentID as the requested document and returns its ticket.
// Until the ticket is accepted no document counts as applied.
func (s *Sequencer) Begin(documentID string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.requested = documentID
	s.lastApplied = ""
	return Ticket{DocumentID: documentID, generation: s.generation}
}

// IsCurrent reports whether t belongs to the latest selection
func (s *Sequencer) IsCurrent(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.generation == s.generation && t.DocumentID == s.requested
}

// Accept marks t's document as applied. Returns false for a stale ticket.
func (s *Sequencer) Accept(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.generation != s.generation || t.DocumentID != s.requested {
		return false
	}
	s.lastApplied = t.DocumentID
	return true
}

// Requested returns the currently requested document id
func (s *Sequencer) Requested() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// LastApplied returns the document whose content was fully applied, if any
func (s *Sequencer) LastApplied() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastApplied
}

// CanCapture reports whether the editor content for documentID came from a
// completed load and may be written to the recovery cache
func (s *Sequencer) CanCapture(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentID != "" && s.lastApplied == documentID
}
