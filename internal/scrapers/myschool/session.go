package myschool

import (
	"sync"

	random "github.com/mazen160/go-random"
)

// Session accumulates the outcomes of every fetch made during one scrape call.
// It is safe for concurrent use by batch workers.
type Session struct {
	ID string

	mutex       sync.Mutex
	fetched     int
	blocked     bool
	blockedURLs []string
	lastStatus  int
}

func NewSession() *Session {
	id, err := random.String(8)
	if err != nil {
		id = "session"
	}
	return &Session{ID: id}
}

// Record folds a fetch outcome into the session.
func (s *Session) Record(outcome FetchOutcome) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.fetched++
	if outcome.Status != 0 {
		s.lastStatus = outcome.Status
	}
	if outcome.Blocked {
		s.blocked = true
		s.blockedURLs = append(s.blockedURLs, outcome.URL)
	}
}

// Blocked reports whether any fetch of the session hit a 403 or a bot challenge.
func (s *Session) Blocked() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.blocked
}

func (s *Session) Fetched() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.fetched
}

func (s *Session) BlockedURLs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.blockedURLs...)
}

func (s *Session) LastStatus() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastStatus
}
