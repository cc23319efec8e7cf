// Package email sends operator notifications when the generation
// pipeline produces a note. Only the mock implementation is used in
// tests; production uses Resend.
package email

import (
	"log/slog"
	"sync"
)

// Template names.
const (
	TemplateNoteReady = "note_ready"
)

// NoteReadyData is the template data for pipeline-completion emails.
type NoteReadyData struct {
	Title    string
	DocID    string
	Category string
}

// Service defines the interface for sending emails.
type Service interface {
	// Send sends an email using the specified template.
	Send(to, templateName string, data any) error
}

// SentEmail represents a captured email for testing.
type SentEmail struct {
	To       string
	Template string
	Data     any
}

// MockService captures emails instead of sending them.
type MockService struct {
	mu     sync.Mutex
	Emails []SentEmail
	log    *slog.Logger
}

// NewMockService creates a new mock email service.
func NewMockService(log *slog.Logger) *MockService {
	return &MockService{log: log}
}

// Send captures the email and logs it for manual testing visibility.
func (m *MockService) Send(to, templateName string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = append(m.Emails, SentEmail{To: to, Template: templateName, Data: data})
	if m.log != nil {
		m.log.Info("mock email sent", "to", to, "template", templateName)
	}
	return nil
}

// LastEmail returns the most recently sent email, or the zero value.
func (m *MockService) LastEmail() SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Emails) == 0 {
		return SentEmail{}
	}
	return m.Emails[len(m.Emails)-1]
}

// Count returns the number of captured emails.
func (m *MockService) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails)
}
