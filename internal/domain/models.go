package domain

import "time"

// Toast is a single user-visible error notification.
type Toast struct {
	Message string `json:"message"`
	// Occurrences counts how often the message was shown within the history
	// retention window, including this one.
	Occurrences int       `json:"occurrences"`
	RaisedAt    time.Time `json:"raised_at"`
}

// ToastRecord is the persisted history entry for a message.
type ToastRecord struct {
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	LastShown time.Time `json:"last_shown"`
	ExpiresAt time.Time `json:"expires_at"`
}
