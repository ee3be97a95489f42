package model

import "time"

// SecurityEvent is the write-only audit row persisted for every pipeline
// outcome. There is no query path besides the admin listing.
type SecurityEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text;not null"`
	Event     string    `json:"event" gorm:"not null;index;size:64"`
	IP        string    `json:"ip" gorm:"index;size:64"`
	UserAgent string    `json:"user_agent" gorm:"size:512"`
	Endpoint  string    `json:"endpoint" gorm:"size:50"`
	Severity  string    `json:"severity" gorm:"size:16"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
}

// Lead is the record written after a form submission clears every gate.
type Lead struct {
	ID            string    `json:"id" gorm:"primaryKey;type:text;not null"`
	Source        string    `json:"source" gorm:"not null;size:50"`
	Prenom        string    `json:"prenom" gorm:"size:100"`
	Nom           string    `json:"nom" gorm:"size:100"`
	Email         string    `json:"email" gorm:"size:255"`
	Telephone     string    `json:"telephone" gorm:"size:20"`
	Entreprise    string    `json:"entreprise,omitempty" gorm:"size:100"`
	TypeAssurance string    `json:"type_assurance,omitempty" gorm:"size:50"`
	Message       string    `json:"message,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
}
