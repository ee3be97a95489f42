package dto

// ContactRequest is the body of POST /api/v1/contact after sanitization.
type ContactRequest struct {
	Prenom    string `json:"prenom" validate:"required,max=100"`
	Nom       string `json:"nom" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Telephone string `json:"telephone" validate:"required,phone_fr"`
	Message   string `json:"message,omitempty" validate:"max=1000"`
}

// DevisRequest is the body of POST /api/v1/devis (quote request).
type DevisRequest struct {
	Prenom        string `json:"prenom" validate:"required,max=100"`
	Nom           string `json:"nom" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Telephone     string `json:"telephone" validate:"required,phone_fr"`
	TypeAssurance string `json:"typeAssurance" validate:"required,max=50"`
	Entreprise    string `json:"entreprise,omitempty" validate:"max=100"`
	Message       string `json:"message,omitempty" validate:"max=1000"`
}

// RappelRequest is the body of POST /api/v1/rappel (callback request).
type RappelRequest struct {
	Prenom    string `json:"prenom" validate:"required,max=100"`
	Nom       string `json:"nom" validate:"required,max=100"`
	Telephone string `json:"telephone" validate:"required,phone_fr"`
	Creneau   string `json:"creneau,omitempty" validate:"max=50"`
}

// NewsletterRequest is the body of POST /api/v1/newsletter.
type NewsletterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type FormSubmissionResponse struct {
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

type DocumentUploadResponse struct {
	Reference string `json:"reference"`
	FileName  string `json:"file_name"`
	Size      int64  `json:"size"`
}
