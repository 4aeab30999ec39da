package models

// ContactMessage is a visitor's contact form submission. It is forwarded, never stored.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}
