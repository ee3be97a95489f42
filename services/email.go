package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
)

type EmailService struct {
	context.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	notifyEmail  string

	templates map[string]*template.Template
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")
	svc.notifyEmail = os.Getenv("NOTIFY_EMAIL")

	// Set defaults if not provided
	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = "Assurea"
	}
	if svc.notifyEmail == "" {
		svc.notifyEmail = svc.fromEmail
	}

	svc.templates = make(map[string]*template.Template)

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	err := svc.loadTemplates()
	if err != nil {
		log.WithError(err).Error("Failed to load email templates")
		// Don't fail startup, just log the error
	}

	return nil
}

// Email templates
const contactNotificationHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Nouveau message de contact - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1D4ED8; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .details { background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Nouveau message de contact</h1>
        </div>
        <div class="content">
            <div class="details">
                <strong>Nom :</strong> {{.Prenom}} {{.Nom}}<br>
                <strong>Email :</strong> {{.Email}}<br>
                <strong>Téléphone :</strong> {{.Telephone}}<br>
                <strong>Reçu le :</strong> {{.ReceivedAt}}
            </div>
            <div class="details">
                <strong>Message :</strong><br>
                <p>{{.Message}}</p>
            </div>
        </div>
        <div class="footer">
            <p>&copy; 2025 {{.AppName}}. Tous droits réservés.</p>
        </div>
    </div>
</body>
</html>
`

const devisNotificationHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Nouvelle demande de devis - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #059669; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .details { background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0; }
        .highlight { background-color: #ECFDF5; border-left: 4px solid #059669; padding: 10px; margin: 20px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Nouvelle demande de devis</h1>
        </div>
        <div class="content">
            <div class="highlight">
                <strong>Type d'assurance :</strong> {{.TypeAssurance}}
            </div>
            <div class="details">
                <strong>Nom :</strong> {{.Prenom}} {{.Nom}}<br>
                <strong>Email :</strong> {{.Email}}<br>
                <strong>Téléphone :</strong> {{.Telephone}}<br>
                {{if .Entreprise}}<strong>Entreprise :</strong> {{.Entreprise}}<br>{{end}}
                <strong>Reçu le :</strong> {{.ReceivedAt}}
            </div>
            {{if .Message}}
            <div class="details">
                <strong>Précisions :</strong><br>
                <p>{{.Message}}</p>
            </div>
            {{end}}
        </div>
        <div class="footer">
            <p>&copy; 2025 {{.AppName}}. Tous droits réservés.</p>
        </div>
    </div>
</body>
</html>
`

const rappelNotificationHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Demande de rappel - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #D97706; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .details { background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0; }
        .highlight { background-color: #FFFBEB; border-left: 4px solid #D97706; padding: 10px; margin: 20px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Demande de rappel téléphonique</h1>
        </div>
        <div class="content">
            <div class="details">
                <strong>Nom :</strong> {{.Prenom}} {{.Nom}}<br>
                <strong>Téléphone :</strong> {{.Telephone}}<br>
                <strong>Reçu le :</strong> {{.ReceivedAt}}
            </div>
            <div class="highlight">
                <strong>Créneau souhaité :</strong> {{.Creneau}}
            </div>
        </div>
        <div class="footer">
            <p>&copy; 2025 {{.AppName}}. Tous droits réservés.</p>
        </div>
    </div>
</body>
</html>
`

// Template data structures
type ContactNotificationData struct {
	AppName    string
	Prenom     string
	Nom        string
	Email      string
	Telephone  string
	Message    string
	ReceivedAt string
}

type DevisNotificationData struct {
	AppName       string
	Prenom        string
	Nom           string
	Email         string
	Telephone     string
	Entreprise    string
	TypeAssurance string
	Message       string
	ReceivedAt    string
}

type RappelNotificationData struct {
	AppName    string
	Prenom     string
	Nom        string
	Telephone  string
	Creneau    string
	ReceivedAt string
}

// Load email templates
func (svc *EmailService) loadTemplates() error {
	var err error

	svc.templates["contact"], err = template.New("contact").Parse(contactNotificationHTML)
	if err != nil {
		return fmt.Errorf("failed to parse contact email template: %v", err)
	}

	svc.templates["devis"], err = template.New("devis").Parse(devisNotificationHTML)
	if err != nil {
		return fmt.Errorf("failed to parse devis email template: %v", err)
	}

	svc.templates["rappel"], err = template.New("rappel").Parse(rappelNotificationHTML)
	if err != nil {
		return fmt.Errorf("failed to parse rappel email template: %v", err)
	}

	return nil
}

// Notify the brokerage about a new contact submission
func (svc *EmailService) SendContactNotification(req *dto.ContactRequest) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping contact notification")
		return nil
	}

	data := ContactNotificationData{
		AppName:    "Assurea",
		Prenom:     req.Prenom,
		Nom:        req.Nom,
		Email:      req.Email,
		Telephone:  req.Telephone,
		Message:    req.Message,
		ReceivedAt: time.Now().Format("02/01/2006 15:04"),
	}

	subject := fmt.Sprintf("Nouveau message de contact - %s %s", req.Prenom, req.Nom)
	return svc.sendTemplateEmail(svc.notifyEmail, subject, "contact", data)
}

// Notify the brokerage about a new quote request
func (svc *EmailService) SendDevisNotification(req *dto.DevisRequest) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping devis notification")
		return nil
	}

	data := DevisNotificationData{
		AppName:       "Assurea",
		Prenom:        req.Prenom,
		Nom:           req.Nom,
		Email:         req.Email,
		Telephone:     req.Telephone,
		Entreprise:    req.Entreprise,
		TypeAssurance: req.TypeAssurance,
		Message:       req.Message,
		ReceivedAt:    time.Now().Format("02/01/2006 15:04"),
	}

	subject := fmt.Sprintf("Demande de devis %s - %s %s", req.TypeAssurance, req.Prenom, req.Nom)
	return svc.sendTemplateEmail(svc.notifyEmail, subject, "devis", data)
}

// Notify the brokerage about a callback request
func (svc *EmailService) SendRappelNotification(req *dto.RappelRequest) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping rappel notification")
		return nil
	}

	data := RappelNotificationData{
		AppName:    "Assurea",
		Prenom:     req.Prenom,
		Nom:        req.Nom,
		Telephone:  req.Telephone,
		Creneau:    req.Creneau,
		ReceivedAt: time.Now().Format("02/01/2006 15:04"),
	}

	subject := fmt.Sprintf("Demande de rappel - %s %s", req.Prenom, req.Nom)
	return svc.sendTemplateEmail(svc.notifyEmail, subject, "rappel", data)
}

// Send template email
func (svc *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	err := tmpl.Execute(&body, data)
	if err != nil {
		return fmt.Errorf("failed to execute template: %v", err)
	}

	return svc.sendEmail(to, subject, body.String())
}

// Send email using SMTP
func (svc *EmailService) sendEmail(to, subject, body string) error {
	if svc.smtpHost == "" {
		return fmt.Errorf("SMTP not configured")
	}

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := smtp.SendMail(
		svc.smtpHost+":"+svc.smtpPort,
		auth,
		svc.fromEmail,
		[]string{to},
		msg,
	)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent successfully")
	return nil
}

// Test email configuration
func (svc *EmailService) TestEmailConfig() error {
	if svc.smtpHost == "" {
		return fmt.Errorf("SMTP host not configured")
	}

	testEmail := svc.fromEmail
	if testEmail == "" {
		return fmt.Errorf("from email not configured")
	}

	subject := "Test de configuration SMTP - Assurea"
	body := "<p>Cet email confirme que la configuration SMTP est opérationnelle.</p>"

	return svc.sendEmail(testEmail, subject, body)
}
