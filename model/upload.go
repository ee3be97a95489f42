package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileUploadDescriptor carries the client-declared attributes of an
// uploaded document. Validated per-request, never persisted.
type FileUploadDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

const MaxUploadSize = 10 * 1024 * 1024

var AllowedUploadMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

var AllowedUploadExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// DangerousFilenamePatterns rejects executables, scripts and double
// extensions hiding behind an allowed one.
var DangerousFilenamePatterns = []string{
	".exe", ".bat", ".cmd", ".com", ".scr", ".pif",
	".js", ".vbs", ".ps1", ".sh", ".php", ".asp", ".aspx", ".jsp",
	".htaccess", ".dll", ".jar",
}

// Validate checks the descriptor against the size limit, the MIME and
// extension allow-lists and the dangerous-filename deny-list.
func (f *FileUploadDescriptor) Validate() error {
	if f.Size <= 0 {
		return fmt.Errorf("fichier vide")
	}
	if f.Size > MaxUploadSize {
		return fmt.Errorf("fichier trop volumineux (maximum 10 Mo)")
	}

	name := strings.ToLower(f.Name)
	for _, pattern := range DangerousFilenamePatterns {
		if strings.Contains(name, pattern) {
			return fmt.Errorf("type de fichier non autorisé")
		}
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("nom de fichier invalide")
	}

	ext := filepath.Ext(name)
	if !AllowedUploadExtensions[ext] {
		return fmt.Errorf("extension non autorisée (formats acceptés : PDF, JPG, PNG, WEBP)")
	}
	if !AllowedUploadMimeTypes[strings.ToLower(f.Type)] {
		return fmt.Errorf("format non autorisé (formats acceptés : PDF, JPG, PNG, WEBP)")
	}

	return nil
}
