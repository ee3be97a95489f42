package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/shared"
)

// MediaService validates and stores the supporting documents attached to
// quote requests.
type MediaService struct {
	appContext.DefaultService
	minioSvc *MinIOService
}

const MEDIA_SVC = "media_svc"

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func (svc *MediaService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	return nil
}

// UploadQuoteDocument checks the file against the upload policy and
// stores it under a generated reference. The descriptor is validated
// before a single byte is read.
func (svc *MediaService) UploadQuoteDocument(file *multipart.FileHeader) (*dto.DocumentUploadResponse, error) {
	descriptor := &model.FileUploadDescriptor{
		Name: file.Filename,
		Size: file.Size,
		Type: file.Header.Get("Content-Type"),
	}

	if err := descriptor.Validate(); err != nil {
		return nil, shared.NewBadRequestError(err, err.Error())
	}

	reference := uuid.New().String()
	objectName := fmt.Sprintf("devis/%s/%s%s", time.Now().Format("2006-01"), reference, filepath.Ext(descriptor.Name))

	src, err := file.Open()
	if err != nil {
		return nil, shared.NewInternalError(err, "Impossible de lire le fichier")
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.minioSvc.PutObject(ctx, objectName, src, descriptor.Size, descriptor.Type); err != nil {
		log.WithError(err).WithField("object", objectName).Error("Failed to store document")
		return nil, shared.NewInternalError(err, "Échec de l'enregistrement du document")
	}

	return &dto.DocumentUploadResponse{
		Reference: reference,
		FileName:  descriptor.Name,
		Size:      descriptor.Size,
	}, nil
}
