package handler

import (
	"path/filepath"
	"time"

	"github.com/msomdec/travelupa/internal/domain"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

// DestinationDTO is the JSON representation of a destination record.
type DestinationDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURL      string `json:"imageUrl,omitempty"`
	ImageResource string `json:"imageResource,omitempty"`
}

func toDestinationDTO(d *domain.DestinationRecord) DestinationDTO {
	return DestinationDTO{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		ImageResource: d.ImageResource,
	}
}

func toDestinationDTOs(records []domain.DestinationRecord) []DestinationDTO {
	dtos := make([]DestinationDTO, len(records))
	for i := range records {
		dtos[i] = toDestinationDTO(&records[i])
	}
	return dtos
}

// LocalImageDTO is the JSON representation of a cached gallery image. Only the
// file name is exposed, never the server path.
type LocalImageDTO struct {
	Name         string `json:"name"`
	RecordID     string `json:"recordId,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl"`
	CreatedAt    string `json:"createdAt"`
}

func toLocalImageDTO(e *domain.LocalImageEntity) LocalImageDTO {
	name := filepath.Base(e.LocalPath)
	return LocalImageDTO{
		Name:         name,
		RecordID:     e.RecordID,
		ThumbnailURL: "/api/gallery/" + name + "/thumbnail",
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

func toLocalImageDTOs(entities []domain.LocalImageEntity) []LocalImageDTO {
	dtos := make([]LocalImageDTO, len(entities))
	for i := range entities {
		dtos[i] = toLocalImageDTO(&entities[i])
	}
	return dtos
}
