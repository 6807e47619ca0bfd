package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nikahsufiyana/nikah-backend/internal/config"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
)

var cloudinaryService *services.CloudinaryService

func InitCloudinaryService(cfg *config.Config) error {
	service, err := services.NewCloudinaryService(
		cfg.CloudinaryName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
		cfg.CloudinaryFolder,
	)
	if err != nil {
		return err
	}
	cloudinaryService = service
	return nil
}

type Photo struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url,omitempty"`
}

type PhotosResponse struct {
	Success  bool                    `json:"success"`
	Decision services.AccessDecision `json:"decision"`
	Photos   []Photo                 `json:"photos"`
}

// UploadPhoto stores a photo for the caller under the category in the path.
func UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if cloudinaryService == nil {
		writeFailure(w, http.StatusServiceUnavailable, "Photo storage is not configured")
		return
	}
	category, err := models.ParsePhotoCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(services.MaxPhotoBytes); err != nil {
		writeFailure(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	publicID, url, err := cloudinaryService.UploadPhoto(r.Context(), file, userID, category)
	if errors.Is(err, services.ErrInvalidArgument) {
		writeFailure(w, http.StatusRequestEntityTooLarge, "Photo is too large")
		return
	}
	if err != nil {
		log.Printf("photo upload for %s failed: %v", userID, err)
		writeFailure(w, http.StatusBadGateway, "Failed to upload photo")
		return
	}
	if err := core.Profiles.AddPhoto(r.Context(), userID, category, publicID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Photo uploaded successfully",
		"photo":   Photo{PublicID: publicID, URL: url},
	})
}

// GetPhotos returns the owner's photos in a category if the caller may see
// them. Delivery URLs are only built after the check passes.
func GetPhotos(w http.ResponseWriter, r *http.Request) {
	d, ownerID, ok := decideFromPath(w, r)
	if !ok {
		return
	}
	if !d.Allowed {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success":  false,
			"message":  "You do not have access to these photos",
			"decision": d,
		})
		return
	}

	ids, err := core.Profiles.Photos(r.Context(), ownerID, d.Category, 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	photos := make([]Photo, 0, len(ids))
	for _, id := range ids {
		p := Photo{PublicID: id}
		if cloudinaryService != nil {
			if url, err := cloudinaryService.DeliveryURL(id); err == nil {
				p.URL = url
			}
		}
		photos = append(photos, p)
	}
	writeJSON(w, http.StatusOK, PhotosResponse{Success: true, Decision: d, Photos: photos})
}

// CheckAccess reports the decision for the caller without returning media.
func CheckAccess(w http.ResponseWriter, r *http.Request) {
	d, _, ok := decideFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"allowed":  d.Allowed,
		"decision": d,
	})
}

// decideFromPath runs the resolver for {ownerID}/{category}. An indeterminate
// result is written as 503 with allowed=false.
func decideFromPath(w http.ResponseWriter, r *http.Request) (services.AccessDecision, string, bool) {
	viewerID, ok := requireUser(w, r)
	if !ok {
		return services.AccessDecision{}, "", false
	}
	ownerID := services.NormalizeUserID(chi.URLParam(r, "ownerID"))
	category, err := models.ParsePhotoCategory(chi.URLParam(r, "category"))
	if err != nil || ownerID == "" {
		writeFailure(w, http.StatusBadRequest, "invalid owner or category")
		return services.AccessDecision{}, "", false
	}

	d, err := core.Resolver.Decide(r.Context(), viewerID, ownerID, category)
	if errors.Is(err, services.ErrCorruptRecord) {
		log.Printf("access check %s -> %s/%s hit a corrupt record: %v", viewerID, ownerID, category, err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"allowed": false,
			"message": "Access could not be determined",
		})
		return d, "", false
	}
	if errors.Is(err, services.ErrIndeterminate) {
		log.Printf("access check %s -> %s/%s indeterminate: %v", viewerID, ownerID, category, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"allowed": false,
			"message": "Access could not be determined",
		})
		return d, "", false
	}
	if err != nil {
		writeServiceError(w, err)
		return d, "", false
	}
	return d, ownerID, true
}
