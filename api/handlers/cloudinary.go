package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	cldapi "github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/google/uuid"

	"github.com/nyagrik/nyay-api/config"
)

// CloudinaryHandler issues signed upload parameters so the browser can push
// case documents straight to Cloudinary without the file passing through us
type CloudinaryHandler struct{}

// GenerateSignature signs an upload request for the documents folder. The
// public id is generated server-side so clients cannot overwrite each
// other's uploads.
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	if apiSecret == "" {
		config.ErrorStatus("upload signing is not configured", http.StatusInternalServerError, w, nil)
		return
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	publicID := uuid.NewString()
	folder := "nyay/documents"

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("public_id", publicID)
	params.Set("folder", folder)
	if preset := os.Getenv("CLOUDINARY_UPLOAD_PRESET"); preset != "" {
		params.Set("upload_preset", preset)
	}

	signature, err := cldapi.SignParameters(params, apiSecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload parameters", http.StatusInternalServerError, w, err)
		return
	}

	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
		"publicId":  publicID,
		"folder":    folder,
		"apiKey":    os.Getenv("CLOUDINARY_API_KEY"),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
