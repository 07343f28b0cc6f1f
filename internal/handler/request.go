package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/google/uuid"
)

const (
	// maxJSONBody bounds JSON request bodies.
	maxJSONBody = 1 << 20

	// maxMultipartMemory is how much of a multipart form is held in memory;
	// the rest spills to temporary files.
	maxMultipartMemory = 32 << 20

	// maxUploadBody bounds multipart bodies: one attachment plus form fields.
	maxUploadBody = domain.MaxAttachmentSize + 1<<20
)

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Errorf(domain.ETOOLARGE, "", "Request body too large")
		}
		return domain.Errorf(domain.EINVALID, "", "Invalid request body")
	}
	return nil
}

// parseMultipart parses an upload form under the upload size limit.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Errorf(domain.ETOOLARGE, "", "Upload too large")
		}
		return domain.Errorf(domain.EINVALID, "", "Failed to parse form")
	}
	return nil
}

// formAttachment reads an optional file field. A missing or empty file
// returns nil.
func formAttachment(r *http.Request, field string) (*domain.Attachment, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, domain.Errorf(domain.EINVALID, "", "Failed to read %s", field)
	}
	defer file.Close()

	return readAttachment(file, header)
}

func readAttachment(file multipart.File, header *multipart.FileHeader) (*domain.Attachment, error) {
	if err := domain.ValidateAttachmentSize("", int(header.Size)); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(file, domain.MaxAttachmentSize+1))
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, "", "Failed to read upload")
	}
	if err := domain.ValidateAttachmentSize("", len(data)); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &domain.Attachment{Data: data, Filename: header.Filename}, nil
}

// formFloat parses an optional float field. Blank returns nil.
func formFloat(r *http.Request, field string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, "", "%s must be a number", field)
	}
	return &v, nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("", "Invalid ID")
	}
	return id, nil
}

// principal returns the authenticated caller. Routes are wrapped in
// RequireUser, so a nil principal is a wiring bug.
func principal(r *http.Request) (*auth.Principal, error) {
	p := auth.GetPrincipalFromRequest(r)
	if p == nil {
		return nil, domain.Unauthorized("", "Authentication required")
	}
	return p, nil
}

// parseStatuses reads a comma-separated ?status= filter.
func parseStatuses(raw string) ([]domain.ComplaintStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []domain.ComplaintStatus
	for _, part := range strings.Split(raw, ",") {
		s := domain.ComplaintStatus(strings.ToUpper(strings.TrimSpace(part)))
		if !s.IsValid() {
			return nil, domain.Errorf(domain.EINVALID, "", "Unrecognized status %q", part)
		}
		out = append(out, s)
	}
	return out, nil
}
