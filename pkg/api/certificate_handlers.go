package api

import (
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/contextkeys"
	"github.com/tapecert/tapecert/pkg/httputil"
	"github.com/tapecert/tapecert/pkg/store"
)

// maxUploadBytes bounds a single image upload.
const maxUploadBytes = 32 << 20

// createCertificate handles POST /api/certificates
func (s *Server) createCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	if err := s.engine.CanCreateCertificate(caller); err != nil {
		s.decision("create_certificate", err)
		httputil.WriteErrKind(w, err)
		return
	}
	s.decision("create_certificate", nil)

	var req CertificateCreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	status := cert.StatusDraft
	if req.Status != "" {
		status = cert.Status(req.Status)
		if !status.Valid() {
			httputil.WriteBadRequest(w, "invalid status: "+req.Status)
			return
		}
	}

	now := time.Now().UTC()
	c := &cert.Certificate{
		ID:             uuid.NewString(),
		CertificateNo:  cert.NewCertificateNo(),
		RetailerID:     caller.ID, // ownership is the caller, never client input
		DealerName:     req.DealerName,
		DealerLicense:  req.DealerLicense,
		VehicleDetails: req.VehicleDetails,
		OwnerDetails:   req.OwnerDetails,
		FitmentDetails: req.FitmentDetails,
		FitmentDate:    now,
		Images:         map[cert.ImageTag]string{},
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateCertificate(ctx, c); err != nil {
		httputil.WriteErrKind(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.CertificatesCreatedTotal.Inc()
	}
	httputil.WriteCreated(w, c)
}

// listCertificates handles GET /api/certificates
func (s *Server) listCertificates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	scope, err := s.engine.ScopeCertificates(ctx, caller)
	s.decision("list_certificates", err)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}

	certs, err := s.store.ListCertificates(ctx, scope)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, certs)
}

// getCertificate handles GET /api/certificates/{id}
func (s *Server) getCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	// Existence before permission: unknown ids are 404 for everyone.
	c, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}

	if err := s.engine.CanAccessCertificate(ctx, caller, c); err != nil {
		s.decision("get_certificate", err)
		httputil.WriteErrKind(w, err)
		return
	}
	s.decision("get_certificate", nil)

	httputil.WriteSuccess(w, c)
}

// updateCertificate handles PUT /api/certificates/{id}
func (s *Server) updateCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req CertificateUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	upd := store.CertificateUpdate{
		DealerName:     req.DealerName,
		DealerLicense:  req.DealerLicense,
		VehicleDetails: req.VehicleDetails,
		OwnerDetails:   req.OwnerDetails,
		FitmentDetails: req.FitmentDetails,
	}
	if req.Status != nil {
		status := cert.Status(*req.Status)
		if !status.Valid() {
			httputil.WriteBadRequest(w, "invalid status: "+*req.Status)
			return
		}
		upd.Status = &status
	}

	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	c, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}
	if err := s.engine.CanMutateCertificate(caller, c); err != nil {
		s.decision("update_certificate", err)
		httputil.WriteErrKind(w, err)
		return
	}
	s.decision("update_certificate", nil)

	updated, err := s.store.UpdateCertificateFields(ctx, id, upd)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.CertificateUpdatesTotal.Inc()
	}
	httputil.WriteSuccess(w, updated)
}

// uploadImage handles POST /api/certificates/{id}/upload-image. The image
// slot is named by the image_type query parameter; the payload is the
// multipart "file" field, stored base64-encoded.
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	c, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}
	if err := s.engine.CanMutateCertificate(caller, c); err != nil {
		s.decision("upload_image", err)
		httputil.WriteErrKind(w, err)
		return
	}
	s.decision("upload_image", nil)

	tag := cert.ImageTag(httputil.ParseQueryString(r, "image_type", ""))
	if !tag.Valid() {
		httputil.WriteBadRequest(w, "invalid image type: "+string(tag))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read uploaded file")
		return
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	if err := s.store.AttachImage(ctx, id, tag, encoded); err != nil {
		httputil.WriteErrKind(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ImagesAttachedTotal.WithLabelValues(string(tag)).Inc()
	}
	httputil.WriteSuccess(w, UploadImageResponse{
		Message:   "image uploaded successfully",
		ImageType: string(tag),
	})
}
