package api

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/cert"
)

func sampleCreateRequest() CertificateCreateRequest {
	return CertificateCreateRequest{
		DealerName:    "Apex Fitments",
		DealerLicense: "DL-9000",
		VehicleDetails: cert.VehicleDetails{
			RegistrationNo:   "KA01AB1234",
			ChassisNo:        "CH-778899",
			VehicleMake:      "Tata",
			VehicleModel:     "LPT 1613",
			RegistrationYear: 2021,
			EngineNo:         "EN-445566",
		},
		OwnerDetails: cert.OwnerDetails{
			OwnerName:     "R. Sharma",
			ContactNumber: "+91-9800000000",
		},
		FitmentDetails: cert.FitmentDetails{
			Red20mm:   4.5,
			White50mm: 12,
			C3Plates:  2,
		},
	}
}

func TestCreateCertificate(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)

	rec := ts.do(http.MethodPost, "/api/certificates", ts.token("shop"), sampleCreateRequest())
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var created cert.Certificate
	decodeJSON(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(created.CertificateNo, "CERT"))
	assert.Len(t, created.CertificateNo, 12)
	assert.Equal(t, shop.ID, created.RetailerID)
	assert.Equal(t, cert.StatusDraft, created.Status)
	assert.NotNil(t, created.Images)
}

func TestCreateCertificate_SubmittedUpFront(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("shop", auth.RoleRetailer)

	req := sampleCreateRequest()
	req.Status = "submitted"
	rec := ts.do(http.MethodPost, "/api/certificates", ts.token("shop"), req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created cert.Certificate
	decodeJSON(t, rec, &created)
	assert.Equal(t, cert.StatusSubmitted, created.Status)
}

func TestCreateCertificate_InvalidStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("shop", auth.RoleRetailer)

	req := sampleCreateRequest()
	req.Status = "approved"
	rec := ts.do(http.MethodPost, "/api/certificates", ts.token("shop"), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCertificate_NonRetailersForbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("admin", auth.RoleAdmin)
	ts.seedUser("dist", auth.RoleDistributor)

	for _, caller := range []string{"admin", "dist"} {
		rec := ts.do(http.MethodPost, "/api/certificates", ts.token(caller), sampleCreateRequest())
		assert.Equal(t, http.StatusForbidden, rec.Code, "caller %s", caller)
	}
}

func TestGetCertificate_VisibilityMatrix(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("admin", auth.RoleAdmin)
	dist := ts.seedUser("dist", auth.RoleDistributor)
	ts.seedUser("outsider-dist", auth.RoleDistributor)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	ts.seedUser("other-shop", auth.RoleRetailer)
	ts.link(dist.ID, shop.ID)

	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	tests := []struct {
		caller   string
		wantCode int
	}{
		{"shop", http.StatusOK},
		{"admin", http.StatusOK},
		{"dist", http.StatusOK},
		{"outsider-dist", http.StatusForbidden},
		{"other-shop", http.StatusForbidden},
	}
	for _, tt := range tests {
		rec := ts.do(http.MethodGet, "/api/certificates/"+c.ID, ts.token(tt.caller), nil)
		assert.Equal(t, tt.wantCode, rec.Code, "caller %s", tt.caller)
	}
}

func TestGetCertificate_UnknownIDIs404ForEveryone(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("admin", auth.RoleAdmin)
	ts.seedUser("shop", auth.RoleRetailer)

	for _, caller := range []string{"admin", "shop"} {
		rec := ts.do(http.MethodGet, "/api/certificates/no-such-id", ts.token(caller), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "caller %s", caller)
	}
}

func TestListCertificates_Scoped(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("admin", auth.RoleAdmin)
	dist := ts.seedUser("dist", auth.RoleDistributor)
	shop1 := ts.seedUser("shop1", auth.RoleRetailer)
	shop2 := ts.seedUser("shop2", auth.RoleRetailer)
	ts.link(dist.ID, shop1.ID)

	ts.seedCertificate(shop1.ID, cert.StatusDraft)
	ts.seedCertificate(shop1.ID, cert.StatusSubmitted)
	ts.seedCertificate(shop2.ID, cert.StatusDraft)

	tests := []struct {
		caller string
		want   int
	}{
		{"admin", 3},
		{"dist", 2},
		{"shop1", 2},
		{"shop2", 1},
	}
	for _, tt := range tests {
		rec := ts.do(http.MethodGet, "/api/certificates", ts.token(tt.caller), nil)
		require.Equal(t, http.StatusOK, rec.Code, "caller %s", tt.caller)
		var certs []cert.Certificate
		decodeJSON(t, rec, &certs)
		assert.Len(t, certs, tt.want, "caller %s", tt.caller)
	}
}

func TestListCertificates_UnlinkedDistributorGetsEmptyList(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("dist", auth.RoleDistributor)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	ts.seedCertificate(shop.ID, cert.StatusDraft)

	rec := ts.do(http.MethodGet, "/api/certificates", ts.token("dist"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateCertificate_OwnerPartialUpdate(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	dealer := "Summit Fitments"
	status := "submitted"
	rec := ts.do(http.MethodPut, "/api/certificates/"+c.ID, ts.token("shop"), CertificateUpdateRequest{
		DealerName: &dealer,
		Status:     &status,
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var updated cert.Certificate
	decodeJSON(t, rec, &updated)
	assert.Equal(t, "Summit Fitments", updated.DealerName)
	assert.Equal(t, cert.StatusSubmitted, updated.Status)
	// Untouched fields survive.
	assert.Equal(t, c.DealerLicense, updated.DealerLicense)
	assert.Equal(t, c.VehicleDetails, updated.VehicleDetails)
	assert.Equal(t, c.CertificateNo, updated.CertificateNo)
	assert.Equal(t, c.RetailerID, updated.RetailerID)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt) || updated.UpdatedAt.Equal(c.UpdatedAt))
}

func TestUpdateCertificate_OnlyOwnerMayWrite(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("admin", auth.RoleAdmin)
	dist := ts.seedUser("dist", auth.RoleDistributor)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	ts.seedUser("other-shop", auth.RoleRetailer)
	ts.link(dist.ID, shop.ID)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	dealer := "Hijacked"
	// Admin and the linked distributor can read this certificate but may
	// not write it; an unrelated retailer gets the same refusal.
	for _, caller := range []string{"admin", "dist", "other-shop"} {
		rec := ts.do(http.MethodPut, "/api/certificates/"+c.ID, ts.token(caller), CertificateUpdateRequest{
			DealerName: &dealer,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code, "caller %s", caller)
	}
}

func TestUpdateCertificate_UnknownID(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser("shop", auth.RoleRetailer)

	dealer := "Nobody"
	rec := ts.do(http.MethodPut, "/api/certificates/no-such-id", ts.token("shop"), CertificateUpdateRequest{
		DealerName: &dealer,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCertificate_InvalidStatus(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	status := "archived"
	rec := ts.do(http.MethodPut, "/api/certificates/"+c.ID, ts.token("shop"), CertificateUpdateRequest{
		Status: &status,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// uploadFile posts a multipart image to the upload endpoint.
func (ts *testServer) uploadFile(token, certID, imageType string, content []byte) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "photo.jpg")
	require.NoError(ts.t, err)
	_, err = fw.Write(content)
	require.NoError(ts.t, err)
	require.NoError(ts.t, w.Close())

	path := "/api/certificates/" + certID + "/upload-image"
	if imageType != "" {
		path += "?image_type=" + imageType
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func TestUploadImage(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	payload := []byte("front-of-truck-jpeg-bytes")
	rec := ts.uploadFile(ts.token("shop"), c.ID, "front", payload)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp UploadImageResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "front", resp.ImageType)

	getRec := ts.do(http.MethodGet, "/api/certificates/"+c.ID, ts.token("shop"), nil)
	require.Equal(t, http.StatusOK, getRec.Code)
	var fetched cert.Certificate
	decodeJSON(t, getRec, &fetched)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), fetched.Images[cert.TagFront])
}

func TestUploadImage_OverwritesSameSlot(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)
	token := ts.token("shop")

	require.Equal(t, http.StatusOK, ts.uploadFile(token, c.ID, "back", []byte("first")).Code)
	require.Equal(t, http.StatusOK, ts.uploadFile(token, c.ID, "back", []byte("second")).Code)

	getRec := ts.do(http.MethodGet, "/api/certificates/"+c.ID, token, nil)
	var fetched cert.Certificate
	decodeJSON(t, getRec, &fetched)
	require.Len(t, fetched.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("second")), fetched.Images[cert.TagBack])
}

func TestUploadImage_InvalidType(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	rec := ts.uploadFile(ts.token("shop"), c.ID, "roof", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	missing := ts.uploadFile(ts.token("shop"), c.ID, "", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestUploadImage_OnlyOwnerMayUpload(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	ts.seedUser("other-shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	rec := ts.uploadFile(ts.token("other-shop"), c.ID, "front", []byte("x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadImage_MissingFileField(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.seedUser("shop", auth.RoleRetailer)
	c := ts.seedCertificate(shop.ID, cert.StatusDraft)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/certificates/"+c.ID+"/upload-image?image_type=front", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.token("shop"))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
