package api

import (
	"context"
	"net/http"
	"os"
	"testing"

	"guesthouse/internal/mail"
	"guesthouse/internal/models"
	"guesthouse/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAdminRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/bookings.json"},
		{http.MethodGet, "/contacts.json"},
		{http.MethodGet, "/testimonials.json"},
		{http.MethodGet, "/payments.json"},
		{http.MethodDelete, "/delete-testimonial/abc"},
		{http.MethodPost, "/admin/bookings/abc/refund"},
		{http.MethodPost, "/admin/bookings/abc/dates"},
		{http.MethodGet, "/admin/export/bookings.xlsx"},
		{http.MethodPost, "/admin/export/bookings"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp := s.do(rt.method, rt.path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp = s.do(rt.method, rt.path, nil, map[string]string{"Authorization": "forged-session"})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAdminLoginLogout(t *testing.T) {
	s := newTestServer(t)

	resp := s.postJSON("/admin/login", map[string]string{"username": testAdminUser, "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["success"])

	id := s.login()

	for _, header := range []string{id, "Bearer " + id} {
		resp = s.do(http.MethodGet, "/bookings.json", nil, map[string]string{"Authorization": header})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = s.do(http.MethodPost, "/admin/logout", nil, map[string]string{"Authorization": id})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/bookings.json", nil, map[string]string{"Authorization": id})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminListsAreArrays(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"Authorization": s.login()}

	for _, path := range []string{"/bookings.json", "/contacts.json", "/testimonials.json", "/payments.json"} {
		resp := s.do(http.MethodGet, path, nil, auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var list []map[string]any
		require.NoError(t, jsonDecode(resp, &list), path)
		assert.Empty(t, list, path)
	}

	id := s.createBooking()
	resp := s.do(http.MethodGet, "/bookings.json", nil, auth)
	var bookings []map[string]any
	require.NoError(t, jsonDecode(resp, &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, id, bookings[0]["id"])
}

func TestAdminDeleteTestimonial(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"Authorization": s.login()}

	resp := s.do(http.MethodDelete, "/delete-testimonial/missing", nil, auth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Testimonial not found", body["message"])

	created, err := s.svc.Testimonials.Add(context.Background(), service.TestimonialRequest{
		Name:    "Efua",
		Comment: "Quiet rooms and a lovely breakfast.",
		Rating:  4,
	})
	require.NoError(t, err)

	resp = s.do(http.MethodDelete, "/delete-testimonial/"+created.ID, nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Testimonial deleted successfully", body["message"])

	list, err := s.svc.Testimonials.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdminRefund(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"Authorization": s.login()}
	id := s.createBooking()

	resp := s.postJSON("/admin/bookings/"+id+"/refund", map[string]any{}, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.postJSON("/admin/bookings/missing/refund", map[string]any{"reason": "Guest cancelled"}, auth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.postJSON("/admin/bookings/"+id+"/refund", map[string]any{
		"reason": "Guest cancelled",
		"amount": 150,
		"method": "mobile money",
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	booking, err := s.svc.Bookings.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, booking.Status)
	assert.Equal(t, "Guest cancelled", booking.RefundReason)
	require.NotNil(t, booking.RefundAmount)
	assert.Equal(t, 150.0, *booking.RefundAmount)
	assert.Equal(t, "mobile money", booking.RefundMethod)
	assert.Contains(t, s.mailer.sent(), mail.KindRefund)
}

func TestAdminChangeDates(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"Authorization": s.login()}
	id := s.createBooking()

	resp := s.postJSON("/admin/bookings/"+id+"/dates", map[string]any{
		"checkin":  futureDate(20),
		"checkout": futureDate(19),
	}, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.postJSON("/admin/bookings/"+id+"/dates", map[string]any{
		"checkin":  futureDate(20),
		"checkout": futureDate(23),
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	booking := decodeBody(t, resp)["booking"].(map[string]any)
	assert.Equal(t, futureDate(20), booking["checkin"])
	assert.Equal(t, 3.0, booking["nights"])
	assert.Contains(t, s.mailer.sent(), mail.KindDateChange)
}

func TestAdminExportBookings(t *testing.T) {
	s := newTestServer(t)
	auth := map[string]string{"Authorization": s.login()}
	s.createBooking()
	s.createBooking()

	resp := s.do(http.MethodGet, "/admin/export/bookings.xlsx", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	resp = s.do(http.MethodPost, "/admin/export/bookings", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, 2.0, body["rows"])
	_, err = os.Stat(body["path"].(string))
	assert.NoError(t, err)
}
