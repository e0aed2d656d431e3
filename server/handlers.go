package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/safenest/server/assistant"
	"github.com/Daskott/safenest/server/auth"
	"github.com/Daskott/safenest/server/auth/key"
	"github.com/Daskott/safenest/server/models"
	"gorm.io/gorm"
)

const SERVICE_NAME = "SafeNest Backend"

func (s *Server) health(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   SERVICE_NAME,
	})
}

func (s *Server) jwks(rw http.ResponseWriter, r *http.Request) {
	jwk, err := s.keyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeJSON(rw, key.ExportJWKAsJWKS(jwk))
}

// ---------------------------------------------------------------------------------//
// Accounts
// --------------------------------------------------------------------------------//

func (s *Server) register(rw http.ResponseWriter, r *http.Request) {
	data := registerRequest{}
	if !s.decodeAndValidate(rw, r, &data, false) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(data.Email))

	_, err := s.store.FindUserBy(r.Context(), "email", email)
	if err == nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"email already exists"}}, http.StatusBadRequest)
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeStoreError(rw, err)
		return
	}

	user := models.User{Name: data.Name, Email: email, Password: data.Password, PhoneNumber: data.PhoneNumber}
	err = s.store.CreateUser(r.Context(), &user)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	s.writeTokenResponse(rw, &user, http.StatusCreated)
}

func (s *Server) login(rw http.ResponseWriter, r *http.Request) {
	data := loginRequest{}
	if !s.decodeAndValidate(rw, r, &data, false) {
		return
	}

	user, err := s.store.FindUserWithPassword(r.Context(), strings.ToLower(strings.TrimSpace(data.Email)))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeStoreError(rw, err)
		return
	}

	if user == nil || !auth.CheckPasswordHash(data.Password, user.Password) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	s.writeTokenResponse(rw, user, http.StatusOK)
}

func (s *Server) writeTokenResponse(rw http.ResponseWriter, user *models.User, status int) {
	token, err := auth.EncodeJWT(auth.NewClaims(user.ID, user.Name, user.Email, user.IsAdmin()), s.keyPair)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"token": token, "user": user},
	}, status)
}

// ---------------------------------------------------------------------------------//
// Family
// --------------------------------------------------------------------------------//

func (s *Server) familyMembers(rw http.ResponseWriter, r *http.Request) {
	members, err := s.store.ActiveFamilyMembers(r.Context(), guardianID(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"family": members}}, http.StatusOK)
}

func (s *Server) addFamilyMember(rw http.ResponseWriter, r *http.Request) {
	data := familyMemberRequest{}
	if !s.decodeAndValidate(rw, r, &data, false) {
		return
	}

	member := models.FamilyMember{
		Name:         data.Name,
		Phone:        data.Phone,
		Email:        data.Email,
		Relationship: data.Relationship,
		AvatarURL:    data.AvatarURL,
	}

	err := s.store.AddFamilyMember(r.Context(), guardianID(r), &member)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"member": member}}, http.StatusCreated)
}

func (s *Server) deactivateFamilyMember(rw http.ResponseWriter, r *http.Request) {
	memberID, err := uintVar(r, "mid")
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	err = s.store.DeactivateFamilyMember(r.Context(), guardianID(r), memberID)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Locations
// --------------------------------------------------------------------------------//

// addLocation stores the reading & acks straight away. Zone checks run on the worker pool
// and their failures never reach the caller.
func (s *Server) addLocation(rw http.ResponseWriter, r *http.Request) {
	data := locationRequest{}
	if !s.decodeAndValidate(rw, r, &data, false) {
		return
	}

	guardianID := guardianID(r)
	_, err := s.store.FindFamilyMember(r.Context(), guardianID, data.MemberID)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	location := models.Location{
		MemberID:     data.MemberID,
		Latitude:     *data.Latitude,
		Longitude:    *data.Longitude,
		Address:      data.Address,
		BatteryLevel: data.BatteryLevel,
	}

	err = s.store.AddLocation(r.Context(), &location)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	err = s.checker.Enqueue(s.workerPool, guardianID, &location)
	if err != nil {
		logg.Errorf("unable to enqueue zone check for location %v: %v", location.ID, err)
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"message": "Location updated successfully"},
	}, http.StatusOK)
}

func (s *Server) currentLocations(rw http.ResponseWriter, r *http.Request) {
	locations, err := s.store.CurrentLocations(r.Context(), guardianID(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"locations": locations}}, http.StatusOK)
}

func (s *Server) locationHistory(rw http.ResponseWriter, r *http.Request) {
	memberID, err := uintVar(r, "mid")
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	locations, paging, err := s.store.LocationHistory(r.Context(), guardianID(r), memberID, pageParam(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"locations": locations, "paging": paging},
	}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Safe zones
// --------------------------------------------------------------------------------//

func (s *Server) safeZones(rw http.ResponseWriter, r *http.Request) {
	zones, err := s.store.SafeZones(r.Context(), guardianID(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"safe_zones": zones}}, http.StatusOK)
}

func (s *Server) createSafeZone(rw http.ResponseWriter, r *http.Request) {
	data := safeZoneRequest{}
	if !s.decodeAndValidate(rw, r, &data, false) {
		return
	}

	zone := models.SafeZone{
		Name:      data.Name,
		Latitude:  *data.Latitude,
		Longitude: *data.Longitude,
		Radius:    data.Radius,
	}

	err := s.store.CreateSafeZone(r.Context(), guardianID(r), &zone)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"zone": zone}}, http.StatusCreated)
}

// ---------------------------------------------------------------------------------//
// Emergency & alerts
// --------------------------------------------------------------------------------//

func (s *Server) triggerEmergency(rw http.ResponseWriter, r *http.Request) {
	data := emergencyRequest{}
	if !s.decodeAndValidate(rw, r, &data, true) {
		return
	}

	guardianID := guardianID(r)
	result, err := s.recorder.RecordEmergency(r.Context(), guardianID, data.Message)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	if data.Location != nil {
		logg.Warnf("Emergency alert %v raised by guardian %v at (%v, %v)",
			result.AlertID, guardianID, data.Location.Latitude, data.Location.Longitude)
	} else {
		logg.Warnf("Emergency alert %v raised by guardian %v", result.AlertID, guardianID)
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data: map[string]interface{}{
			"message":  "Emergency alert activated",
			"alert_id": result.AlertID,
			"actions":  result.Actions,
		},
	}, http.StatusOK)
}

func (s *Server) alerts(rw http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.RecentAlerts(r.Context(), guardianID(r), models.RECENT_ALERTS_LIMIT)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"alerts": alerts}}, http.StatusOK)
}

func (s *Server) markAlertRead(rw http.ResponseWriter, r *http.Request) {
	alertID, err := uintVar(r, "aid")
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	err = s.store.MarkAlertRead(r.Context(), guardianID(r), alertID)
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Insights & chat
// --------------------------------------------------------------------------------//

func (s *Server) insights(rw http.ResponseWriter, r *http.Request) {
	insights, err := s.aggregator.ForGuardian(r.Context(), guardianID(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: insights}, http.StatusOK)
}

func (s *Server) insightsHistory(rw http.ResponseWriter, r *http.Request) {
	insights, paging, err := s.store.FetchInsights(r.Context(), guardianID(r), pageParam(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"insights": insights, "paging": paging},
	}, http.StatusOK)
}

func (s *Server) chat(rw http.ResponseWriter, r *http.Request) {
	data := chatRequest{}
	if !s.decodeAndValidate(rw, r, &data, false) {
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data: map[string]interface{}{
			"response":  assistant.Reply(data.Message),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Admin
// --------------------------------------------------------------------------------//

func (s *Server) jobs(rw http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.JobStatusNameMap[status] {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid job status: " + status}}, http.StatusBadRequest)
		return
	}

	jobs, paging, err := s.store.FetchJobs(r.Context(), status, pageParam(r))
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	stats, err := s.store.CurrentJobsStats(r.Context())
	if err != nil {
		writeStoreError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"jobs": jobs, "paging": paging, "stats": stats},
	}, http.StatusOK)
}
