package server

import "github.com/Daskott/safenest/server/auth"

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type DecodedJWT struct {
	Claims     *auth.SafeNestTokenClaims
	GuardianID uint
	ErrorMsg   string
}

type RequestContextKey string

const DECODED_JWT_KEY = RequestContextKey("decodedJWT")

type registerRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,password"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type familyMemberRequest struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"omitempty,e164"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship"`
	AvatarURL    string `json:"avatar_url" validate:"omitempty,url"`
}

type locationRequest struct {
	MemberID     uint     `json:"member_id" validate:"required"`
	Latitude     *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Address      *string  `json:"address"`
	BatteryLevel *int     `json:"battery_level" validate:"omitempty,min=0,max=100"`
}

type safeZoneRequest struct {
	Name      string   `json:"name" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Radius    float64  `json:"radius" validate:"omitempty,gt=0"`
}

type emergencyRequest struct {
	Message  string `json:"message"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}
