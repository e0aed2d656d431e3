package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/safenest/server/auth"
	"github.com/Daskott/safenest/server/models"
	"github.com/Daskott/safenest/utils"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func writeJSON(rw http.ResponseWriter, body interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(body)
}

// writeStoreError maps store errors to a status code: not found is 404,
// running out of request time is 503, anything else 500
func writeStoreError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMemberNotFound):
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeResponse(rw, ResponsePayload{Errors: []string{"record not found"}}, http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		writeResponse(rw, ResponsePayload{Errors: []string{"request timed out"}}, http.StatusServiceUnavailable)
	default:
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
	}
}

// decodeAndValidate decodes the json body into data & runs the struct validations on it.
// It writes the 400 response itself and returns false when the body is unusable.
func (s *Server) decodeAndValidate(rw http.ResponseWriter, r *http.Request, data interface{}, allowEmptyBody bool) bool {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil && !(allowEmptyBody && errors.Is(err, io.EOF)) {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid request body: " + err.Error()}}, http.StatusBadRequest)
		return false
	}

	errs := s.validate.Struct(data)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return false
	}

	return true
}

func uintVar(r *http.Request, name string) (uint, error) {
	value, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}

	return uint(value), nil
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}

	return page
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) >= 8
	})
}

// ---------------------------------------------------------------------------------//
// Middleware Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) decodeAndVerifyAuthHeader(ctx context.Context, authHeaderValue string) DecodedJWT {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(authHeaderList[1], s.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	guardianID, err := strconv.ParseUint(tokenClaims.Subject, 10, 64)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the user account still exists
	user, err := s.store.FindUserBy(ctx, "id", guardianID)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}
	tokenClaims.IsAdmin = user.IsAdmin()

	return DecodedJWT{Claims: tokenClaims, GuardianID: uint(guardianID)}
}

func decodedJWTFromContext(ctx context.Context) DecodedJWT {
	decodedJWT, ok := ctx.Value(DECODED_JWT_KEY).(DecodedJWT)
	if !ok {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	return decodedJWT
}

func guardianID(r *http.Request) uint {
	return decodedJWTFromContext(r.Context()).GuardianID
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("SafeNest server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func (s *Server) cleanup(server *http.Server) {
	// Stop all jobs, then disconnect realtime sessions
	s.workerPool.Stop()
	s.hub.Close()

	if s.gStorage != nil {
		err := s.backupSqliteDb(nil)
		if err != nil {
			logg.Error(err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("SafeNest server shutdown failed:%+s", err)
	}

	if err := s.store.Close(); err != nil {
		logg.Error(err)
	}

	logg.Infof("SafeNest server stopped properly")
}

// configDirectory retrieves the directory to store safenest data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'safenest' folder in home directory for prod
	configFolderName := "safenest"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
