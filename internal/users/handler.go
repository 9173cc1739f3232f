package users

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/pkg/logging"
)

// CognitoAPI is the subset of the Cognito client used by Handler.
type CognitoAPI interface {
	AdminAddUserToGroup(ctx context.Context, params *cognitoidentityprovider.AdminAddUserToGroupInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminAddUserToGroupOutput, error)
}

// Handler assigns newly signed-up users to the Patients group. The signup
// flow calls it right after the identity pool confirms the account, before
// the user's first authenticated request.
type Handler struct {
	client     CognitoAPI
	userPoolID string
	logger     *logging.Logger
}

// NewHandler creates the users HTTP handler.
func NewHandler(client CognitoAPI, userPoolID string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, userPoolID: userPoolID, logger: logger}
}

// AssignGroupRequest is the body for the group-assignment endpoint.
type AssignGroupRequest struct {
	Email string `json:"email"`
}

// AssignPatientGroup adds the user with the given email to the Patients
// group in the user pool.
// POST /users/assign-patient-group
func (h *Handler) AssignPatientGroup(w http.ResponseWriter, r *http.Request) {
	var req AssignGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, `{"error":"email is required"}`, http.StatusBadRequest)
		return
	}
	if h.client == nil || h.userPoolID == "" {
		http.Error(w, `{"error":"group assignment not configured"}`, http.StatusNotImplemented)
		return
	}

	_, err := h.client.AdminAddUserToGroup(r.Context(), &cognitoidentityprovider.AdminAddUserToGroupInput{
		UserPoolId: aws.String(h.userPoolID),
		Username:   aws.String(req.Email),
		GroupName:  aws.String(middleware.GroupPatients),
	})
	if err != nil {
		h.logger.Error("failed to assign patient group", "email", req.Email, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("user added to patients group", "email", req.Email)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "user added to Patients group"})
}
