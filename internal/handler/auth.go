package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tkoide/editbridge/internal/broker"
	xoauth2 "golang.org/x/oauth2"
)

// AuthHandler handles account linking: the OAuth dance, listing linked
// accounts and explicit unlink.
type AuthHandler struct {
	broker      *broker.Broker
	oauthConfig *xoauth2.Config
	accounts    broker.AccountStore
	jwtSecret   string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(b *broker.Broker, cfg *xoauth2.Config, accounts broker.AccountStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{broker: b, oauthConfig: cfg, accounts: accounts, jwtSecret: jwtSecret}
}

// Login redirects to the vendor's consent screen.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	state := uuid.NewString()
	url := h.oauthConfig.AuthCodeURL(state, xoauth2.AccessTypeOffline, xoauth2.ApprovalForce)

	cookie := fmt.Sprintf("oauth_state=%s; HttpOnly; Path=/; Max-Age=600; SameSite=Lax", state)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": url,
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {cookie},
		},
	}, nil
}

// Callback exchanges the authorization code and creates the persistent
// account link. This is the only path that promotes vendor credentials
// into the Account Store.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	code := req.QueryStringParameters["code"]
	if code == "" {
		return textResponse(http.StatusBadRequest, "Missing code"), nil
	}

	id, handle, err := h.broker.ExchangeCode(ctx, code)
	if err != nil {
		status, msg := statusForKind(broker.KindOf(err))
		return textResponse(status, msg), nil
	}

	// An already-authenticated user links an additional account; a fresh
	// visitor becomes a user keyed by the vendor identity.
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		userID = id.AccountID
	}

	if _, err := h.broker.Link(ctx, userID, id, handle); err != nil {
		return textResponse(http.StatusInternalServerError, "Failed to link account"), nil
	}

	claims := jwt.MapClaims{
		"sub":   userID,
		"email": id.Email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		return textResponse(http.StatusInternalServerError, "Failed to sign token"), nil
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	sameSite := "Lax"
	if os.Getenv("DEV_MODE") != "true" {
		sameSite = "None"
	}
	cookie := fmt.Sprintf("session_token=%s; HttpOnly; Path=/; Max-Age=86400; SameSite=%s; Secure", signedToken, sameSite)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": fmt.Sprintf("%s/?linked=true", frontendURL),
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {cookie},
		},
	}, nil
}

// accountView is the client-safe projection of a linked account.
type accountView struct {
	AccountID          string    `json:"accountId"`
	Email              string    `json:"email"`
	ExpiresAt          time.Time `json:"expiresAt"`
	ThumbnailsDisabled bool      `json:"thumbnailsDisabled"`
	RefreshFailed      bool      `json:"refreshFailed"`
}

// ListAccounts returns the user's linked accounts, without credentials.
func (h *AuthHandler) ListAccounts(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return unauthorized(err), nil
	}

	recs, err := h.accounts.List(ctx, userID)
	if err != nil {
		return textResponse(http.StatusInternalServerError, "Failed to list accounts"), nil
	}

	views := make([]accountView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, accountView{
			AccountID:          rec.AccountID,
			Email:              rec.Email,
			ExpiresAt:          rec.ExpiresAt,
			ThumbnailsDisabled: rec.ThumbnailsDisabled,
			RefreshFailed:      rec.RefreshFailed,
		})
	}
	return jsonResponse(http.StatusOK, views), nil
}

// Unlink deletes the persistent record for an account.
func (h *AuthHandler) Unlink(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return unauthorized(err), nil
	}

	accountID := req.PathParameters["accountId"]
	if accountID == "" {
		return textResponse(http.StatusBadRequest, "Missing account ID"), nil
	}

	if err := h.broker.Unlink(ctx, userID, accountID); err != nil {
		return textResponse(http.StatusInternalServerError, "Failed to unlink account"), nil
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}
