package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tkoide/editbridge/internal/adapter"
	"github.com/tkoide/editbridge/internal/adapter/googledrive"
	"github.com/tkoide/editbridge/internal/adapter/memory"
	"github.com/tkoide/editbridge/internal/broker"
	"github.com/tkoide/editbridge/internal/crypto"
	"github.com/tkoide/editbridge/internal/handler"
	"github.com/tkoide/editbridge/internal/notify"
	"github.com/tkoide/editbridge/internal/secret"
	"github.com/tkoide/editbridge/internal/store"
	"github.com/tkoide/editbridge/internal/versions"
)

// App holds the dependencies for the Lambda function.
type App struct {
	authHandler      *handler.AuthHandler
	saveHandler      *handler.SaveHandler
	apiGatewaySecret string
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// NewApp initializes the application dependencies.
func NewApp(ctx context.Context) *App {
	devMode := os.Getenv("DEV_MODE") == "true"
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	var dynamoClient *dynamodb.Client
	if devMode {
		fmt.Println("Using in-memory stores (DEV_MODE=true)")
	} else {
		dynamoClient = dynamodb.NewFromConfig(cfg)
	}

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	googleClientSecret, err := resolver.GetSecret(ctx, envOr("GOOGLE_CLIENT_SECRET_PARAM", "/editbridge/google-client-secret"))
	if err != nil {
		log.Printf("WARNING: failed to resolve GOOGLE_CLIENT_SECRET: %v", err)
	}

	jwtSecret, err := resolver.GetSecret(ctx, envOr("JWT_SECRET_PARAM", "/editbridge/jwt-secret"))
	if err != nil {
		log.Printf("WARNING: failed to resolve JWT_SECRET: %v", err)
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecret, err := resolver.GetSecret(ctx, envOr("API_GATEWAY_SECRET_PARAM", "/editbridge/api-gateway-secret"))
	if err != nil {
		log.Printf("WARNING: failed to resolve API_GATEWAY_SECRET: %v", err)
	}

	// ---------- Secret Codec ----------
	var codec crypto.Codec
	if devMode {
		key, err := resolver.GetSecret(ctx, envOr("LOCAL_CRYPTO_KEY_PARAM", "/editbridge/local-crypto-key"))
		if err != nil {
			log.Printf("WARNING: failed to resolve LOCAL_CRYPTO_KEY, using default: %v", err)
			key = "editbridge-dev-key"
		}
		codec, err = crypto.NewLocalCodec(key)
		if err != nil {
			panic(fmt.Sprintf("unable to build local codec, %v", err))
		}
		fmt.Println("Using LocalCodec (DEV_MODE=true)")
	} else {
		codec = crypto.NewKMSCodec(kms.NewFromConfig(cfg), envOr("KMS_KEY_ID", "alias/editbridge-credential-key"))
	}

	// ---------- Stores ----------
	accounts := store.NewAccountStore(dynamoClient, envOr("ACCOUNTS_TABLE", "ExternalAccounts"))
	ephemeral := store.NewEphemeralCache(dynamoClient, envOr("EPHEMERAL_TABLE", "EphemeralConnections"))
	tracker := versions.NewTracker(dynamoClient, envOr("VERSIONS_TABLE", "FileVersions"))

	// ---------- OAuth2 ----------
	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")
	if redirectURL == "" {
		if devMode {
			redirectURL = "http://localhost:8080/auth/callback"
		} else {
			redirectURL = envOr("FRONTEND_URL", "http://localhost:3000") + "/api/auth/callback"
		}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: googleClientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/drive",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}

	vendor := &broker.OAuthVendor{Config: oauthConfig, Identity: googledrive.Identity}

	// ---------- Broker + Storage Provider ----------
	var provider adapter.Provider
	storageKind := "googledrive"
	if devMode {
		provider = memory.NewProvider()
		storageKind = "memory"
		fmt.Println("Using MemoryProvider (DEV_MODE=true)")
	} else {
		provider = googledrive.NewProvider()
	}

	conn := broker.New(storageKind, accounts, ephemeral, codec, vendor, vendor,
		&broker.StoreIdentityResolver{Accounts: accounts}, logger)

	// ---------- Handlers ----------
	notifier := notify.NewLogNotifier(logger)
	authHandler := handler.NewAuthHandler(conn, oauthConfig, accounts, jwtSecret)
	saveHandler := handler.NewSaveHandler(conn, provider, tracker, notifier, jwtSecret, logger)

	return &App{
		authHandler:      authHandler,
		saveHandler:      saveHandler,
		apiGatewaySecret: apiGatewaySecret,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	fmt.Printf("Request: %s %s\n", method, path)

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Security: verify request origin (CloudFront only), skipped in dev mode.
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			fmt.Printf("Security Block: Missing or invalid X-Origin-Verify header\n")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying).
	path = strings.TrimPrefix(path, "/api")

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	// /auth
	if strings.HasPrefix(path, "/auth") {
		if path == "/auth/login" && method == "GET" {
			return corsResponse(must(app.authHandler.Login(ctx, req))), nil
		}
		if path == "/auth/callback" && method == "GET" {
			return corsResponse(must(app.authHandler.Callback(ctx, req))), nil
		}
	}

	// /accounts
	if path == "/accounts" && method == "GET" {
		return corsResponse(must(app.authHandler.ListAccounts(ctx, req))), nil
	}
	if strings.HasPrefix(path, "/accounts/") && method == "DELETE" {
		req.PathParameters["accountId"] = strings.TrimPrefix(path, "/accounts/")
		return corsResponse(must(app.authHandler.Unlink(ctx, req))), nil
	}

	// /files/{id}/save
	if strings.HasPrefix(path, "/files/") && strings.HasSuffix(path, "/save") && (method == "PUT" || method == "POST") {
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/files/"), "/save")
		req.PathParameters["id"] = id
		return corsResponse(must(app.saveHandler.Save(ctx, req))), nil
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = envOr("FRONTEND_URL", "http://localhost:3000")
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, converting an error into a 500.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		fmt.Printf("Handler error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
