package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Scopes requested per API.
var (
	DriveScopes      = []string{drive.DriveReadonlyScope}
	AIPlatformScopes = []string{aiplatform.CloudPlatformScope}
)

// TokenSource loads credentials from a service account or authorized-user
// JSON file, or from Application Default Credentials when path is empty.
func TokenSource(ctx context.Context, path string, scopes ...string) (oauth2.TokenSource, error) {
	if path == "" {
		creds, err := googleoauth.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
		return creds.TokenSource, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := googleoauth.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return creds.TokenSource, nil
}

// NewDriveService creates a Google Drive API service using the provided TokenSource.
// Extra options (endpoint, HTTP client) are applied after the token source.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	return drive.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
}

// NewAIPlatformService creates a Vertex AI service bound to the regional
// endpoint for location.
func NewAIPlatformService(ctx context.Context, ts oauth2.TokenSource, location string, opts ...option.ClientOption) (*aiplatform.Service, error) {
	base := []option.ClientOption{
		option.WithTokenSource(ts),
		option.WithEndpoint(RegionalEndpoint(location)),
	}
	return aiplatform.NewService(ctx, append(base, opts...)...)
}

// RegionalEndpoint returns the Vertex AI API endpoint for a location.
func RegionalEndpoint(location string) string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/", location)
}
