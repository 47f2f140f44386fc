// Package google provides shared infrastructure for Google API clients.
//
// This package contains common utilities used by the Drive corpus and the
// Vertex AI embedding and index adapters:
//   - Credential loading from a service account file or Application Default
//     Credentials
//   - Service factories for creating Google API clients
//   - Error classification for common Google API errors (401, 403, 404, 429, 5xx)
//
// # Usage
//
//	ts, err := google.TokenSource(ctx, cfg.CredentialsFile, google.DriveScopes...)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/drive.readonly (corpus listing and content)
//   - https://www.googleapis.com/auth/cloud-platform (Vertex AI)
package google
