// internal/app/system/upstream/oauth.go
package upstream

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// withHTTPClient makes the oauth2 package use base for token requests and
// as the transport under the authorized client.
func withHTTPClient(ctx context.Context, base *http.Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, oauth2.HTTPClient, base)
}
