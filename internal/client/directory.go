package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tienda-labs/storefront/internal/domain"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
	"github.com/tienda-labs/storefront/pkg/httpclient"
)

// DirectoryUser is one record from the user directory. The stored credential
// may be a bcrypt hash or, on legacy records, a plain value.
type DirectoryUser struct {
	Username   string
	Credential string
	Role       domain.Role
}

// directoryUserWire mirrors the directory boundary's JSON field names.
type directoryUserWire struct {
	Usuario string `json:"usuario"`
	Clave   string `json:"clave"`
	Rol     int    `json:"rol"`
}

// DirectoryClient queries the user directory boundary.
type DirectoryClient struct {
	http    *httpclient.Client
	baseURL string
}

// NewDirectoryClient creates a client for the user directory at baseURL.
func NewDirectoryClient(httpClient *httpclient.Client, baseURL string) *DirectoryClient {
	return &DirectoryClient{
		http:    httpClient,
		baseURL: baseURL,
	}
}

// FindUser looks up a user by username. Returns ErrNotFound when the
// directory has no record for the username.
func (c *DirectoryClient) FindUser(ctx context.Context, username string) (*DirectoryUser, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/usuario/list")
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("directory", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "directory")
	}
	defer func() { _ = resp.Body.Close() }()

	var users []directoryUserWire
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, apperrors.UpstreamUnavailable("directory", fmt.Errorf("decode user list: %w", err))
	}

	for _, u := range users {
		if u.Usuario == username {
			return &DirectoryUser{
				Username:   u.Usuario,
				Credential: u.Clave,
				Role:       domain.RoleFromCode(u.Rol),
			}, nil
		}
	}

	return nil, apperrors.NotFound("user", username)
}
