package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pacm/internal/pkgmodel"
	"pacm/internal/transport"
	"pacm/pkg/types"
)

// QueryRemotePackages fetches the remote index from Endpoint+IndexURI and
// replaces the remote package collection wholesale. It refuses while any
// install task is active, since a task holds a raw reference into the
// collection being replaced.
func (m *Manager) QueryRemotePackages(ctx context.Context) error {
	m.mu.Lock()
	if len(m.tasks) > 0 {
		m.mu.Unlock()
		return busyErr("query_remote_packages")
	}
	endpoint := m.opts.Endpoint + m.opts.IndexURI
	auth := transport.Auth{
		OAuthToken: m.opts.HTTPOAuthToken,
		Username:   m.opts.HTTPUsername,
		Password:   m.opts.HTTPPassword,
	}
	httpClient := m.httpClient
	m.mu.Unlock()

	docs, err := fetchIndex(ctx, httpClient, endpoint, auth)
	if err != nil {
		m.log().Error().Str("endpoint", endpoint).Err(err).Msg("manager: query remote packages failed")
		m.publish(Event{Name: EventQueryComplete, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	remote := make(map[string]*pkgmodel.RemotePackage, len(docs))
	for _, doc := range docs {
		remote[doc.ID] = pkgmodel.NewRemotePackage(doc)
	}

	m.mu.Lock()
	m.remotePackages = remote
	m.mu.Unlock()

	m.log().Info().Int("count", len(remote)).Msg("manager: remote packages replaced")
	m.publish(Event{Name: EventRemotePackageResponse, Fields: map[string]any{"count": len(remote)}})
	m.publish(Event{Name: EventQueryComplete})
	return nil
}

func fetchIndex(ctx context.Context, client *http.Client, url string, auth transport.Auth) ([]types.RemotePackageDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("manager: build index request: %w", err)
	}
	auth.Apply(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manager: fetch remote index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &transport.StatusError{URL: url, Code: resp.StatusCode}
	}

	var docs []types.RemotePackageDoc
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("manager: decode remote index: %w", err)
	}
	return docs, nil
}
