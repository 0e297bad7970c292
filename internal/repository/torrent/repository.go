package torrent

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Repo notifies the external torrent engine that a descriptor is no longer
// referenced by any room. With no engine configured every release is a no-op;
// rooms never depend on the engine being up.
type Repo struct {
	baseURL    string
	httpClient *http.Client
}

func NewRepo(baseURL string) *Repo {
	return &Repo{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Repo) Release(ctx context.Context, infoHash string) error {
	if r.baseURL == "" {
		return nil
	}

	url := fmt.Sprintf("%s/api/torrents/%s", r.baseURL, infoHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to release torrent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("torrent engine returned status %d", resp.StatusCode)
	}

	return nil
}
