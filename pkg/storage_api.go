package pkg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"kbc/internal/api/models"
	"net/http"
	"strings"
)

const componentsPath = "/v2/storage/components"

// StorageCredentials are the caller's Storage API token and stack base URL.
type StorageCredentials struct {
	Token    string
	StackURL string
}

// CatalogFetchError reports a failed component catalog request. StatusCode is
// zero when the request never got an HTTP answer.
type CatalogFetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *CatalogFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch components: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("failed to fetch components: %s", e.Message)
}

func (e *CatalogFetchError) Unwrap() error {
	return e.Err
}

// storageComponent is the subset of a Storage API component record we read.
type storageComponent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Ico32  string `json:"ico32"`
	Ico64  string `json:"ico64"`
	Ico128 string `json:"ico128"`
}

type StorageAPIClient struct {
	httpClient *http.Client
}

func NewStorageAPIClient(httpClient *http.Client) *StorageAPIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &StorageAPIClient{httpClient: httpClient}
}

// FetchComponents lists the components available to the project behind the
// credentials. No retry is attempted.
func (slf *StorageAPIClient) FetchComponents(ctx context.Context, creds StorageCredentials) ([]models.Component, error) {
	url := strings.TrimRight(creds.StackURL, "/") + componentsPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &CatalogFetchError{Message: err.Error(), Err: err}
	}
	req.Header.Set("X-StorageApi-Token", creds.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := slf.httpClient.Do(req)
	if err != nil {
		return nil, &CatalogFetchError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := http.StatusText(resp.StatusCode)
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			msg = fmt.Sprintf("%s: %s", msg, trimmed)
		}
		return nil, &CatalogFetchError{StatusCode: resp.StatusCode, Message: msg}
	}

	var records []storageComponent
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &CatalogFetchError{Message: fmt.Sprintf("invalid components payload: %s", err), Err: err}
	}

	components := make([]models.Component, 0, len(records))
	for _, r := range records {
		components = append(components, models.Component{
			ID:   r.ID,
			Name: r.Name,
			Type: models.ComponentType(r.Type),
			Icon: NormalizeIcon(r.Ico32, r.Ico64, r.Ico128),
		})
	}
	return components, nil
}

// NormalizeIcon collapses the size-keyed icon urls (smallest first) into at
// most two canonical sizes. It returns nil when none is populated.
func NormalizeIcon(sizes ...string) *models.ComponentIcon {
	var populated []string
	for _, s := range sizes {
		if s != "" {
			populated = append(populated, s)
		}
	}
	switch len(populated) {
	case 0:
		return nil
	case 1:
		return &models.ComponentIcon{Small: populated[0]}
	default:
		return &models.ComponentIcon{Small: populated[0], Large: populated[1]}
	}
}
