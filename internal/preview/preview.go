// Package preview stores chatbot preview records: a website URL paired with
// the script snippet to overlay on it.
package preview

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/webscout/webscout/internal/scout"
)

// DefaultCategory is applied when a record is created without one.
const DefaultCategory = "Uncategorized"

const (
	maxScriptLength = 20000
	maxLabelLength  = 100
	minIDLength     = 6
)

// ErrNotFound is returned by stores when no record matches the given ID.
var ErrNotFound = errors.New("preview not found")

// Record is one stored preview.
type Record struct {
	ID            string    `json:"id"`
	WebsiteURL    string    `json:"website_url"`
	ChatbotScript string    `json:"chatbot_script"`
	Category      string    `json:"category"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists preview records. List returns newest-first.
type Store interface {
	Create(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Record, error)
}

// NewRecord validates the caller-supplied fields and fills defaults: a
// generated ID when none is given and the default category when empty.
func NewRecord(websiteURL, script, category, name, id string, ids scout.IDGenerator, clock scout.Clock) (Record, error) {
	websiteURL = strings.TrimSpace(websiteURL)
	u, err := url.Parse(websiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Record{}, scout.NewValidationError(websiteURL, "website_url must be an absolute http(s) URL")
	}
	if script == "" || len(script) > maxScriptLength {
		return Record{}, scout.NewValidationError("chatbot_script", "must be 1 to 20000 characters")
	}
	if len(category) > maxLabelLength {
		return Record{}, scout.NewValidationError("category", "must be at most 100 characters")
	}
	if len(name) > maxLabelLength {
		return Record{}, scout.NewValidationError("name", "must be at most 100 characters")
	}
	if id != "" && len(id) < minIDLength {
		return Record{}, scout.NewValidationError("id", "must be at least 6 characters")
	}
	if id == "" {
		generated, err := ids.NewID()
		if err != nil {
			return Record{}, err
		}
		id = generated
	}
	if category == "" {
		category = DefaultCategory
	}
	return Record{
		ID:            id,
		WebsiteURL:    websiteURL,
		ChatbotScript: script,
		Category:      category,
		Name:          name,
		CreatedAt:     clock.Now(),
	}, nil
}
