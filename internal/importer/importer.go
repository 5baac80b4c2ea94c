package importer

import (
	"context"
	"log/slog"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

// Sink materializes a validated document. The hierarchy stores implement it;
// the Postgres one commits the whole tree in a single transaction.
type Sink interface {
	ImportDocument(ctx context.Context, doc *Document) (*Summary, error)
}

// Summary reports what an import did, per entity kind.
type Summary struct {
	Created map[string]int `json:"created"`
	Reused  map[string]int `json:"reused"`
}

// NewSummary returns an empty summary with both maps initialized.
func NewSummary() *Summary {
	return &Summary{
		Created: map[string]int{},
		Reused:  map[string]int{},
	}
}

// AddCreated records a newly created entity of the given kind.
func (s *Summary) AddCreated(kind string) { s.Created[kind]++ }

// AddReused records a merge-by-name hit for the given kind.
func (s *Summary) AddReused(kind string) { s.Reused[kind]++ }

// Importer is the admin-facing bulk import entry point.
type Importer struct {
	sink Sink
}

// New creates an importer writing into sink.
func New(sink Sink) *Importer {
	return &Importer{sink: sink}
}

// Import validates data and, only if it is fully valid, writes the whole tree.
// Admin only. On validation failure the returned error carries every problem
// and nothing is written.
func (im *Importer) Import(ctx context.Context, actor domain.Identity, data []byte) (*Summary, error) {
	if err := actor.RequireAdmin("bulk import"); err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	summary, err := im.sink.ImportDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	slog.Info("bulk import complete",
		"subject", doc.Subject.Name,
		"created", summary.Created,
		"reused", summary.Reused,
	)
	return summary, nil
}
