package types

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/chatexport/internal/models"
)

// Snapshot is a parsed copy of the page DOM at the moment of capture.
type Snapshot struct {
	URL string
	Doc *goquery.Document
}

type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type Exporter interface {
	Export(snap *Snapshot) models.Result
}
