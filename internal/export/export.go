// Package export renders exam papers, worksheets and performance reports
// as PDF and optionally publishes them.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/pavelanni/exambank/internal/model"
)

// ErrPublishingDisabled is returned by Publish when no publisher is set.
var ErrPublishingDisabled = errors.New("publishing is not configured")

// AssetStore records published files.
type AssetStore interface {
	InsertAsset(a model.Asset) (int64, error)
}

// Exporter renders documents to PDF.
type Exporter struct {
	renderer  Renderer
	publisher Publisher
	assets    AssetStore
	now       func() time.Time
}

// New returns an Exporter. publisher and assets may be nil, which disables
// Publish.
func New(r Renderer, p Publisher, assets AssetStore) *Exporter {
	return &Exporter{renderer: r, publisher: p, assets: assets, now: time.Now}
}

// CanPublish reports whether Publish is available.
func (e *Exporter) CanPublish() bool {
	return e.publisher != nil && e.assets != nil
}

// HTML renders a document component to a string.
func HTML(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PDF renders c and prints it.
func (e *Exporter) PDF(ctx context.Context, c templ.Component) ([]byte, error) {
	html, err := HTML(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return e.renderer.RenderPDF(ctx, html)
}

// ExamPaper prints questions as an exam paper.
func (e *Exporter) ExamPaper(ctx context.Context, title string, qs []model.Question, withAnswers bool) ([]byte, error) {
	return e.PDF(ctx, PaperDocument(Paper{
		Title:       title,
		Subtitle:    fmt.Sprintf("%d questions, %d marks", len(qs), totalMarks(qs)),
		Questions:   qs,
		WithAnswers: withAnswers,
	}))
}

// Worksheet prints a student worksheet.
func (e *Exporter) Worksheet(ctx context.Context, qs []model.Question) ([]byte, error) {
	return e.PDF(ctx, PaperDocument(Paper{Title: "Student Worksheet", Questions: qs}))
}

// Report prints a learner's performance report.
func (e *Exporter) Report(ctx context.Context, lr LearnerReport) ([]byte, error) {
	if lr.GeneratedAt.IsZero() {
		lr.GeneratedAt = e.now()
	}
	return e.PDF(ctx, ReportDocument(lr))
}

// Publish uploads data under a unique key derived from name and records it
// as an asset owned by uploadedBy.
func (e *Exporter) Publish(ctx context.Context, uploadedBy int64, name string, data []byte) (model.Asset, error) {
	if !e.CanPublish() {
		return model.Asset{}, ErrPublishingDisabled
	}
	key := fmt.Sprintf("%s_%s", name, uuid.NewString())
	url, err := e.publisher.Publish(ctx, key, data)
	if err != nil {
		return model.Asset{}, err
	}
	a := model.Asset{
		Key:        key,
		URL:        url,
		MIMEType:   "application/pdf",
		UploadedBy: uploadedBy,
		CreatedAt:  e.now(),
	}
	id, err := e.assets.InsertAsset(a)
	if err != nil {
		return model.Asset{}, fmt.Errorf("record asset %s: %w", key, err)
	}
	a.ID = id
	slog.Info("published document", "key", key, "url", url, "bytes", len(data))
	return a, nil
}

func totalMarks(qs []model.Question) int {
	n := 0
	for _, q := range qs {
		n += q.Marks
	}
	return n
}
