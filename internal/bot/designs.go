package bot

import (
	"context"
	"sync"

	"joke-plugin/internal/app"
	"joke-plugin/internal/database"
	"joke-plugin/internal/design"
	"joke-plugin/internal/models"
)

// Designs is the design service the bot edits, one design per chat.
type Designs interface {
	Host(designID int64) app.Host
	AddText(ctx context.Context, designID int64, text string) (*models.DesignElement, error)
	List(ctx context.Context, designID int64) ([]models.DesignElement, error)
	Select(ctx context.Context, designID int64, ids []int64) (int64, error)
	ClearSelection(ctx context.Context, designID int64) error
}

type repoDesigns struct {
	*database.DesignRepository
}

func FromRepository(repo *database.DesignRepository) Designs {
	return repoDesigns{DesignRepository: repo}
}

func (r repoDesigns) Host(designID int64) app.Host {
	return r.DesignRepository.Host(designID)
}

// MemoryDesigns keeps designs in process memory.
type MemoryDesigns struct {
	mu   sync.Mutex
	docs map[int64]*design.Document
}

func NewMemoryDesigns() *MemoryDesigns {
	return &MemoryDesigns{docs: make(map[int64]*design.Document)}
}

func (m *MemoryDesigns) doc(designID int64) *design.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[designID]
	if !ok {
		d = design.NewDocument(designID)
		m.docs[designID] = d
	}
	return d
}

func (m *MemoryDesigns) Host(designID int64) app.Host {
	return m.doc(designID)
}

func (m *MemoryDesigns) AddText(ctx context.Context, designID int64, text string) (*models.DesignElement, error) {
	d := m.doc(designID)
	if err := d.InsertText(ctx, models.TextElement{Text: text}); err != nil {
		return nil, err
	}
	els := d.Elements()
	el := els[len(els)-1]
	return &el, nil
}

func (m *MemoryDesigns) List(_ context.Context, designID int64) ([]models.DesignElement, error) {
	return m.doc(designID).Elements(), nil
}

func (m *MemoryDesigns) Select(_ context.Context, designID int64, ids []int64) (int64, error) {
	if err := m.doc(designID).Select(ids...); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (m *MemoryDesigns) ClearSelection(_ context.Context, designID int64) error {
	m.doc(designID).ClearSelection()
	return nil
}
