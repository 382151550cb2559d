package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billhound/docstage/constants"
	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
)

// In-memory implementations backing tests and local demos. They honor the
// same contracts as the pgx repositories, including the active/non-terminal
// filters, so workflow code can be exercised without a database.

type MemStagingRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*entity.StagingDocument
	// FailSearches makes candidate searches return an error; the resolver's
	// degraded no-match path is tested through this.
	FailSearches error
}

func NewMemStagingRepository() *MemStagingRepository {
	return &MemStagingRepository{docs: make(map[uuid.UUID]*entity.StagingDocument)}
}

func (m *MemStagingRepository) Create(_ context.Context, doc *entity.StagingDocument) (*entity.StagingDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = uuid.New()
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	m.docs[doc.ID] = cloneDoc(doc)
	return doc, nil
}

func (m *MemStagingRepository) Update(_ context.Context, doc *entity.StagingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return common.ErrNotFound
	}
	doc.UpdatedAt = time.Now().UTC()
	m.docs[doc.ID] = cloneDoc(doc)
	return nil
}

func (m *MemStagingRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.StagingDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (m *MemStagingRepository) CandidatesByFileID(_ context.Context, fileID uuid.UUID) ([]*entity.StagingDocument, error) {
	if m.FailSearches != nil {
		return nil, m.FailSearches
	}
	return m.filter(func(d *entity.StagingDocument) bool {
		return d.SourceFileID != nil && *d.SourceFileID == fileID
	}), nil
}

func (m *MemStagingRepository) ListPending(_ context.Context) ([]*entity.StagingDocument, error) {
	if m.FailSearches != nil {
		return nil, m.FailSearches
	}
	return m.filter(func(*entity.StagingDocument) bool { return true }), nil
}

func (m *MemStagingRepository) ActiveByDocumentNumber(_ context.Context, number string) ([]*entity.StagingDocument, error) {
	if m.FailSearches != nil {
		return nil, m.FailSearches
	}
	return m.filter(func(d *entity.StagingDocument) bool {
		return d.DocumentNumber == number
	}), nil
}

func (m *MemStagingRepository) SetSystemAlert(_ context.Context, id uuid.UUID, alert string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.SystemAlert = alert
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStagingRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Inactive = true
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStagingRepository) filter(keep func(*entity.StagingDocument) bool) []*entity.StagingDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StagingDocument
	for _, d := range m.docs {
		if d.Inactive || d.ProcessStatus.Terminal() {
			continue
		}
		if keep(d) {
			out = append(out, cloneDoc(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneDoc(d *entity.StagingDocument) *entity.StagingDocument {
	// deep enough: value copy plus a fresh lines slice
	c := *d
	c.Lines = append([]entity.LineItem(nil), d.Lines...)
	return &c
}

type memFile struct {
	meta     entity.SourceFile
	contents []byte
}

type MemFileRepository struct {
	mu    sync.Mutex
	files map[string]*memFile
}

func NewMemFileRepository() *MemFileRepository {
	return &MemFileRepository{files: make(map[string]*memFile)}
}

func (m *MemFileRepository) IDByName(_ context.Context, name string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[NormalizeFileName(name)]
	if !ok {
		return uuid.Nil, false, nil
	}
	return f.meta.ID, true, nil
}

func (m *MemFileRepository) Save(_ context.Context, name string, contents []byte) (*entity.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := NormalizeFileName(name)
	if f, ok := m.files[key]; ok {
		f.contents = contents
		f.meta.Size = int64(len(contents))
		f.meta.UploadedAt = time.Now().UTC()
		meta := f.meta
		return &meta, nil
	}
	f := &memFile{
		meta: entity.SourceFile{
			ID:         uuid.New(),
			Name:       key,
			FileExt:    constants.NormalizeExt(filepath.Ext(name)),
			Size:       int64(len(contents)),
			UploadedAt: time.Now().UTC(),
		},
		contents: contents,
	}
	m.files[key] = f
	meta := f.meta
	return &meta, nil
}

func (m *MemFileRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.meta.ID == id {
			meta := f.meta
			return &meta, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemFileRepository) Contents(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.meta.ID == id {
			return f.contents, nil
		}
	}
	return nil, common.ErrNotFound
}

type MemDirectoryRepository struct {
	Vendors      map[string]uuid.UUID // name -> id, active only
	Subsidiaries map[string]uuid.UUID
}

func NewMemDirectoryRepository() *MemDirectoryRepository {
	return &MemDirectoryRepository{
		Vendors:      make(map[string]uuid.UUID),
		Subsidiaries: make(map[string]uuid.UUID),
	}
}

func (m *MemDirectoryRepository) VendorIDByName(_ context.Context, name string) (uuid.UUID, bool, error) {
	id, ok := m.Vendors[name]
	return id, ok, nil
}

func (m *MemDirectoryRepository) SubsidiaryIDByName(_ context.Context, name string) (uuid.UUID, bool, error) {
	id, ok := m.Subsidiaries[name]
	return id, ok, nil
}

func (m *MemDirectoryRepository) ActiveVendorNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.Vendors))
	for n := range m.Vendors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// MarshalLines is a convenience for tests that need the audit blob shape.
func MarshalLines(lines []entity.LineItem) string {
	b, _ := json.Marshal(lines)
	return string(b)
}
