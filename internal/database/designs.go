package database

import (
	"context"
	"errors"
	"fmt"

	"joke-plugin/internal/dispatch"
	"joke-plugin/internal/models"

	"github.com/jackc/pgx/v5"
)

var ErrNoElementsSelected = errors.New("no matching elements to select")

// DesignRepository stores design elements; one design per chat.
type DesignRepository struct {
	db *DB
}

func NewDesignRepository(db *DB) *DesignRepository {
	return &DesignRepository{db: db}
}

func (r *DesignRepository) AddText(ctx context.Context, designID int64, text string) (*models.DesignElement, error) {
	query := `
		INSERT INTO design_elements (design_id, text)
		VALUES ($1, $2)
		RETURNING id, design_id, text, selected, created_at
	`
	var el models.DesignElement
	err := r.db.Pool.QueryRow(ctx, query, designID, text).Scan(
		&el.ID, &el.DesignID, &el.Text, &el.Selected, &el.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert element: %w", err)
	}
	return &el, nil
}

func (r *DesignRepository) List(ctx context.Context, designID int64) ([]models.DesignElement, error) {
	query := `
		SELECT id, design_id, text, selected, created_at
		FROM design_elements
		WHERE design_id = $1
		ORDER BY id
	`
	rows, err := r.db.Pool.Query(ctx, query, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}

	elements, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.DesignElement])
	if err != nil {
		return nil, fmt.Errorf("failed to scan elements: %w", err)
	}
	return elements, nil
}

// Select marks the given elements of a design as selected.
func (r *DesignRepository) Select(ctx context.Context, designID int64, ids []int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE design_elements SET selected = TRUE WHERE design_id = $1 AND id = ANY($2)",
		designID, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to select elements: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNoElementsSelected
	}
	return tag.RowsAffected(), nil
}

func (r *DesignRepository) ClearSelection(ctx context.Context, designID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		"UPDATE design_elements SET selected = FALSE WHERE design_id = $1 AND selected",
		designID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}

func (r *DesignRepository) CountSelected(ctx context.Context, designID int64) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM design_elements WHERE design_id = $1 AND selected",
		designID,
	).Scan(&count)
	return count, err
}

// Host binds the repository to one design so it can be handed to the
// dispatcher as both inserter and selection.
func (r *DesignRepository) Host(designID int64) *DesignHost {
	return &DesignHost{repo: r, designID: designID}
}

type DesignHost struct {
	repo     *DesignRepository
	designID int64
}

func (h *DesignHost) InsertText(ctx context.Context, el models.TextElement) error {
	_, err := h.repo.AddText(ctx, h.designID, el.Text)
	return err
}

func (h *DesignHost) Count(ctx context.Context) (int, error) {
	return h.repo.CountSelected(ctx, h.designID)
}

func (h *DesignHost) Read(ctx context.Context) (dispatch.Selection, error) {
	rows, err := h.repo.db.Pool.Query(ctx,
		"SELECT id, text FROM design_elements WHERE design_id = $1 AND selected ORDER BY id",
		h.designID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	defer rows.Close()

	sel := &selection{host: h}
	for rows.Next() {
		var id int64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		sel.ids = append(sel.ids, id)
		sel.items = append(sel.items, &dispatch.SelectedText{Text: &text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}

	return sel, nil
}

type selection struct {
	host  *DesignHost
	ids   []int64
	items []*dispatch.SelectedText
}

func (s *selection) Contents() []*dispatch.SelectedText {
	return s.items
}

// Save writes every edited text in one transaction.
func (s *selection) Save(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.host.repo.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, id := range s.ids {
			item := s.items[i]
			if item == nil || item.Text == nil {
				continue
			}
			batch.Queue(
				"UPDATE design_elements SET text = $1 WHERE id = $2 AND design_id = $3",
				*item.Text, id, s.host.designID,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save selection: %w", err)
		}
		return nil
	})
}
