package store

import (
	"context"
	"fmt"

	"gallery-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// EnsureLabels creates any missing (name, lang) labels and returns all of
// them in the order of names.
func (s *Store) EnsureLabels(ctx context.Context, lang string, names []string) ([]models.AiLabel, error) {
	if len(names) == 0 {
		return nil, nil
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO ai_labels (name, lang) SELECT unnest($1::text[]), $2 ON CONFLICT (name, lang) DO NOTHING`,
		names, lang,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create labels: %w", err)
	}

	rows, err := s.db.Query(ctx, `SELECT id, name, lang FROM ai_labels WHERE lang = $1 AND name = ANY($2)`, lang, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]models.AiLabel, len(names))
	for rows.Next() {
		var l models.AiLabel
		if err := rows.Scan(&l.ID, &l.Name, &l.Lang); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		byName[l.Name] = l
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels := make([]models.AiLabel, 0, len(names))
	for _, name := range names {
		l, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("label %q (%s) missing after insert", name, lang)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// SaveEmbedding stores the vector and sets vector_done. When labelIDs is
// non-empty the labels are linked and ai_done is set in the same transaction.
func (s *Store) SaveEmbedding(ctx context.Context, photoID int64, vector []byte, labelIDs []int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE photos SET clip_vector = $1, vector_done = TRUE WHERE id = $2`, vector, photoID)
		if err != nil {
			return fmt.Errorf("failed to save vector: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: photo %d", ErrNotFound, photoID)
		}
		if len(labelIDs) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO photo_ai_labels (photo_id, ai_label_id) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`,
			photoID, labelIDs,
		)
		if err != nil {
			return fmt.Errorf("failed to link labels: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE photos SET ai_done = TRUE WHERE id = $1`, photoID); err != nil {
			return fmt.Errorf("failed to set ai_done: %w", err)
		}
		return nil
	})
}

// SaveFaceGroups opens one new group per face for ownerID, counts the face
// in it and records the group ids on the photo with face_done set. faces may
// be zero, which stores an empty id list. The photo row is locked first; if
// face_done is already set no group is created and ErrAlreadyDone is
// returned.
func (s *Store) SaveFaceGroups(ctx context.Context, photoID, ownerID int64, faces int) ([]int64, error) {
	ids := make([]int64, 0, faces)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var done bool
		err := tx.QueryRow(ctx, `SELECT face_done FROM photos WHERE id = $1 FOR UPDATE`, photoID).Scan(&done)
		if err != nil {
			return notFound(err, "photo", photoID)
		}
		if done {
			return fmt.Errorf("%w: faces of photo %d", ErrAlreadyDone, photoID)
		}

		for i := 0; i < faces; i++ {
			var id int64
			err := tx.QueryRow(ctx,
				`INSERT INTO face_groups (owner_id, name, count) VALUES ($1, '', 0) RETURNING id`,
				ownerID,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to create face group: %w", err)
			}
			if _, err := tx.Exec(ctx, `UPDATE face_groups SET count = count + 1 WHERE id = $1`, id); err != nil {
				return fmt.Errorf("failed to count face: %w", err)
			}
			ids = append(ids, id)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE photos SET face_group_ids = $1, face_done = TRUE WHERE id = $2 AND face_done = FALSE`,
			ids, photoID,
		)
		if err != nil {
			return fmt.Errorf("failed to save face groups: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: faces of photo %d", ErrAlreadyDone, photoID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
