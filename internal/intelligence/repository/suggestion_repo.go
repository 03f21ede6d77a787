package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

const suggestionColumns = `
id, campaign_id, coalesce(session_id::text,''), coalesce(session_number,0),
coalesce(character_id::text,''), coalesce(character_name,''), suggestion_type,
coalesce(field_name,''), confidence, current_value, suggested_value, final_value,
coalesce(source_excerpt,''), coalesce(ai_reasoning,''), status, created_at, updated_at`

// SuggestionRepository persists suggestion records. Status transitions are
// conditional updates keyed on the current status, so two racing resolutions
// of the same record cannot both win.
type SuggestionRepository struct {
	db *pgxpool.Pool
}

func NewSuggestionRepository(db *pgxpool.Pool) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

func (r *SuggestionRepository) Get(ctx context.Context, id string) (*domain.Suggestion, error) {
	q := `select ` + suggestionColumns + ` from intelligence_suggestions where id = $1;`
	s, err := scanSuggestion(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSuggestionNotFound
	}
	return s, err
}

// ListFilter narrows ListByCampaign. Zero values mean "no constraint".
type ListFilter struct {
	Status      domain.Status
	CharacterID string
	SessionID   string
}

func (r *SuggestionRepository) ListByCampaign(ctx context.Context, campaignID string, f ListFilter) ([]domain.Suggestion, error) {
	q := `select ` + suggestionColumns + ` from intelligence_suggestions where campaign_id = $1`
	args := []any{campaignID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" and status = $%d", len(args))
	}
	if f.CharacterID != "" {
		args = append(args, f.CharacterID)
		q += fmt.Sprintf(" and character_id = $%d", len(args))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		q += fmt.Sprintf(" and session_id = $%d", len(args))
	}
	q += " order by created_at desc;"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Suggestion, 0, 32)
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SuggestionRepository) CountsByStatus(ctx context.Context, campaignID string) (domain.StatusCounts, error) {
	const q = `
select status, count(*)
from intelligence_suggestions
where campaign_id = $1
group by status;
`
	rows, err := r.db.Query(ctx, q, campaignID)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	defer rows.Close()

	var counts domain.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.StatusCounts{}, err
		}
		switch domain.Status(status) {
		case domain.StatusPending:
			counts.Pending = n
		case domain.StatusApplied:
			counts.Applied = n
		case domain.StatusRejected:
			counts.Rejected = n
		}
	}
	return counts, rows.Err()
}

func (r *SuggestionRepository) Insert(ctx context.Context, s *domain.Suggestion) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = domain.StatusPending
	}
	current, err := marshalNullable(s.CurrentValue)
	if err != nil {
		return err
	}
	suggested, err := json.Marshal(s.SuggestedValue)
	if err != nil {
		return err
	}

	const q = `
insert into intelligence_suggestions
  (id, campaign_id, session_id, session_number, character_id, character_name,
   suggestion_type, field_name, confidence, current_value, suggested_value,
   source_excerpt, ai_reasoning, status)
values ($1, $2, nullif($3,'')::uuid, nullif($4,0), nullif($5,'')::uuid, nullif($6,''),
        $7, nullif($8,''), $9, $10, $11, nullif($12,''), nullif($13,''), $14);
`
	_, err = r.db.Exec(ctx, q, s.ID, s.CampaignID, s.SessionID, s.SessionNumber,
		s.CharacterID, s.CharacterName, string(s.Type), s.FieldName, string(s.Confidence),
		current, suggested, s.SourceExcerpt, s.AIReasoning, string(s.Status))
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

// InsertBatch persists a generation run's drafts in one transaction so a run
// is either fully recorded or not at all.
func (r *SuggestionRepository) InsertBatch(ctx context.Context, suggestions []domain.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range suggestions {
		s := &suggestions[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if s.Status == "" {
			s.Status = domain.StatusPending
		}
		current, err := marshalNullable(s.CurrentValue)
		if err != nil {
			return err
		}
		suggested, err := json.Marshal(s.SuggestedValue)
		if err != nil {
			return err
		}
		const q = `
insert into intelligence_suggestions
  (id, campaign_id, session_id, session_number, character_id, character_name,
   suggestion_type, field_name, confidence, current_value, suggested_value,
   source_excerpt, ai_reasoning, status)
values ($1, $2, nullif($3,'')::uuid, nullif($4,0), nullif($5,'')::uuid, nullif($6,''),
        $7, nullif($8,''), $9, $10, $11, nullif($12,''), nullif($13,''), $14);
`
		if _, err := tx.Exec(ctx, q, s.ID, s.CampaignID, s.SessionID, s.SessionNumber,
			s.CharacterID, s.CharacterName, string(s.Type), s.FieldName, string(s.Confidence),
			current, suggested, s.SourceExcerpt, s.AIReasoning, string(s.Status)); err != nil {
			return fmt.Errorf("insert suggestion batch: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// MarkApplied flips a pending suggestion to applied, storing the final value
// and optionally refreshing the pre-commit snapshot. A record that is not
// pending yields ErrInvalidTransition; a missing one ErrSuggestionNotFound.
func (r *SuggestionRepository) MarkApplied(ctx context.Context, id string, finalValue map[string]any, currentValue any) error {
	final, err := json.Marshal(finalValue)
	if err != nil {
		return err
	}
	current, err := marshalNullable(currentValue)
	if err != nil {
		return err
	}

	const q = `
update intelligence_suggestions
set status = 'applied',
    final_value = $2,
    current_value = coalesce($3, current_value),
    updated_at = now()
where id = $1 and status = 'pending';
`
	return r.transition(ctx, q, id, final, current)
}

// MarkRejected flips a pending suggestion to rejected. The reason, when given,
// is kept inside final_value so the record shape stays uniform.
func (r *SuggestionRepository) MarkRejected(ctx context.Context, id, reason string) error {
	var final []byte
	if reason != "" {
		b, err := json.Marshal(map[string]string{"reject_reason": reason})
		if err != nil {
			return err
		}
		final = b
	}
	const q = `
update intelligence_suggestions
set status = 'rejected', final_value = $2, updated_at = now()
where id = $1 and status = 'pending';
`
	return r.transition(ctx, q, id, final)
}

// MarkPending reverts an applied suggestion back to pending and clears the
// final value, returning it to the review queue.
func (r *SuggestionRepository) MarkPending(ctx context.Context, id string) error {
	const q = `
update intelligence_suggestions
set status = 'pending', final_value = null, updated_at = now()
where id = $1 and status = 'applied';
`
	return r.transition(ctx, q, id)
}

func (r *SuggestionRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `delete from intelligence_suggestions where id = $1;`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrSuggestionNotFound
	}
	return nil
}

// PurgeResolvedBefore removes applied and rejected suggestions older than the
// cutoff. Pending records are never purged.
func (r *SuggestionRepository) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
delete from intelligence_suggestions
where status in ('applied', 'rejected') and updated_at < $1;
`
	ct, err := r.db.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge suggestions: %w", err)
	}
	return ct.RowsAffected(), nil
}

// transition runs a guarded status update and maps a zero-row result to the
// precise failure: gone entirely, or present in a state the guard excludes.
func (r *SuggestionRepository) transition(ctx context.Context, q, id string, args ...any) error {
	all := append([]any{id}, args...)
	ct, err := r.db.Exec(ctx, q, all...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func scanSuggestion(row pgx.Row) (*domain.Suggestion, error) {
	var (
		s                         domain.Suggestion
		current, suggested, final []byte
	)
	err := row.Scan(&s.ID, &s.CampaignID, &s.SessionID, &s.SessionNumber,
		&s.CharacterID, &s.CharacterName, &s.Type, &s.FieldName, &s.Confidence,
		&current, &suggested, &final, &s.SourceExcerpt, &s.AIReasoning,
		&s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &s.CurrentValue); err != nil {
			return nil, fmt.Errorf("unmarshal current_value: %w", err)
		}
	}
	if len(suggested) > 0 {
		if err := json.Unmarshal(suggested, &s.SuggestedValue); err != nil {
			return nil, fmt.Errorf("unmarshal suggested_value: %w", err)
		}
	}
	if len(final) > 0 {
		if err := json.Unmarshal(final, &s.FinalValue); err != nil {
			return nil, fmt.Errorf("unmarshal final_value: %w", err)
		}
	}
	return &s, nil
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
