// Package postgres implements worldstore.Store on pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetCharacter(ctx context.Context, id string) (*worldstore.Character, error) {
	const q = `
select id, campaign_id, name, type, summary, race, class, status, status_color, notes,
       quotes, story_hooks, important_people, created_at, updated_at
from characters
where id = $1;
`
	return scanCharacter(s.db.QueryRow(ctx, q, id))
}

func (s *Store) FindCharacterByName(ctx context.Context, campaignID, name string) (*worldstore.Character, error) {
	const q = `
select id, campaign_id, name, type, summary, race, class, status, status_color, notes,
       quotes, story_hooks, important_people, created_at, updated_at
from characters
where campaign_id = $1 and name ilike $2
limit 1;
`
	return scanCharacter(s.db.QueryRow(ctx, q, campaignID, name))
}

func (s *Store) ListCharacters(ctx context.Context, campaignID string) ([]worldstore.Character, error) {
	const q = `
select id, campaign_id, name, type, summary, race, class, status, status_color, notes,
       quotes, story_hooks, important_people, created_at, updated_at
from characters
where campaign_id = $1
order by name;
`
	rows, err := s.db.Query(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]worldstore.Character, 0, 16)
	for rows.Next() {
		c, err := scanCharacterRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCharacter(ctx context.Context, c *worldstore.Character) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = "alive"
	}
	quotes, hooks, people, err := marshalCharacterArrays(c)
	if err != nil {
		return "", err
	}

	const q = `
insert into characters (id, campaign_id, name, type, summary, race, class, status, status_color,
                        notes, quotes, story_hooks, important_people)
values ($1, $2, $3, $4, nullif($5,''), nullif($6,''), nullif($7,''), $8, nullif($9,''),
        nullif($10,''), $11::jsonb, $12::jsonb, $13::jsonb)
returning id;
`
	var id string
	err = s.db.QueryRow(ctx, q, c.ID, c.CampaignID, c.Name, c.Kind, c.Summary, c.Race, c.Class,
		c.Status, c.StatusColor, c.Notes, quotes, hooks, people).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert character: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "characters", id)
}

func (s *Store) UpdateCharacterStatus(ctx context.Context, id, status, statusColor string) error {
	const q = `
update characters
set status = $2, status_color = coalesce(nullif($3,''), status_color), updated_at = now()
where id = $1;
`
	return s.execExpectingRow(ctx, q, id, status, statusColor)
}

func (s *Store) AppendCharacterNote(ctx context.Context, id, note string) error {
	const q = `
update characters
set notes = case when coalesce(notes,'') = '' then $2 else notes || E'\n\n' || $2 end,
    updated_at = now()
where id = $1;
`
	return s.execExpectingRow(ctx, q, id, note)
}

// RemoveCharacterNote strips an exact note previously added by AppendCharacterNote,
// including the blank-line separator when present. Best effort; if the user edited
// the notes since, the text may simply not match and nothing changes.
func (s *Store) RemoveCharacterNote(ctx context.Context, id, note string) error {
	const q = `
update characters
set notes = nullif(replace(replace(coalesce(notes,''), E'\n\n' || $2, ''), $2, ''), ''),
    updated_at = now()
where id = $1;
`
	return s.execExpectingRow(ctx, q, id, note)
}

func (s *Store) SetCharacterQuotes(ctx context.Context, id string, quotes []string) error {
	b, err := json.Marshal(quotes)
	if err != nil {
		return err
	}
	const q = `update characters set quotes = $2::jsonb, updated_at = now() where id = $1;`
	return s.execExpectingRow(ctx, q, id, b)
}

func (s *Store) SetCharacterStoryHooks(ctx context.Context, id string, hooks []worldstore.StoryHook) error {
	b, err := json.Marshal(hooks)
	if err != nil {
		return err
	}
	const q = `update characters set story_hooks = $2::jsonb, updated_at = now() where id = $1;`
	return s.execExpectingRow(ctx, q, id, b)
}

func (s *Store) SetCharacterImportantPeople(ctx context.Context, id string, people []worldstore.Person) error {
	b, err := json.Marshal(people)
	if err != nil {
		return err
	}
	const q = `update characters set important_people = $2::jsonb, updated_at = now() where id = $1;`
	return s.execExpectingRow(ctx, q, id, b)
}

// execExpectingRow runs an update that must touch exactly one row.
func (s *Store) execExpectingRow(ctx context.Context, q string, args ...any) error {
	ct, err := s.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return worldstore.ErrNotFound
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	ct, err := s.db.Exec(ctx, fmt.Sprintf("delete from %s where id = $1;", table), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return worldstore.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row pgx.Row) (*worldstore.Character, error) {
	c, err := scanCharacterRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	return c, err
}

func scanCharacterRow(row rowScanner) (*worldstore.Character, error) {
	var (
		c                               worldstore.Character
		summary, race, class            *string
		statusColor, notes              *string
		quotesB, hooksB, peopleB        []byte
		createdAt, updatedAt            time.Time
	)
	err := row.Scan(&c.ID, &c.CampaignID, &c.Name, &c.Kind, &summary, &race, &class,
		&c.Status, &statusColor, &notes, &quotesB, &hooksB, &peopleB, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Summary = deref(summary)
	c.Race = deref(race)
	c.Class = deref(class)
	c.StatusColor = deref(statusColor)
	c.Notes = deref(notes)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt

	if len(quotesB) > 0 {
		if err := json.Unmarshal(quotesB, &c.Quotes); err != nil {
			return nil, fmt.Errorf("unmarshal quotes: %w", err)
		}
	}
	if len(hooksB) > 0 {
		if err := json.Unmarshal(hooksB, &c.StoryHooks); err != nil {
			return nil, fmt.Errorf("unmarshal story hooks: %w", err)
		}
	}
	if len(peopleB) > 0 {
		if err := json.Unmarshal(peopleB, &c.ImportantPeople); err != nil {
			return nil, fmt.Errorf("unmarshal important people: %w", err)
		}
	}
	return &c, nil
}

func marshalCharacterArrays(c *worldstore.Character) ([]byte, []byte, []byte, error) {
	quotes, err := json.Marshal(orEmpty(c.Quotes))
	if err != nil {
		return nil, nil, nil, err
	}
	hooks, err := json.Marshal(orEmptyHooks(c.StoryHooks))
	if err != nil {
		return nil, nil, nil, err
	}
	people, err := json.Marshal(orEmptyPeople(c.ImportantPeople))
	if err != nil {
		return nil, nil, nil, err
	}
	return quotes, hooks, people, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyHooks(v []worldstore.StoryHook) []worldstore.StoryHook {
	if v == nil {
		return []worldstore.StoryHook{}
	}
	return v
}

func orEmptyPeople(v []worldstore.Person) []worldstore.Person {
	if v == nil {
		return []worldstore.Person{}
	}
	return v
}
