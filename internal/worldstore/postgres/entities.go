package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

func (s *Store) FindLocationByName(ctx context.Context, campaignID, name string) (*worldstore.Location, error) {
	const q = `
select id, campaign_id, name, location_type, coalesce(description,''), coalesce(parent_id::text,''),
       is_visited, is_known
from locations
where campaign_id = $1 and name ilike $2
limit 1;
`
	var l worldstore.Location
	err := s.db.QueryRow(ctx, q, campaignID, name).Scan(&l.ID, &l.CampaignID, &l.Name, &l.Kind,
		&l.Description, &l.ParentID, &l.Visited, &l.Known)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) CreateLocation(ctx context.Context, l *worldstore.Location) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	const q = `
insert into locations (id, campaign_id, name, location_type, description, parent_id, is_visited, is_known)
values ($1, $2, $3, $4, nullif($5,''), nullif($6,'')::uuid, $7, $8)
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, l.ID, l.CampaignID, l.Name, l.Kind, l.Description,
		l.ParentID, l.Visited, l.Known).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert location: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "locations", id)
}

func (s *Store) FindQuestByName(ctx context.Context, campaignID, name string) (*worldstore.Quest, error) {
	const q = `
select id, campaign_id, name, quest_type, coalesce(description,''), status,
       coalesce(quest_giver_id::text,''), coalesce(quest_giver_name,''),
       coalesce(objective_location_id::text,''), visibility
from quests
where campaign_id = $1 and name ilike $2
limit 1;
`
	var qu worldstore.Quest
	err := s.db.QueryRow(ctx, q, campaignID, name).Scan(&qu.ID, &qu.CampaignID, &qu.Name, &qu.Kind,
		&qu.Description, &qu.Status, &qu.GiverID, &qu.GiverName, &qu.ObjectiveLocationID, &qu.Visibility)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &qu, nil
}

func (s *Store) CreateQuest(ctx context.Context, qu *worldstore.Quest) (string, error) {
	if qu.ID == "" {
		qu.ID = uuid.New().String()
	}
	if qu.Status == "" {
		qu.Status = "active"
	}
	if qu.Visibility == "" {
		qu.Visibility = "party"
	}
	const q = `
insert into quests (id, campaign_id, name, quest_type, description, status,
                    quest_giver_id, quest_giver_name, objective_location_id, visibility)
values ($1, $2, $3, $4, nullif($5,''), $6, nullif($7,'')::uuid, nullif($8,''), nullif($9,'')::uuid, $10)
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, qu.ID, qu.CampaignID, qu.Name, qu.Kind, qu.Description, qu.Status,
		qu.GiverID, qu.GiverName, qu.ObjectiveLocationID, qu.Visibility).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert quest: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteQuest(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "quests", id)
}

func (s *Store) FindEncounterByName(ctx context.Context, campaignID, name string) (*worldstore.Encounter, error) {
	const q = `
select id, campaign_id, name, encounter_type, coalesce(description,''), status,
       coalesce(difficulty,''), coalesce(location_id::text,''), coalesce(quest_id::text,''), visibility
from encounters
where campaign_id = $1 and name ilike $2
limit 1;
`
	var e worldstore.Encounter
	err := s.db.QueryRow(ctx, q, campaignID, name).Scan(&e.ID, &e.CampaignID, &e.Name, &e.Kind,
		&e.Description, &e.Status, &e.Difficulty, &e.LocationID, &e.QuestID, &e.Visibility)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateEncounter(ctx context.Context, e *worldstore.Encounter) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = "planned"
	}
	if e.Visibility == "" {
		e.Visibility = "dm_only"
	}
	const q = `
insert into encounters (id, campaign_id, name, encounter_type, description, status,
                        difficulty, location_id, quest_id, visibility)
values ($1, $2, $3, $4, nullif($5,''), $6, nullif($7,''), nullif($8,'')::uuid, nullif($9,'')::uuid, $10)
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, e.ID, e.CampaignID, e.Name, e.Kind, e.Description, e.Status,
		e.Difficulty, e.LocationID, e.QuestID, e.Visibility).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert encounter: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteEncounter(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "encounters", id)
}

func (s *Store) FindFactionByName(ctx context.Context, campaignID, name string) (*worldstore.Faction, error) {
	const q = `
select id, campaign_id, name, faction_type, coalesce(description,''), is_known_to_party,
       coalesce(hq_location_id::text,''), status, coalesce(color,''), coalesce(icon,'')
from factions
where campaign_id = $1 and name ilike $2
limit 1;
`
	var f worldstore.Faction
	err := s.db.QueryRow(ctx, q, campaignID, name).Scan(&f.ID, &f.CampaignID, &f.Name, &f.Kind,
		&f.Description, &f.KnownToParty, &f.HQLocationID, &f.Status, &f.Color, &f.Icon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) CreateFaction(ctx context.Context, f *worldstore.Faction) (string, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Status == "" {
		f.Status = "active"
	}
	const q = `
insert into factions (id, campaign_id, name, faction_type, description, is_known_to_party,
                      hq_location_id, status, color, icon)
values ($1, $2, $3, $4, nullif($5,''), $6, nullif($7,'')::uuid, $8, nullif($9,''), nullif($10,''))
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, f.ID, f.CampaignID, f.Name, f.Kind, f.Description, f.KnownToParty,
		f.HQLocationID, f.Status, f.Color, f.Icon).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert faction: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteFaction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "factions", id)
}

func (s *Store) AddFactionMember(ctx context.Context, m *worldstore.FactionMembership) error {
	const q = `
insert into faction_members (id, faction_id, character_id, role, is_active, is_public)
values ($1, $2, $3, nullif($4,''), $5, $6)
on conflict (faction_id, character_id) do update
set role = excluded.role, is_active = excluded.is_active;
`
	_, err := s.db.Exec(ctx, q, uuid.New().String(), m.FactionID, m.CharacterID, m.Role, m.Active, m.Public)
	if err != nil {
		return fmt.Errorf("insert faction member: %w", err)
	}
	return nil
}

func (s *Store) CreateTimelineEvent(ctx context.Context, ev *worldstore.TimelineEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	const q = `
insert into timeline_events (id, campaign_id, title, description, event_type, event_date,
                             session_id, location, is_major)
values ($1, $2, $3, nullif($4,''), $5, $6, nullif($7,'')::uuid, nullif($8,''), $9)
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, ev.ID, ev.CampaignID, ev.Title, ev.Description, ev.Kind,
		ev.EventDate, ev.SessionID, ev.Location, ev.Major).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert timeline event: %w", err)
	}

	for _, chID := range ev.CharacterIDs {
		const lq = `
insert into timeline_event_characters (timeline_event_id, character_id)
values ($1, $2)
on conflict do nothing;
`
		if _, err := s.db.Exec(ctx, lq, id, chID); err != nil {
			return "", fmt.Errorf("link timeline event character: %w", err)
		}
	}
	return id, nil
}

func (s *Store) DeleteTimelineEvent(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "timeline_events", id)
}

func (s *Store) FindRelationship(ctx context.Context, campaignID, fromID, toID string) (*worldstore.Relationship, error) {
	const q = `
select id, campaign_id, from_character_id, to_character_id, custom_label,
       coalesce(description,''), is_known_to_party, is_primary, status
from character_relationships
where campaign_id = $1
  and ((from_character_id = $2 and to_character_id = $3)
    or (from_character_id = $3 and to_character_id = $2))
limit 1;
`
	var rel worldstore.Relationship
	err := s.db.QueryRow(ctx, q, campaignID, fromID, toID).Scan(&rel.ID, &rel.CampaignID,
		&rel.FromCharacterID, &rel.ToCharacterID, &rel.Label, &rel.Description,
		&rel.KnownToParty, &rel.Primary, &rel.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *Store) CreateRelationship(ctx context.Context, rel *worldstore.Relationship) (string, error) {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.Status == "" {
		rel.Status = "active"
	}
	const q = `
insert into character_relationships (id, campaign_id, from_character_id, to_character_id,
                                     custom_label, description, is_known_to_party, is_primary, status)
values ($1, $2, $3, $4, $5, nullif($6,''), $7, $8, $9)
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, rel.ID, rel.CampaignID, rel.FromCharacterID, rel.ToCharacterID,
		rel.Label, rel.Description, rel.KnownToParty, rel.Primary, rel.Status).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert relationship: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "character_relationships", id)
}

func (s *Store) FindSessionQuestLink(ctx context.Context, sessionID, questID string) (*worldstore.SessionQuestLink, error) {
	const q = `
select id, session_id, quest_id, progress_type
from session_quests
where session_id = $1 and quest_id = $2
limit 1;
`
	var link worldstore.SessionQuestLink
	err := s.db.QueryRow(ctx, q, sessionID, questID).Scan(&link.ID, &link.SessionID,
		&link.QuestID, &link.ProgressType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, worldstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *Store) CreateSessionQuestLink(ctx context.Context, link *worldstore.SessionQuestLink) (string, error) {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	const q = `
insert into session_quests (id, session_id, quest_id, progress_type)
values ($1, $2, $3, $4)
returning id;
`
	var id string
	err := s.db.QueryRow(ctx, q, link.ID, link.SessionID, link.QuestID, link.ProgressType).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert session quest link: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateSessionQuestProgress(ctx context.Context, id, progressType string) error {
	const q = `update session_quests set progress_type = $2 where id = $1;`
	return s.execExpectingRow(ctx, q, id, progressType)
}

func (s *Store) DeleteSessionQuestLink(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "session_quests", id)
}
