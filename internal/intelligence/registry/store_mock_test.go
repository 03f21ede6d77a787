package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

// memStore is an in-memory worldstore.Store for handler tests.
type memStore struct {
	mu sync.Mutex

	nextID        int
	characters    map[string]*worldstore.Character
	locations     map[string]*worldstore.Location
	quests        map[string]*worldstore.Quest
	encounters    map[string]*worldstore.Encounter
	factions      map[string]*worldstore.Faction
	memberships   []worldstore.FactionMembership
	events        map[string]*worldstore.TimelineEvent
	relationships map[string]*worldstore.Relationship
	sessionQuests map[string]*worldstore.SessionQuestLink

	failCreates bool
}

func newMemStore() *memStore {
	return &memStore{
		characters:    make(map[string]*worldstore.Character),
		locations:     make(map[string]*worldstore.Location),
		quests:        make(map[string]*worldstore.Quest),
		encounters:    make(map[string]*worldstore.Encounter),
		factions:      make(map[string]*worldstore.Faction),
		events:        make(map[string]*worldstore.TimelineEvent),
		relationships: make(map[string]*worldstore.Relationship),
		sessionQuests: make(map[string]*worldstore.SessionQuestLink),
	}
}

func (m *memStore) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *memStore) GetCharacter(_ context.Context, id string) (*worldstore.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, worldstore.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) FindCharacterByName(_ context.Context, campaignID, name string) (*worldstore.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.characters {
		if c.CampaignID == campaignID && strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) ListCharacters(_ context.Context, campaignID string) ([]worldstore.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []worldstore.Character{}
	for _, c := range m.characters {
		if c.CampaignID == campaignID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) CreateCharacter(_ context.Context, c *worldstore.Character) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates {
		return "", fmt.Errorf("create refused")
	}
	if c.ID == "" {
		c.ID = m.id()
	}
	cp := *c
	m.characters[c.ID] = &cp
	return c.ID, nil
}

func (m *memStore) DeleteCharacter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.characters[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.characters, id)
	return nil
}

func (m *memStore) UpdateCharacterStatus(_ context.Context, id, status, statusColor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	c.Status = status
	if statusColor != "" {
		c.StatusColor = statusColor
	}
	return nil
}

func (m *memStore) AppendCharacterNote(_ context.Context, id, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	if c.Notes == "" {
		c.Notes = note
	} else {
		c.Notes += "\n\n" + note
	}
	return nil
}

func (m *memStore) RemoveCharacterNote(_ context.Context, id, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	c.Notes = strings.ReplaceAll(c.Notes, "\n\n"+note, "")
	c.Notes = strings.ReplaceAll(c.Notes, note, "")
	return nil
}

func (m *memStore) SetCharacterQuotes(_ context.Context, id string, quotes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	c.Quotes = quotes
	return nil
}

func (m *memStore) SetCharacterStoryHooks(_ context.Context, id string, hooks []worldstore.StoryHook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	c.StoryHooks = hooks
	return nil
}

func (m *memStore) SetCharacterImportantPeople(_ context.Context, id string, people []worldstore.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	c.ImportantPeople = people
	return nil
}

func (m *memStore) FindLocationByName(_ context.Context, campaignID, name string) (*worldstore.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.locations {
		if l.CampaignID == campaignID && strings.EqualFold(l.Name, name) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) CreateLocation(_ context.Context, l *worldstore.Location) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates {
		return "", fmt.Errorf("create refused")
	}
	if l.ID == "" {
		l.ID = m.id()
	}
	cp := *l
	m.locations[l.ID] = &cp
	return l.ID, nil
}

func (m *memStore) DeleteLocation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.locations, id)
	return nil
}

func (m *memStore) FindQuestByName(_ context.Context, campaignID, name string) (*worldstore.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quests {
		if q.CampaignID == campaignID && strings.EqualFold(q.Name, name) {
			cp := *q
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) CreateQuest(_ context.Context, q *worldstore.Quest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = m.id()
	}
	cp := *q
	m.quests[q.ID] = &cp
	return q.ID, nil
}

func (m *memStore) DeleteQuest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quests[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.quests, id)
	return nil
}

func (m *memStore) FindEncounterByName(_ context.Context, campaignID, name string) (*worldstore.Encounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.encounters {
		if e.CampaignID == campaignID && strings.EqualFold(e.Name, name) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) CreateEncounter(_ context.Context, e *worldstore.Encounter) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = m.id()
	}
	cp := *e
	m.encounters[e.ID] = &cp
	return e.ID, nil
}

func (m *memStore) DeleteEncounter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.encounters[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.encounters, id)
	return nil
}

func (m *memStore) FindFactionByName(_ context.Context, campaignID, name string) (*worldstore.Faction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.factions {
		if f.CampaignID == campaignID && strings.EqualFold(f.Name, name) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) CreateFaction(_ context.Context, f *worldstore.Faction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = m.id()
	}
	cp := *f
	m.factions[f.ID] = &cp
	return f.ID, nil
}

func (m *memStore) DeleteFaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.factions[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.factions, id)
	return nil
}

func (m *memStore) AddFactionMember(_ context.Context, mem *worldstore.FactionMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberships = append(m.memberships, *mem)
	return nil
}

func (m *memStore) CreateTimelineEvent(_ context.Context, ev *worldstore.TimelineEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates {
		return "", fmt.Errorf("create refused")
	}
	if ev.ID == "" {
		ev.ID = m.id()
	}
	cp := *ev
	m.events[ev.ID] = &cp
	return ev.ID, nil
}

func (m *memStore) DeleteTimelineEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) FindRelationship(_ context.Context, campaignID, fromID, toID string) (*worldstore.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rel := range m.relationships {
		if rel.CampaignID != campaignID {
			continue
		}
		if (rel.FromCharacterID == fromID && rel.ToCharacterID == toID) ||
			(rel.FromCharacterID == toID && rel.ToCharacterID == fromID) {
			cp := *rel
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) CreateRelationship(_ context.Context, rel *worldstore.Relationship) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rel.ID == "" {
		rel.ID = m.id()
	}
	cp := *rel
	m.relationships[rel.ID] = &cp
	return rel.ID, nil
}

func (m *memStore) DeleteRelationship(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.relationships[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.relationships, id)
	return nil
}

func (m *memStore) FindSessionQuestLink(_ context.Context, sessionID, questID string) (*worldstore.SessionQuestLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.sessionQuests {
		if link.SessionID == sessionID && link.QuestID == questID {
			cp := *link
			return &cp, nil
		}
	}
	return nil, worldstore.ErrNotFound
}

func (m *memStore) CreateSessionQuestLink(_ context.Context, link *worldstore.SessionQuestLink) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link.ID == "" {
		link.ID = m.id()
	}
	cp := *link
	m.sessionQuests[link.ID] = &cp
	return link.ID, nil
}

func (m *memStore) UpdateSessionQuestProgress(_ context.Context, id, progressType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.sessionQuests[id]
	if !ok {
		return worldstore.ErrNotFound
	}
	link.ProgressType = progressType
	return nil
}

func (m *memStore) DeleteSessionQuestLink(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessionQuests[id]; !ok {
		return worldstore.ErrNotFound
	}
	delete(m.sessionQuests, id)
	return nil
}
