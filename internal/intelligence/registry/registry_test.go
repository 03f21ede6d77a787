package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

const testCampaign = "camp-1"

func suggestionOf(t domain.SuggestionType) *domain.Suggestion {
	return &domain.Suggestion{
		ID:         "sug-1",
		CampaignID: testCampaign,
		Type:       t,
		Status:     domain.StatusPending,
	}
}

func TestRegistryResolve(t *testing.T) {
	store := newMemStore()
	reg := Default(store)

	t.Run("resolves every built-in type", func(t *testing.T) {
		assert.Len(t, reg.Types(), 15)
		for _, typ := range reg.Types() {
			h, err := reg.Resolve(typ)
			require.NoError(t, err)
			assert.NotNil(t, h)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := reg.Resolve("telepathy_detected")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownSuggestionType)
	})
}

func TestAsMap(t *testing.T) {
	t.Run("map passes through", func(t *testing.T) {
		m := asMap(map[string]any{"name": "Bran"})
		assert.Equal(t, "Bran", m["name"])
	})

	t.Run("bare string becomes value key", func(t *testing.T) {
		m := asMap("a loose quote")
		assert.Equal(t, "a loose quote", m["value"])
	})

	t.Run("nil becomes empty map", func(t *testing.T) {
		assert.Empty(t, asMap(nil))
	})
}

func TestLocationHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and reverts", func(t *testing.T) {
		store := newMemStore()
		h := &locationHandler{store: store}
		s := suggestionOf(domain.TypeLocationDetected)

		res, err := h.Commit(ctx, s, map[string]any{
			"name":          "Duskmere Hollow",
			"location_type": "village",
			"description":   "A fog-bound village",
		})
		require.NoError(t, err)
		id, _ := res.FinalValue["location_id"].(string)
		require.NotEmpty(t, id)
		require.Contains(t, store.locations, id)
		assert.Equal(t, "village", store.locations[id].Kind)
		assert.True(t, store.locations[id].Known)
		assert.False(t, store.locations[id].Visited)

		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.NotContains(t, store.locations, id)
	})

	t.Run("existing location short-circuits", func(t *testing.T) {
		store := newMemStore()
		store.locations["loc-9"] = &worldstore.Location{
			ID: "loc-9", CampaignID: testCampaign, Name: "The Rusty Nail",
		}
		h := &locationHandler{store: store}
		s := suggestionOf(domain.TypeLocationDetected)

		res, err := h.Commit(ctx, s, map[string]any{"name": "the rusty nail"})
		require.NoError(t, err)
		assert.Equal(t, "loc-9", res.FinalValue["existing_location_id"])
		assert.Equal(t, "Location already existed", res.FinalValue["note"])
		assert.NotContains(t, res.FinalValue, "location_id")
		assert.Len(t, store.locations, 1)

		// reversal must leave the pre-existing record alone
		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.Contains(t, store.locations, "loc-9")
	})

	t.Run("resolves parent by name", func(t *testing.T) {
		store := newMemStore()
		store.locations["loc-p"] = &worldstore.Location{
			ID: "loc-p", CampaignID: testCampaign, Name: "Duskmere Region",
		}
		h := &locationHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeLocationDetected), map[string]any{
			"name":                 "Hollow Keep",
			"parent_location_name": "duskmere region",
		})
		require.NoError(t, err)
		id := res.FinalValue["location_id"].(string)
		assert.Equal(t, "loc-p", store.locations[id].ParentID)
	})

	t.Run("missing name fails", func(t *testing.T) {
		h := &locationHandler{store: newMemStore()}
		_, err := h.Commit(ctx, suggestionOf(domain.TypeLocationDetected), map[string]any{})
		assert.Error(t, err)
	})
}

func TestNPCHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with faction membership", func(t *testing.T) {
		store := newMemStore()
		store.factions["fac-1"] = &worldstore.Faction{
			ID: "fac-1", CampaignID: testCampaign, Name: "Ashen Circle",
		}
		h := &npcHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeNPCDetected), map[string]any{
			"name":         "Maro Venn",
			"role":         "fence",
			"faction_name": "Ashen Circle",
		})
		require.NoError(t, err)
		id := res.FinalValue["character_id"].(string)
		require.Contains(t, store.characters, id)
		assert.Equal(t, "npc", store.characters[id].Kind)
		assert.Equal(t, "alive", store.characters[id].Status)
		require.Len(t, store.memberships, 1)
		assert.Equal(t, "fac-1", store.memberships[0].FactionID)
		assert.Equal(t, id, store.memberships[0].CharacterID)
	})

	t.Run("unknown faction is not fatal", func(t *testing.T) {
		store := newMemStore()
		h := &npcHandler{store: store}
		res, err := h.Commit(ctx, suggestionOf(domain.TypeNPCDetected), map[string]any{
			"name":         "Maro Venn",
			"faction_name": "Nobody Knows Us",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.FinalValue["character_id"])
		assert.Empty(t, store.memberships)
	})

	t.Run("existing character short-circuits", func(t *testing.T) {
		store := newMemStore()
		store.characters["ch-1"] = &worldstore.Character{
			ID: "ch-1", CampaignID: testCampaign, Name: "Maro Venn",
		}
		h := &npcHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeNPCDetected), map[string]any{"name": "MARO VENN"})
		require.NoError(t, err)
		assert.Equal(t, "ch-1", res.FinalValue["existing_character_id"])

		s := suggestionOf(domain.TypeNPCDetected)
		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.Contains(t, store.characters, "ch-1")
	})
}

func TestQuestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved giver drops loose name", func(t *testing.T) {
		store := newMemStore()
		store.characters["ch-g"] = &worldstore.Character{
			ID: "ch-g", CampaignID: testCampaign, Name: "Elder Miriam",
		}
		h := &questHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeQuestDetected), map[string]any{
			"name":             "The Sunken Bell",
			"quest_giver_name": "Elder Miriam",
		})
		require.NoError(t, err)
		q := store.quests[res.FinalValue["quest_id"].(string)]
		assert.Equal(t, "ch-g", q.GiverID)
		assert.Empty(t, q.GiverName)
		assert.Equal(t, "side_quest", q.Kind)
		assert.Equal(t, "available", q.Status)
	})

	t.Run("unresolved giver keeps the text", func(t *testing.T) {
		store := newMemStore()
		h := &questHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeQuestDetected), map[string]any{
			"name":             "The Sunken Bell",
			"quest_giver_name": "A hooded stranger",
		})
		require.NoError(t, err)
		q := store.quests[res.FinalValue["quest_id"].(string)]
		assert.Empty(t, q.GiverID)
		assert.Equal(t, "A hooded stranger", q.GiverName)
	})
}

func TestFactionHandler(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := &factionHandler{store: store}

	res, err := h.Commit(ctx, suggestionOf(domain.TypeFactionDetected), map[string]any{
		"name": "Ashen Circle",
	})
	require.NoError(t, err)
	f := store.factions[res.FinalValue["faction_id"].(string)]
	assert.Equal(t, "guild", f.Kind)
	assert.Equal(t, "active", f.Status)
	assert.Equal(t, "#8B5CF6", f.Color)
	assert.Equal(t, "shield", f.Icon)
	assert.True(t, f.KnownToParty)
}

func TestStatusChangeHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("commit snapshots previous status", func(t *testing.T) {
		store := newMemStore()
		store.characters["ch-1"] = &worldstore.Character{
			ID: "ch-1", CampaignID: testCampaign, Name: "Bran", Status: "alive",
		}
		h := &statusChangeHandler{store: store}
		s := suggestionOf(domain.TypeStatusChange)
		s.CharacterID = "ch-1"

		res, err := h.Commit(ctx, s, map[string]any{"status": "captured"})
		require.NoError(t, err)
		assert.Equal(t, "alive", res.CurrentValue)
		assert.Equal(t, "captured", store.characters["ch-1"].Status)
		assert.Equal(t, "#8B5CF6", store.characters["ch-1"].StatusColor)
	})

	t.Run("revert restores snapshot", func(t *testing.T) {
		store := newMemStore()
		store.characters["ch-1"] = &worldstore.Character{
			ID: "ch-1", CampaignID: testCampaign, Name: "Bran", Status: "dead",
		}
		h := &statusChangeHandler{store: store}
		s := suggestionOf(domain.TypeStatusChange)
		s.CharacterID = "ch-1"
		s.CurrentValue = "alive"

		require.NoError(t, h.Revert(ctx, s))
		assert.Equal(t, "alive", store.characters["ch-1"].Status)
	})

	t.Run("no character id fails", func(t *testing.T) {
		h := &statusChangeHandler{store: newMemStore()}
		_, err := h.Commit(ctx, suggestionOf(domain.TypeStatusChange), map[string]any{"status": "dead"})
		assert.Error(t, err)
	})
}

func TestNoteAppendHandler(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.characters["ch-1"] = &worldstore.Character{
		ID: "ch-1", CampaignID: testCampaign, Name: "Bran", Notes: "Keeps to himself.",
	}
	h := &noteAppendHandler{store: store}
	s := suggestionOf(domain.TypeSecretRevealed)
	s.CharacterID = "ch-1"

	res, err := h.Commit(ctx, s, map[string]any{"secret": "He is the missing heir."})
	require.NoError(t, err)
	assert.Equal(t, "He is the missing heir.", res.FinalValue["note_text"])
	assert.Equal(t, "Keeps to himself.\n\nHe is the missing heir.", store.characters["ch-1"].Notes)

	s.FinalValue = res.FinalValue
	require.NoError(t, h.Revert(ctx, s))
	assert.Equal(t, "Keeps to himself.", store.characters["ch-1"].Notes)
}

func TestQuoteHandler(t *testing.T) {
	ctx := context.Background()

	seed := func() (*memStore, *domain.Suggestion) {
		store := newMemStore()
		store.characters["ch-1"] = &worldstore.Character{
			ID: "ch-1", CampaignID: testCampaign, Name: "Bran", Quotes: []string{"First words."},
		}
		s := suggestionOf(domain.TypeQuote)
		s.CharacterID = "ch-1"
		return store, s
	}

	t.Run("appends and reverts", func(t *testing.T) {
		store, s := seed()
		h := &quoteHandler{store: store}

		_, err := h.Commit(ctx, s, "I never agreed to this.")
		require.NoError(t, err)
		assert.Equal(t, []string{"First words.", "I never agreed to this."}, store.characters["ch-1"].Quotes)

		require.NoError(t, h.Revert(ctx, s))
		assert.Equal(t, []string{"First words."}, store.characters["ch-1"].Quotes)
	})

	t.Run("duplicate quote short-circuits, revert keeps the original", func(t *testing.T) {
		store, s := seed()
		h := &quoteHandler{store: store}

		res, err := h.Commit(ctx, s, "FIRST WORDS.")
		require.NoError(t, err)
		assert.Equal(t, "Quote already recorded", res.FinalValue["note"])
		assert.Equal(t, []string{"First words."}, store.characters["ch-1"].Quotes)

		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.Equal(t, []string{"First words."}, store.characters["ch-1"].Quotes)
	})
}

func TestStoryHookHandler(t *testing.T) {
	ctx := context.Background()

	seed := func() (*memStore, *domain.Suggestion) {
		store := newMemStore()
		store.characters["ch-1"] = &worldstore.Character{
			ID: "ch-1", CampaignID: testCampaign, Name: "Bran",
			StoryHooks: []worldstore.StoryHook{{Hook: "Owes the Ashen Circle a debt"}},
		}
		s := suggestionOf(domain.TypeStoryHook)
		s.CharacterID = "ch-1"
		return store, s
	}

	t.Run("appends a new hook", func(t *testing.T) {
		store, s := seed()
		h := &storyHookHandler{store: store}

		_, err := h.Commit(ctx, s, map[string]any{"hook": "Searching for his sister"})
		require.NoError(t, err)
		require.Len(t, store.characters["ch-1"].StoryHooks, 2)

		require.NoError(t, h.Revert(ctx, s))
		assert.Len(t, store.characters["ch-1"].StoryHooks, 1)
	})

	t.Run("duplicate hook short-circuits", func(t *testing.T) {
		store, s := seed()
		h := &storyHookHandler{store: store}

		res, err := h.Commit(ctx, s, map[string]any{"hook": "owes the ashen circle a debt"})
		require.NoError(t, err)
		assert.Equal(t, "Hook already recorded", res.FinalValue["note"])
		assert.Len(t, store.characters["ch-1"].StoryHooks, 1)
	})

	t.Run("resolve marks an existing hook, revert unmarks it", func(t *testing.T) {
		store, s := seed()
		h := &storyHookHandler{store: store}

		res, err := h.Commit(ctx, s, map[string]any{
			"hook":         "Owes the Ashen Circle a debt",
			"resolve_hook": true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Owes the Ashen Circle a debt", res.FinalValue["resolved_hook"])
		assert.True(t, store.characters["ch-1"].StoryHooks[0].Resolved)

		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.False(t, store.characters["ch-1"].StoryHooks[0].Resolved)
	})

	t.Run("resolving an unknown hook fails", func(t *testing.T) {
		store, s := seed()
		h := &storyHookHandler{store: store}
		_, err := h.Commit(ctx, s, map[string]any{"hook": "Never heard of it", "resolve_hook": true})
		assert.Error(t, err)
	})
}

func TestImportantPersonHandler(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.characters["ch-1"] = &worldstore.Character{
		ID: "ch-1", CampaignID: testCampaign, Name: "Bran",
		ImportantPeople: []worldstore.Person{{Name: "Elder Miriam", Relationship: "mentor"}},
	}
	h := &importantPersonHandler{store: store}
	s := suggestionOf(domain.TypeImportantPerson)
	s.CharacterID = "ch-1"

	_, err := h.Commit(ctx, s, map[string]any{"name": "Maro Venn", "relationship": "rival"})
	require.NoError(t, err)
	require.Len(t, store.characters["ch-1"].ImportantPeople, 2)

	res, err := h.Commit(ctx, s, map[string]any{"name": "elder miriam"})
	require.NoError(t, err)
	assert.Equal(t, "Person already recorded", res.FinalValue["note"])
	assert.Len(t, store.characters["ch-1"].ImportantPeople, 2)
}

func TestRelationshipHandler(t *testing.T) {
	ctx := context.Background()

	seed := func() *memStore {
		store := newMemStore()
		store.characters["ch-a"] = &worldstore.Character{
			ID: "ch-a", CampaignID: testCampaign, Name: "Zara the Unbound",
		}
		store.characters["ch-b"] = &worldstore.Character{
			ID: "ch-b", CampaignID: testCampaign, Name: "Maro Venn",
		}
		return store
	}

	t.Run("loose name match creates the link", func(t *testing.T) {
		store := seed()
		h := &relationshipHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeRelationship), map[string]any{
			"from_character_name": "Zara",
			"to_character_name":   "Maro Venn",
			"relationship_type":   "Rival",
		})
		require.NoError(t, err)
		rel := store.relationships[res.FinalValue["relationship_id"].(string)]
		assert.Equal(t, "ch-a", rel.FromCharacterID)
		assert.Equal(t, "ch-b", rel.ToCharacterID)
		assert.Equal(t, "Rival", rel.Label)
	})

	t.Run("unresolvable name fails the commit", func(t *testing.T) {
		store := seed()
		h := &relationshipHandler{store: store}

		_, err := h.Commit(ctx, suggestionOf(domain.TypeRelationship), map[string]any{
			"from_character_name": "Zara",
			"to_character_name":   "Total Stranger",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Total Stranger")
		assert.Empty(t, store.relationships)
	})

	t.Run("existing link short-circuits either direction", func(t *testing.T) {
		store := seed()
		store.relationships["rel-1"] = &worldstore.Relationship{
			ID: "rel-1", CampaignID: testCampaign,
			FromCharacterID: "ch-b", ToCharacterID: "ch-a",
		}
		h := &relationshipHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeRelationship), map[string]any{
			"from_character_name": "Zara",
			"to_character_name":   "Maro Venn",
		})
		require.NoError(t, err)
		assert.Equal(t, "rel-1", res.FinalValue["existing_relationship_id"])
		assert.Len(t, store.relationships, 1)
	})
}

func TestSessionLinkHandler(t *testing.T) {
	ctx := context.Background()

	seed := func() (*memStore, *domain.Suggestion) {
		store := newMemStore()
		store.quests["q-1"] = &worldstore.Quest{
			ID: "q-1", CampaignID: testCampaign, Name: "The Sunken Bell",
		}
		s := suggestionOf(domain.TypeQuestSessionLink)
		s.SessionID = "sess-3"
		return store, s
	}

	t.Run("creates and reverts a new link", func(t *testing.T) {
		store, s := seed()
		h := &sessionLinkHandler{store: store}

		res, err := h.Commit(ctx, s, map[string]any{"quest_name": "The Sunken Bell"})
		require.NoError(t, err)
		id := res.FinalValue["session_quest_id"].(string)
		assert.Equal(t, "progressed", store.sessionQuests[id].ProgressType)

		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.Empty(t, store.sessionQuests)
	})

	t.Run("existing link is updated, revert leaves it", func(t *testing.T) {
		store, s := seed()
		store.sessionQuests["sq-1"] = &worldstore.SessionQuestLink{
			ID: "sq-1", SessionID: "sess-3", QuestID: "q-1", ProgressType: "started",
		}
		h := &sessionLinkHandler{store: store}

		res, err := h.Commit(ctx, s, map[string]any{
			"quest_name":    "The Sunken Bell",
			"progress_type": "completed",
		})
		require.NoError(t, err)
		assert.Equal(t, "Updated existing link", res.FinalValue["note"])
		assert.Equal(t, "completed", store.sessionQuests["sq-1"].ProgressType)

		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.Contains(t, store.sessionQuests, "sq-1")
	})

	t.Run("unknown quest fails", func(t *testing.T) {
		store, s := seed()
		h := &sessionLinkHandler{store: store}
		_, err := h.Commit(ctx, s, map[string]any{"quest_name": "No Such Quest"})
		assert.Error(t, err)
	})
}

func TestTimelineEventHandler(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.characters["ch-a"] = &worldstore.Character{
		ID: "ch-a", CampaignID: testCampaign, Name: "Zara the Unbound",
	}
	h := &timelineEventHandler{store: store}
	s := suggestionOf(domain.TypeTimelineEvent)
	s.SessionID = "sess-3"

	res, err := h.Commit(ctx, s, map[string]any{
		"title":           "The bell tolls",
		"character_names": []any{"Zara", "Someone Unknown"},
		"event_date":      "2026-03-14",
	})
	require.NoError(t, err)
	ev := store.events[res.FinalValue["timeline_event_id"].(string)]
	assert.Equal(t, []string{"ch-a"}, ev.CharacterIDs)
	assert.Equal(t, "sess-3", ev.SessionID)
	assert.Equal(t, 2026, ev.EventDate.Year())

	s.FinalValue = res.FinalValue
	require.NoError(t, h.Revert(ctx, s))
	assert.Empty(t, store.events)

	// deleting an already-deleted event is not an error
	require.NoError(t, h.Revert(ctx, s))
}

func TestItemHandler(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.characters["ch-a"] = &worldstore.Character{
		ID: "ch-a", CampaignID: testCampaign, Name: "Zara the Unbound",
	}
	h := &itemHandler{store: store}

	res, err := h.Commit(ctx, suggestionOf(domain.TypeItemDetected), map[string]any{
		"name":       "Bell of Drowned Hours",
		"rarity":     "legendary",
		"owner_name": "Zara the Unbound",
	})
	require.NoError(t, err)
	ev := store.events[res.FinalValue["timeline_event_id"].(string)]
	assert.Equal(t, "Item: Bell of Drowned Hours", ev.Title)
	assert.Equal(t, "discovery", ev.Kind)
	assert.True(t, ev.Major)
	assert.Equal(t, []string{"ch-a"}, ev.CharacterIDs)
	assert.Equal(t, "ch-a", res.FinalValue["owner_id"])
}

func TestCombatOutcomeHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("death flips status and writes a major event", func(t *testing.T) {
		store := newMemStore()
		store.characters["ch-a"] = &worldstore.Character{
			ID: "ch-a", CampaignID: testCampaign, Name: "Maro Venn", Status: "alive",
		}
		h := &combatOutcomeHandler{store: store}
		s := suggestionOf(domain.TypeCombatOutcome)

		res, err := h.Commit(ctx, s, map[string]any{
			"outcome_type":   "death",
			"character_name": "Maro Venn",
		})
		require.NoError(t, err)
		assert.Equal(t, "dead", store.characters["ch-a"].Status)
		ev := store.events[res.FinalValue["timeline_event_id"].(string)]
		assert.Equal(t, "Death: Maro Venn", ev.Title)
		assert.Equal(t, "death", ev.Kind)
		assert.True(t, ev.Major)

		s.FinalValue = res.FinalValue
		require.NoError(t, h.Revert(ctx, s))
		assert.Equal(t, "alive", store.characters["ch-a"].Status)
		assert.Empty(t, store.events)
	})

	t.Run("victory leaves status alone", func(t *testing.T) {
		store := newMemStore()
		store.characters["ch-a"] = &worldstore.Character{
			ID: "ch-a", CampaignID: testCampaign, Name: "Maro Venn", Status: "alive",
		}
		h := &combatOutcomeHandler{store: store}

		res, err := h.Commit(ctx, suggestionOf(domain.TypeCombatOutcome), map[string]any{
			"outcome_type":   "victory",
			"character_name": "Maro Venn",
		})
		require.NoError(t, err)
		assert.Equal(t, "alive", store.characters["ch-a"].Status)
		ev := store.events[res.FinalValue["timeline_event_id"].(string)]
		assert.Equal(t, "combat", ev.Kind)
		assert.False(t, ev.Major)
	})
}
