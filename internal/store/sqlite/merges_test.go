package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/store"
)

func seedMerge(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	records := []*domain.Record{
		makeTestRecord("con-1", domain.EntityTypeContact, map[string]string{"Email": "jane@example.com"}),
		makeTestRecord("con-2", domain.EntityTypeContact, map[string]string{"Email": "JANE@example.com", "Name": "Jane"}),
		makeTestRecord("con-3", domain.EntityTypeContact, map[string]string{"Phone": "555-0100"}),
	}
	if err := s.CreateRecords(ctx, records); err != nil {
		t.Fatalf("CreateRecords: %v", err)
	}

	for _, d := range []*domain.CustomFieldDefinition{
		makeTestDefinition("cfd-tier", domain.EntityTypeContact, "Tier", domain.CustomFieldText),
		makeTestDefinition("cfd-src", domain.EntityTypeContact, "Source", domain.CustomFieldText),
	} {
		if err := s.CreateCustomFieldDefinition(ctx, d); err != nil {
			t.Fatalf("CreateCustomFieldDefinition: %v", err)
		}
	}

	for _, v := range []struct{ def, rec, value string }{
		{"cfd-tier", "con-1", "gold"},
		{"cfd-tier", "con-2", "bronze"},
		{"cfd-src", "con-2", "webinar"},
		{"cfd-src", "con-3", "referral"},
	} {
		if _, err := s.SetCustomFieldValue(ctx, v.def, v.rec, v.value); err != nil {
			t.Fatalf("SetCustomFieldValue: %v", err)
		}
	}
}

func planFor(t *testing.T, s *Store, master string, dups ...string) *dedupe.MergePlan {
	t.Helper()
	records, err := s.ListRecords(context.Background(), domain.EntityTypeContact)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	plan, err := dedupe.Resolve(master, dups, dedupe.IndexRecords(records))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return plan
}

func TestApplyMergePlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMerge(t, s)

	plan := planFor(t, s, "con-1", "con-2", "con-3")
	history, err := s.ApplyMergePlan(ctx, plan)
	if err != nil {
		t.Fatalf("ApplyMergePlan: %v", err)
	}

	master, err := s.GetRecord(ctx, "con-1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if master.Field("Email") != "jane@example.com" || master.Field("Name") != "Jane" || master.Field("Phone") != "555-0100" {
		t.Errorf("master fields: %v", master.Fields)
	}

	for _, id := range []string{"con-2", "con-3"} {
		dup, err := s.GetRecord(ctx, id)
		if err != nil {
			t.Fatalf("GetRecord %s: %v", id, err)
		}
		if dup.MergedInto != "con-1" || dup.DeletedAt == nil {
			t.Errorf("%s should be merged into con-1: %+v", id, dup)
		}
	}

	active, _ := s.ListRecords(ctx, domain.EntityTypeContact)
	if len(active) != 1 {
		t.Errorf("expected only the master to stay active, got %d", len(active))
	}

	// The master keeps its own tier; the first duplicate supplies the source.
	values, err := s.ListCustomFieldValues(ctx, "con-1")
	if err != nil {
		t.Fatalf("ListCustomFieldValues: %v", err)
	}
	got := map[string]string{}
	for _, v := range values {
		got[v.DefinitionID] = v.Value
	}
	if got["cfd-tier"] != "gold" || got["cfd-src"] != "webinar" || len(got) != 2 {
		t.Errorf("master custom values: %v", got)
	}
	for _, id := range []string{"con-2", "con-3"} {
		if left, _ := s.ListCustomFieldValues(ctx, id); len(left) != 0 {
			t.Errorf("%s still has custom values: %+v", id, left)
		}
	}

	list, err := s.ListMergeHistory(ctx, "con-1")
	if err != nil {
		t.Fatalf("ListMergeHistory: %v", err)
	}
	if len(list) != 1 || list[0].ID != history.ID {
		t.Fatalf("history: %+v", list)
	}
	if len(list[0].DuplicateIDs) != 2 || list[0].Fields["Name"] != "Jane" {
		t.Errorf("history row: %+v", list[0])
	}
}

func TestApplyMergePlan_StalePlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMerge(t, s)

	plan := planFor(t, s, "con-1", "con-2")
	if err := s.DeleteRecord(ctx, "con-2"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}

	_, err := s.ApplyMergePlan(ctx, plan)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Nothing was written.
	master, _ := s.GetRecord(ctx, "con-1")
	if master.Field("Name") != "" {
		t.Errorf("master changed: %v", master.Fields)
	}
	if h, _ := s.ListMergeHistory(ctx, "con-1"); len(h) != 0 {
		t.Errorf("unexpected history: %+v", h)
	}
}

func TestApplyMergePlan_EditedAfterPlan(t *testing.T) {
	for _, edited := range []string{"con-1", "con-2"} {
		t.Run(edited, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			seedMerge(t, s)

			plan := planFor(t, s, "con-1", "con-2")
			before, err := s.GetRecord(ctx, edited)
			if err != nil {
				t.Fatalf("GetRecord: %v", err)
			}
			fields := map[string]string{"Phone": "5551234567"}
			for k, v := range before.Fields {
				fields[k] = v
			}
			if _, err := s.UpdateRecordFields(ctx, edited, fields); err != nil {
				t.Fatalf("UpdateRecordFields: %v", err)
			}

			_, err = s.ApplyMergePlan(ctx, plan)
			if !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			// The edit survives and nothing was merged.
			after, _ := s.GetRecord(ctx, edited)
			if after.Field("Phone") != "5551234567" || after.MergedInto != "" {
				t.Errorf("%s after rejected merge: %+v", edited, after)
			}
			if h, _ := s.ListMergeHistory(ctx, "con-1"); len(h) != 0 {
				t.Errorf("unexpected history: %+v", h)
			}
		})
	}
}

func TestApplyMergePlan_Invalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ApplyMergePlan(context.Background(), &dedupe.MergePlan{MasterID: "con-1"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	unversioned := &dedupe.MergePlan{
		EntityType:   domain.EntityTypeContact,
		MasterID:     "con-1",
		DuplicateIDs: []string{"con-2"},
	}
	_, err = s.ApplyMergePlan(context.Background(), unversioned)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a plan without versions, got %v", err)
	}
}
