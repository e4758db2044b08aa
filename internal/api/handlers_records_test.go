package api

import (
	"net/http"
	"testing"
)

func TestCreateRecordReturnsCreatedRecord(t *testing.T) {
	fixture := newAPIFixture(t)

	body := recordBody("2024-06-10", "08:30", 6)
	body["medications"] = []map[string]string{{"name": "Ibuprofen", "dosage": "400mg"}}
	response := fixture.authed(t, http.MethodPost, "/api/records", body)
	assertStatus(t, response, http.StatusCreated)

	payload := recordResponse{}
	decodeResponse(t, response, &payload)
	if payload.Record.ID != "rec-1" || payload.Record.PainLevel != 6 {
		t.Fatalf("unexpected record %#v", payload.Record)
	}
	if len(payload.Warnings) != 1 || payload.Warnings[0].Field != "effectiveness" {
		t.Fatalf("expected missing effectiveness warning, got %#v", payload.Warnings)
	}

	response = fixture.authed(t, http.MethodGet, "/api/records/rec-1", nil)
	assertStatus(t, response, http.StatusOK)
}

func TestCreateRecordValidationFailure(t *testing.T) {
	fixture := newAPIFixture(t)

	response := fixture.authed(t, http.MethodPost, "/api/records", recordBody("2024-06-10", "08:30", 11))
	assertStatus(t, response, http.StatusUnprocessableEntity)

	payload := struct {
		Error  string `json:"error"`
		Errors []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"errors"`
	}{}
	decodeResponse(t, response, &payload)
	if len(payload.Errors) != 1 || payload.Errors[0].Field != "painLevel" {
		t.Fatalf("expected a painLevel error, got %#v", payload.Errors)
	}

	response = fixture.authed(t, http.MethodPost, "/api/records", []byte(`{"date":`))
	assertStatus(t, response, http.StatusBadRequest)

	response = fixture.authed(t, http.MethodPost, "/api/records", map[string]any{"date": "2024-06-10", "mood": "grim"})
	assertStatus(t, response, http.StatusBadRequest)
}

func TestCreateRecordDuplicateSlotConflicts(t *testing.T) {
	fixture := newAPIFixture(t)

	assertStatus(t, fixture.authed(t, http.MethodPost, "/api/records", recordBody("2024-06-10", "08:30", 6)), http.StatusCreated)
	response := fixture.authed(t, http.MethodPost, "/api/records", recordBody("2024-06-10", "08:30", 2))
	assertStatus(t, response, http.StatusConflict)

	payload := map[string]string{}
	decodeResponse(t, response, &payload)
	if payload["existingId"] != "rec-1" {
		t.Fatalf("expected conflict to name rec-1, got %#v", payload)
	}
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	fixture := newAPIFixture(t)
	assertStatus(t, fixture.authed(t, http.MethodPost, "/api/records", recordBody("2024-06-10", "08:30", 6)), http.StatusCreated)

	response := fixture.authed(t, http.MethodPatch, "/api/records/rec-1", map[string]any{"painLevel": 3, "notes": "eased off"})
	assertStatus(t, response, http.StatusOK)
	payload := recordResponse{}
	decodeResponse(t, response, &payload)
	if payload.Record.PainLevel != 3 || payload.Record.Notes != "eased off" || payload.Record.Date != "2024-06-10" {
		t.Fatalf("unexpected updated record %#v", payload.Record)
	}

	assertStatus(t, fixture.authed(t, http.MethodPatch, "/api/records/missing", map[string]any{"painLevel": 3}), http.StatusNotFound)
	assertStatus(t, fixture.authed(t, http.MethodDelete, "/api/records/rec-1", nil), http.StatusNoContent)
	assertStatus(t, fixture.authed(t, http.MethodGet, "/api/records/rec-1", nil), http.StatusNotFound)
	assertStatus(t, fixture.authed(t, http.MethodDelete, "/api/records/rec-1", nil), http.StatusNotFound)
}

func TestListRecordsFilters(t *testing.T) {
	fixture := newAPIFixture(t)

	mild := recordBody("2024-06-01", "08:00", 2)
	mild["notes"] = "walked it off"
	assertStatus(t, fixture.authed(t, http.MethodPost, "/api/records", mild), http.StatusCreated)
	severe := recordBody("2024-06-05", "08:00", 9)
	severe["menstrualStatus"] = "before-period"
	assertStatus(t, fixture.authed(t, http.MethodPost, "/api/records", severe), http.StatusCreated)

	cases := map[string][]string{
		"/api/records":                                {"rec-2", "rec-1"},
		"/api/records?q=WALKED":                       {"rec-1"},
		"/api/records?from=2024-06-04&to=2024-06-30":  {"rec-2"},
		"/api/records?min_pain=5":                     {"rec-2"},
		"/api/records?max_pain=4":                     {"rec-1"},
		"/api/records?menstrual_status=before-period": {"rec-2"},
	}
	for path, expected := range cases {
		response := fixture.authed(t, http.MethodGet, path, nil)
		assertStatus(t, response, http.StatusOK)
		payload := recordsResponse{}
		decodeResponse(t, response, &payload)
		if payload.Count != len(expected) {
			t.Fatalf("%s: expected %d records, got %d", path, len(expected), payload.Count)
		}
		for index, id := range expected {
			if payload.Records[index].ID != id {
				t.Fatalf("%s: expected %v, got %#v", path, expected, payload.Records)
			}
		}
	}

	badRequests := []string{
		"/api/records?q=x&min_pain=1",
		"/api/records?from=2024-06-01",
		"/api/records?min_pain=high",
		"/api/records?from=2024-06-30&to=2024-06-01",
		"/api/records?menstrual_status=unknown",
		"/api/records?min_pain=-1",
	}
	for _, path := range badRequests {
		assertStatus(t, fixture.authed(t, http.MethodGet, path, nil), http.StatusBadRequest)
	}
}
