package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/terraincognita07/paindiary/internal/models"
	"golang.org/x/text/cases"
)

// GetAllRecords returns every record, newest first.
func (service *DataManager) GetAllRecords(ctx context.Context) (records []models.PainRecord, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("get_all_records", err) }()

	records, err = service.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(records)
	return records, nil
}

// GetRecordsByDateRange returns records dated within [from, to], newest first.
func (service *DataManager) GetRecordsByDateRange(ctx context.Context, from string, to string) (records []models.PainRecord, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("get_records_by_date_range", err) }()

	fromDay, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from must use YYYY-MM-DD", ErrInvalidQuery)
	}
	toDay, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to must use YYYY-MM-DD", ErrInvalidQuery)
	}
	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("%w: range end is before range start", ErrInvalidQuery)
	}

	all, err := service.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	records = filterRecords(all, func(record models.PainRecord) bool {
		return record.Date >= from && record.Date <= to
	})
	sortNewestFirst(records)
	return records, nil
}

// GetRecordsByPainLevel returns records with a pain level within [min, max],
// most severe first.
func (service *DataManager) GetRecordsByPainLevel(ctx context.Context, minLevel int, maxLevel int) (records []models.PainRecord, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("get_records_by_pain_level", err) }()

	if minLevel < models.MinPainLevel || maxLevel > models.MaxPainLevel || minLevel > maxLevel {
		return nil, fmt.Errorf("%w: pain level range must lie within %d..%d", ErrInvalidQuery, models.MinPainLevel, models.MaxPainLevel)
	}
	all, err := service.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	records = filterRecords(all, func(record models.PainRecord) bool {
		return record.PainLevel >= minLevel && record.PainLevel <= maxLevel
	})
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].PainLevel != records[j].PainLevel {
			return records[i].PainLevel > records[j].PainLevel
		}
		return newerThan(records[i], records[j])
	})
	return records, nil
}

func (service *DataManager) GetRecordsByMenstrualStatus(ctx context.Context, status string) (records []models.PainRecord, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("get_records_by_menstrual_status", err) }()

	if !containsString(models.MenstrualStatuses(), status) {
		return nil, fmt.Errorf("%w: unknown menstrual status %q", ErrInvalidQuery, status)
	}
	all, err := service.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	records = filterRecords(all, func(record models.PainRecord) bool {
		return record.MenstrualStatus == status
	})
	sortNewestFirst(records)
	return records, nil
}

// SearchRecords matches text case-insensitively as a substring of notes,
// pain types, locations, symptoms, medication names and menstrual status.
// Blank text matches every record.
func (service *DataManager) SearchRecords(ctx context.Context, text string) (records []models.PainRecord, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("search_records", err) }()

	all, err := service.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(text))
	if needle == "" {
		sortNewestFirst(all)
		return all, nil
	}
	records = filterRecords(all, func(record models.PainRecord) bool {
		for _, field := range searchableFields(record) {
			if strings.Contains(folder.String(field), needle) {
				return true
			}
		}
		return false
	})
	sortNewestFirst(records)
	return records, nil
}

func searchableFields(record models.PainRecord) []string {
	fields := make([]string, 0, 2+len(record.PainTypes)+len(record.Locations)+len(record.Symptoms)+len(record.Medications))
	fields = append(fields, record.Notes, record.MenstrualStatus)
	fields = append(fields, record.PainTypes...)
	fields = append(fields, record.Locations...)
	fields = append(fields, record.Symptoms...)
	for _, medication := range record.Medications {
		fields = append(fields, medication.Name)
	}
	return fields
}

func filterRecords(records []models.PainRecord, keep func(models.PainRecord) bool) []models.PainRecord {
	filtered := make([]models.PainRecord, 0)
	for _, record := range records {
		if keep(record) {
			filtered = append(filtered, record.Clone())
		}
	}
	return filtered
}

func sortNewestFirst(records []models.PainRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return newerThan(records[i], records[j])
	})
}

func newerThan(left models.PainRecord, right models.PainRecord) bool {
	if left.Date != right.Date {
		return left.Date > right.Date
	}
	if left.Time != right.Time {
		return left.Time > right.Time
	}
	return left.CreatedAt.After(right.CreatedAt)
}

func containsString(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}
