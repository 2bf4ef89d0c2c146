package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// WeeklyRecordKey is the stable message key of a weekly record.
func WeeklyRecordKey(rec WeeklyRecord) string {
	return fmt.Sprintf("%s|%d|%02d", rec.FieldKey, rec.Year, rec.ISOWeek)
}

// SerializeWeeklyRecord encodes a weekly record for the export sink.
func SerializeWeeklyRecord(rec WeeklyRecord) (OutputEvent, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize weekly record: %w", err)
	}
	return OutputEvent{
		Key:   []byte(WeeklyRecordKey(rec)),
		Value: data,
		Headers: map[string]string{
			"field_key":    rec.FieldKey,
			"filled":       strconv.FormatBool(rec.Filled),
			"processed_at": clock.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
