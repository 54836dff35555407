package repository

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
)

func archiveRecord(id int64, session string) models.SignalRecord {
	at := time.Date(2026, 3, 2, 14, 23, 10, 0, time.UTC)
	return models.SignalRecord{
		ID:               id,
		SessionID:        session,
		Asset:            "EUR/USD",
		Action:           models.ActionCall,
		Confidence:       91,
		EntryPoint:       models.EntryImmediate,
		RiskLevel:        models.RiskLow,
		Timeframe:        "1min",
		Expiration:       "3min",
		EntryDescription: "Strong CALL setup, enter immediately",
		EntryTiming:      "Enter now, expires at 14:26:10",
		ExpiresAt:        at.Add(3 * time.Minute),
		CreatedAt:        at,
		Rule:             models.RuleBullishRatio,
		Heuristic:        models.HeuristicResult{GreenRatio: 0.4, RedRatio: 0.1, Samples: 64},
	}
}

func TestArchiveSchemaIsIdempotent(t *testing.T) {
	stmts := ArchiveSchema("chartsignal", "signals")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS chartsignal", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS chartsignal.signals")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}

func TestBuildInsert(t *testing.T) {
	recs := []models.SignalRecord{archiveRecord(1, "s1"), archiveRecord(2, ""), archiveRecord(3, "s1")}

	q, args := buildInsert("chartsignal.signals", recs)

	require.NotEmpty(t, q)
	assert.True(t, strings.HasPrefix(q, "INSERT INTO chartsignal.signals (id, session_id,"))
	assert.Equal(t, 2, strings.Count(q, "(?, "))
	assert.Equal(t, archiveColumnCount, strings.Count(archiveColumns, ",")+1)
	require.Len(t, args, 2*archiveColumnCount)
	assert.Equal(t, int64(1), args[0])
	assert.Equal(t, int64(3), args[archiveColumnCount])
	assert.Equal(t, uint8(91), args[4])
	assert.Equal(t, uint32(64), args[archiveColumnCount-1])
}

func TestBuildInsertSkipsEmpty(t *testing.T) {
	q, args := buildInsert("t", []models.SignalRecord{archiveRecord(1, "")})
	assert.Empty(t, q)
	assert.Nil(t, args)
}

type sliceRow []interface{}

func (r sliceRow) Scan(dest ...interface{}) error {
	if len(dest) != len(r) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r[i].(int64)
		case *string:
			*p = r[i].(string)
		case *uint8:
			*p = r[i].(uint8)
		case *uint32:
			*p = r[i].(uint32)
		case *float64:
			*p = r[i].(float64)
		case *time.Time:
			*p = r[i].(time.Time)
		default:
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestScanRecordRoundTripsArgs(t *testing.T) {
	want := archiveRecord(7, "session-a")

	got, err := scanRecord(sliceRow(recordArgs(want)))

	require.NoError(t, err)
	assert.Equal(t, want, got)
}
