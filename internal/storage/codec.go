package storage

import (
	"encoding/json"
	"errors"

	"qrlsim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned stamps record with the current schema and codec versions.
func Versioned(record model.RunRecord) model.RunRecord {
	record.VersionedRecord = model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	return record
}

func EncodeRun(record model.RunRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var record model.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func cloneRun(record model.RunRecord) model.RunRecord {
	record.CycleIndices = append([]int(nil), record.CycleIndices...)
	record.Windows = append([]model.WindowStat(nil), record.Windows...)
	record.Rewards = append([]model.RewardCount(nil), record.Rewards...)
	record.Histogram = append([]model.HistogramRow(nil), record.Histogram...)
	return record
}
