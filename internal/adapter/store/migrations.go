package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"sgt/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 2

var (
	keySchemaVersion = []byte("schema_version")
	keyModelHash     = []byte("model_hash")
)

// SchemaInfo stores schema version and the hash of the model the stored
// embeddings were computed with.
type SchemaInfo struct {
	Version   int    `json:"version"`
	ModelHash string `json:"model_hash"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		if b == nil {
			return nil
		}

		if versionData := b.Get(keySchemaVersion); versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				info.Version = 1
			}
		}
		if hashData := b.Get(keyModelHash); hashData != nil {
			info.ModelHash = string(hashData)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyModelHash, []byte(info.ModelHash))
	})
}

// ComputeModelHash hashes everything that changes embedding values. Stored
// embeddings are only comparable with new ones when the hashes match.
func ComputeModelHash(model domain.Model) string {
	data, _ := json.Marshal(model)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckModel checks whether the database can take embeddings computed
// under model.
func (s *BoltStore) CheckModel(model domain.Model) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ModelHash != "" && info.ModelHash != ComputeModelHash(model) {
		result.NeedsRebuild = true
		result.Reason = "model parameters or alphabet changed"
	}

	return result, nil
}

// Migrate performs any necessary schema migrations and records model.
func (s *BoltStore) Migrate(model domain.Model) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	// A database without a version was created by this release.
	from := info.Version
	if from == 0 {
		from = CurrentSchemaVersion
	}
	for v := from; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:   CurrentSchemaVersion,
		ModelHash: ComputeModelHash(model),
	})
}

// runMigration runs a specific version migration.
func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 1 && to == 2:
		// v1 stored float32 vectors without sequence lengths.
		return s.db.Update(func(tx *bbolt.Tx) error {
			if tx.Bucket(bucketVectors) == nil {
				return nil
			}
			return tx.DeleteBucket(bucketVectors)
		})
	default:
		return nil
	}
}

// Clear removes the model, statistics and every stored embedding, keeping
// the schema version. Open vector stores must be reopened afterwards.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketModel, bucketVectors, bucketStats} {
			b := tx.Bucket(name)
			if b == nil {
				continue
			}
			var keys [][]byte
			if err := b.ForEach(func(k, _ []byte) error {
				if string(k) != string(keySchemaVersion) {
					keys = append(keys, append([]byte(nil), k...))
				}
				return nil
			}); err != nil {
				return err
			}
			for _, k := range keys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// NeedsRebuild reports whether stored embeddings are incompatible with model.
func (s *BoltStore) NeedsRebuild(model domain.Model) (bool, string, error) {
	result, err := s.CheckModel(model)
	if err != nil {
		return false, "", err
	}
	return result.NeedsRebuild, result.Reason, nil
}
