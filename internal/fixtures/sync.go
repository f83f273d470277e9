package fixtures

import (
	"log/slog"

	"github.com/starford/docview/internal/sse"
)

// EventCallback is called after a seed-driven store change with one of the
// sse.Kind* values and the document id.
type EventCallback func(kind string, id int)

// Sync brings the store up to date with seed:
//   - new/changed documents are upserted
//   - documents no longer in the seed are deleted
//
// cb (if non-nil) is called after each mutation.
func Sync(store *Store, seed *Seed, logger *slog.Logger, cb EventCallback) error {
	checksums, err := store.AllChecksums()
	if err != nil {
		return err
	}

	inSeed := make(map[int]struct{}, len(seed.Documents))
	for i := range seed.Documents {
		d := &seed.Documents[i]
		inSeed[d.ID] = struct{}{}

		row := d.row()
		if checksums[d.ID] == row.Checksum {
			continue
		}
		if err := store.UpsertDocument(row, d.queries()); err != nil {
			logger.Warn("sync: upsert failed", slog.Int("id", d.ID), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: upserted", slog.Int("id", d.ID))
		if cb != nil {
			cb(sse.KindUpdated, d.ID)
		}
	}

	for id := range checksums {
		if _, ok := inSeed[id]; ok {
			continue
		}
		if err := store.DeleteDocument(id); err != nil {
			logger.Warn("sync: delete failed", slog.Int("id", id), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.Int("id", id))
		if cb != nil {
			cb(sse.KindDeleted, id)
		}
	}

	return nil
}
