package state

import (
	"fmt"
	"time"
)

const pruneBatch = 100

// Prune deletes finished task infos completed before the given instant.
// Pending and running entries are kept whatever their age.
func Prune(st Store, before time.Time) (n int, err error) {
	var stale []string

	for skip := uint64(0); ; skip += pruneBatch {
		page, err := st.ListInfo(skip, pruneBatch)
		if err != nil {
			return 0, fmt.Errorf("failed to list task info: %w", err)
		}

		for i := range page {
			ti := &page[i]
			if ti.Finished() && ti.CompletedAt.Before(before) {
				stale = append(stale, ti.ID)
			}
		}

		if len(page) < pruneBatch {
			break
		}
	}

	for _, id := range stale {
		ok, err := st.DeleteInfo(id)
		if err != nil {
			return n, fmt.Errorf("failed to delete task info %s: %w", id, err)
		}
		if ok {
			n += 1
		}
	}

	return n, nil
}
