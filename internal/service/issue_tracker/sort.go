package issue_tracker

import (
	"sort"

	"basegraph.app/intake/internal/model"
)

// sortFields orders descriptors so prompts come out in a stable order.
// Standard fields come before custom ones, then by display name.
func sortFields(fields []model.FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Custom != fields[j].Custom {
			return !fields[i].Custom
		}
		if fields[i].DisplayName() != fields[j].DisplayName() {
			return fields[i].DisplayName() < fields[j].DisplayName()
		}
		return fields[i].ID < fields[j].ID
	})
}
