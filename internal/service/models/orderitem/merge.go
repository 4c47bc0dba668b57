package orderitem

import "github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"

// Line is a display row: order items sharing name and note (and status on the kitchen board).
type Line struct {
	Name          string               `json:"name"`
	Note          string               `json:"note"`
	KitchenStatus kitchenstatus.Status `json:"kitchen_status"`
	Quantity      int                  `json:"quantity"`
	IDs           []string             `json:"ids"`
}

type lineKey struct {
	name   string
	note   string
	status kitchenstatus.Status
}

// MergeLines merges items for display, keeping first-seen order. With byStatus the
// display status is part of the key. Items are not modified.
func MergeLines(items []OrderItem, byStatus bool) []Line {
	index := make(map[lineKey]int, len(items))
	lines := make([]Line, 0, len(items))

	for _, item := range items {
		key := lineKey{name: item.Name, note: item.Note}
		if byStatus {
			key.status = item.KitchenStatus.Display()
		}

		if i, ok := index[key]; ok {
			lines[i].Quantity += item.Quantity
			lines[i].IDs = append(lines[i].IDs, item.ID)

			continue
		}

		index[key] = len(lines)
		lines = append(lines, Line{
			Name:          item.Name,
			Note:          item.Note,
			KitchenStatus: item.KitchenStatus.Display(),
			Quantity:      item.Quantity,
			IDs:           []string{item.ID},
		})
	}

	return lines
}
