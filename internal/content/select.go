package content

import (
	"fmt"

	"mangadrop/internal/cart"
	"mangadrop/internal/services"
)

// Select maps cart entries onto series descriptors, preserving cart order.
// Unknown volumes or chapters fail with ErrContentNotFound.
func Select(series Series, entries []cart.Entry) ([]Unit, error) {
	units := make([]Unit, 0, len(entries))
	for _, entry := range entries {
		volume, chapter, hasChapter, err := cart.ParseEntry(entry)
		if err != nil {
			return nil, err
		}
		if !hasChapter {
			v, ok := series.FindVolume(volume)
			if !ok {
				return nil, services.Wrap(services.ErrContentNotFound, "content", "select",
					fmt.Sprintf("%s has no volume %s", series.Title, volume), nil)
			}
			units = append(units, v)
			continue
		}
		c, ok := series.FindChapter(volume, chapter)
		if !ok {
			return nil, services.Wrap(services.ErrContentNotFound, "content", "select",
				fmt.Sprintf("%s has no chapter %s in volume %s", series.Title, chapter, volume), nil)
		}
		units = append(units, c)
	}
	return units, nil
}
