package mangadex

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type localized map[string]string

// pick returns the preferred language, then English, then any value in key order.
func (l localized) pick(language string) string {
	if v := l[language]; v != "" {
		return v
	}
	if v := l["en"]; v != "" {
		return v
	}
	best := ""
	bestKey := ""
	for k, v := range l {
		if v == "" {
			continue
		}
		if bestKey == "" || k < bestKey {
			best, bestKey = v, k
		}
	}
	return best
}

type relationship struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type mangaResponse struct {
	Result string `json:"result"`
	Data   struct {
		ID         string `json:"id"`
		Attributes struct {
			Title                  localized `json:"title"`
			Description            localized `json:"description"`
			PublicationDemographic *string   `json:"publicationDemographic"`
			Status                 string    `json:"status"`
			Year                   *int      `json:"year"`
			Tags                   []struct {
				Attributes struct {
					Name localized `json:"name"`
				} `json:"attributes"`
			} `json:"tags"`
		} `json:"attributes"`
		Relationships []relationship `json:"relationships"`
	} `json:"data"`
}

type coverData struct {
	ID         string `json:"id"`
	Attributes struct {
		FileName string  `json:"fileName"`
		Volume   *string `json:"volume"`
	} `json:"attributes"`
}

type coverResponse struct {
	Result string    `json:"result"`
	Data   coverData `json:"data"`
}

type coverListResponse struct {
	Result string      `json:"result"`
	Data   []coverData `json:"data"`
}

type aggregateChapter struct {
	Chapter string `json:"chapter"`
	ID      string `json:"id"`
}

type aggregateVolume struct {
	Volume   string                      `json:"volume"`
	Chapters flexibleMap[aggregateChapter] `json:"chapters"`
}

type aggregateResponse struct {
	Result  string                       `json:"result"`
	Volumes flexibleMap[aggregateVolume] `json:"volumes"`
}

type atHomeResponse struct {
	Result  string `json:"result"`
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

// flexibleMap decodes a JSON object keyed by title. The API serializes an
// empty object as [] and occasionally sends arrays of values.
type flexibleMap[T any] map[string]T

func (m *flexibleMap[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		out := make(flexibleMap[T], len(items))
		for i, item := range items {
			out[keyOf(item, i)] = item
		}
		*m = out
		return nil
	}
	var obj map[string]T
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*m = obj
	return nil
}

func keyOf(item any, index int) string {
	switch v := item.(type) {
	case aggregateChapter:
		return v.Chapter
	case aggregateVolume:
		return v.Volume
	default:
		return strconv.Itoa(index)
	}
}
