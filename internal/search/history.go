package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tloncorp/chatscroller/internal/csync"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

const (
	// MaxQueries is how many recent queries are kept per channel.
	MaxQueries = 3
	FileName   = "search.json"
)

type LastQuery struct {
	Query  string        `json:"query"`
	Result []sortkey.Key `json:"result"`
}

type QueryHistory struct {
	Queries   []string  `json:"queries"`
	LastQuery LastQuery `json:"lastQuery"`
}

// History holds recent searches keyed by channel.
type History struct {
	channels *csync.Map[string, QueryHistory]
}

func NewHistory() *History {
	return &History{channels: csync.NewMap[string, QueryHistory]()}
}

// Record puts query at the front of the channel's recent queries and
// remembers its result keys.
func (h *History) Record(channel, query string, result []sortkey.Key) {
	prev, _ := h.channels.Get(channel)
	queries := []string{query}
	for _, q := range prev.Queries {
		if q != query {
			queries = append(queries, q)
		}
	}
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}
	h.channels.Set(channel, QueryHistory{
		Queries:   queries,
		LastQuery: LastQuery{Query: query, Result: slices.Clone(result)},
	})
}

// Queries returns the channel's recent queries, most recent first.
func (h *History) Queries(channel string) []string {
	qh, _ := h.channels.Get(channel)
	return slices.Clone(qh.Queries)
}

func (h *History) Last(channel string) (LastQuery, bool) {
	qh, ok := h.channels.Get(channel)
	if !ok {
		return LastQuery{}, false
	}
	return qh.LastQuery, true
}

func (h *History) Serialize() ([]byte, error) {
	out := make(map[string]QueryHistory, h.channels.Len())
	for channel, qh := range h.channels.Seq2() {
		out[channel] = qh
	}
	return json.Marshal(out)
}

func Deserialize(data []byte) (*History, error) {
	var in map[string]QueryHistory
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse search history: %w", err)
	}
	h := NewHistory()
	for channel, qh := range in {
		h.channels.Set(channel, qh)
	}
	return h, nil
}

// Load reads the history stored in dataDir. A missing file is an empty
// history.
func Load(dataDir string) (*History, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return NewHistory(), nil
	}
	if err != nil {
		return nil, err
	}
	return Deserialize(data)
}

func (h *History) Save(dataDir string) error {
	data, err := h.Serialize()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write search history: %w", err)
	}
	return os.Rename(tmp, path)
}
