// Package topics loads the curated topic -> indicator-id configuration from disk.
//
// The file is HJSON (plain JSON also parses), an object whose keys are topic
// names in display order and whose values are ordered indicator-id lists:
//
//	{
//	  # Macro indicators
//	  Economics: ["NY.GDP.MKTP.CD", "FP.CPI.TOTL.ZG"]
//	}
package topics

import (
	"fmt"
	"os"
	"strings"

	"econ_dashboard/pkg/core/apperr"

	hjson "github.com/hjson/hjson-go/v4"
)

// Topic is a named, ordered group of indicator ids.
type Topic struct {
	Name         string   `json:"name"`
	IndicatorIDs []string `json:"indicator_ids"`
}

// LoadFailedMessage is shown wherever topics are needed but the file could not be loaded.
const LoadFailedMessage = "Couldn't fetch the topics from disk."

// Set is the loaded configuration. It is not mutated after Load.
type Set struct {
	topics []Topic
	byName map[string]int
	err    error
}

// Load reads and parses the topic file at path.
func Load(path string) (*Set, error) {
	const op = "topics.load"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, op, LoadFailedMessage,
			fmt.Errorf("failed to read topics file %s: %w", path, err))
	}
	set, err := Parse(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, op, LoadFailedMessage, fmt.Errorf("%s: %w", path, err))
	}
	return set, nil
}

// Failed returns an empty Set that reports err from Err. The server keeps
// running with it so the rest of the dashboard still works.
func Failed(err error) *Set {
	return &Set{byName: map[string]int{}, err: err}
}

// Err is the load error behind a Set from Failed, nil otherwise.
func (s *Set) Err() error { return s.err }

// Parse decodes topic configuration from HJSON/JSON bytes, keeping key order.
func Parse(data []byte) (*Set, error) {
	var om hjson.OrderedMap
	if err := hjson.Unmarshal(data, &om); err != nil {
		return nil, fmt.Errorf("failed to parse topics: %w", err)
	}

	set := &Set{byName: make(map[string]int, len(om.Keys))}
	for _, name := range om.Keys {
		raw, ok := om.Map[name].([]interface{})
		if !ok {
			return nil, fmt.Errorf("topic %q: expected a list of indicator ids", name)
		}
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			id, ok := v.(string)
			if !ok || strings.TrimSpace(id) == "" {
				return nil, fmt.Errorf("topic %q: indicator ids must be non-empty strings", name)
			}
			ids = append(ids, strings.TrimSpace(id))
		}
		if len(ids) == 0 {
			continue
		}
		set.byName[name] = len(set.topics)
		set.topics = append(set.topics, Topic{Name: name, IndicatorIDs: ids})
	}

	if len(set.topics) == 0 {
		return nil, fmt.Errorf("no topics with indicators configured")
	}
	return set, nil
}

// FromMap builds a Set from names in the given order. Used by tests and tools.
func FromMap(names []string, m map[string][]string) *Set {
	set := &Set{byName: make(map[string]int, len(names))}
	for _, name := range names {
		set.byName[name] = len(set.topics)
		set.topics = append(set.topics, Topic{Name: name, IndicatorIDs: append([]string(nil), m[name]...)})
	}
	return set
}

// Names returns topic names in configured order.
func (s *Set) Names() []string {
	names := make([]string, len(s.topics))
	for i, t := range s.topics {
		names[i] = t.Name
	}
	return names
}

// All returns a copy of every topic in configured order.
func (s *Set) All() []Topic {
	out := make([]Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = Topic{Name: t.Name, IndicatorIDs: append([]string(nil), t.IndicatorIDs...)}
	}
	return out
}

// Get returns the topic with the given name.
func (s *Set) Get(name string) (Topic, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Topic{}, false
	}
	t := s.topics[i]
	return Topic{Name: t.Name, IndicatorIDs: append([]string(nil), t.IndicatorIDs...)}, true
}

// Len is the number of topics.
func (s *Set) Len() int { return len(s.topics) }
