package feeds

import (
	"encoding/json"
	"fmt"
)

// ProblemType selects one of the server's problem reports
type ProblemType string

const (
	ProblemStatus     ProblemType = "status_info"
	ProblemProgress   ProblemType = "progress_info"
	ProblemPublicFeed ProblemType = "public_feed_info"
	ProblemHTML       ProblemType = "html_info"
	ProblemElement    ProblemType = "element_info"
	ProblemListURL    ProblemType = "list_url_info"
)

// ProblemTypes lists every report in display order
func ProblemTypes() []ProblemType {
	return []ProblemType{
		ProblemStatus,
		ProblemProgress,
		ProblemPublicFeed,
		ProblemHTML,
		ProblemElement,
		ProblemListURL,
	}
}

func ParseProblemType(s string) (ProblemType, error) {
	for _, t := range ProblemTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown problem type %q", s)
}

// Group is a feed group as listed by the server
type Group struct {
	Name     string `json:"name"`
	NumFeeds int    `json:"num_feeds"`
}

// Feed is a feed summary. GroupName is only set in search results.
type Feed struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	GroupName string `json:"group_name,omitempty"`
}

// SiteMatch is one hit of a site search, sent as a [name, url] pair
type SiteMatch struct {
	Name string
	URL  string
}

func (s *SiteMatch) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode site match: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("site match has %d elements, want 2", len(pair))
	}
	s.Name, s.URL = pair[0], pair[1]
	return nil
}

func (s SiteMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{s.Name, s.URL})
}
