package domain

import "time"

// SourceKind identifies how a source publishes content
type SourceKind string

// known source kinds
const (
	KindBlog   SourceKind = "blog"
	KindSocial SourceKind = "social"
)

// PrimarySource is a user-trusted source configured for monitoring.
// Identity is a feed URL for blogs or a handle for social accounts.
type PrimarySource struct {
	Name     string
	Identity string
	Kind     SourceKind
}

// Post is a single fetched entry from a primary source
type Post struct {
	Title     string
	Link      string
	Body      string
	Published time.Time
}

// CitationReference records a single citation of a target identity by a
// primary source. Target is the raw identity as found in the post body,
// canonicalization happens at aggregation time.
type CitationReference struct {
	Target   string     // raw URL or handle without "@"
	Kind     SourceKind // blog for URLs, social for mentions
	CitedBy  string     // identity of the citing primary source
	Observed time.Time  // publish time of the citing post
}

// CandidateSource is a discovered second-degree source with citation
// evidence accumulated across all primary sources in a run.
type CandidateSource struct {
	Identity  string // canonical identity
	Name      string // best-effort display name, may be empty
	Kind      SourceKind
	CitedBy   map[string]struct{} // distinct citing primary source identities
	LastCited time.Time
}

// CitationCount returns the number of distinct primary sources citing the candidate
func (c *CandidateSource) CitationCount() int { return len(c.CitedBy) }
