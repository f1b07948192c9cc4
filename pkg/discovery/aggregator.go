package discovery

import (
	"net/url"
	"strings"

	"github.com/umputun/feedscout/pkg/domain"
)

// Canonicalize normalizes a raw identity for deduplication.
// URLs get a lower-cased host with trailing slash and fragment stripped,
// handles are lower-cased with the leading "@" removed. Idempotent.
func Canonicalize(identity string) string {
	identity = strings.TrimSpace(identity)

	lower := strings.ToLower(identity)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(identity)
		if err != nil || u.Host == "" {
			// not parseable, fall back to byte-level normalization
			return strings.TrimSuffix(strings.SplitN(identity, "#", 2)[0], "/")
		}
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		u.Fragment = ""
		return strings.TrimSuffix(u.String(), "/")
	}

	return strings.ToLower(strings.TrimLeft(identity, "@"))
}

// Aggregate folds citation references into one candidate per canonical identity.
// Identities present in known (tracked primaries and past recommendations) are
// excluded entirely. Citation count is the number of distinct citing primary
// sources, LastCited the maximum observed timestamp. The result does not depend
// on the order of refs.
func Aggregate(refs []domain.CitationReference, known map[string]struct{}) map[string]*domain.CandidateSource {
	candidates := map[string]*domain.CandidateSource{}

	for _, ref := range refs {
		identity := Canonicalize(ref.Target)
		if identity == "" {
			continue
		}
		if _, ok := known[identity]; ok {
			continue
		}

		cand, ok := candidates[identity]
		if !ok {
			cand = &domain.CandidateSource{
				Identity: identity,
				Name:     displayName(identity, ref.Kind),
				Kind:     ref.Kind,
				CitedBy:  map[string]struct{}{},
			}
			candidates[identity] = cand
		}

		cand.CitedBy[Canonicalize(ref.CitedBy)] = struct{}{}
		if ref.Observed.After(cand.LastCited) {
			cand.LastCited = ref.Observed
		}
	}

	return candidates
}

// displayName derives a best-effort name from the canonical identity,
// the host for URLs and "@handle" for social accounts
func displayName(identity string, kind domain.SourceKind) string {
	if kind == domain.KindSocial {
		return "@" + identity
	}
	if u, err := url.Parse(identity); err == nil && u.Host != "" {
		return u.Host
	}
	return ""
}
