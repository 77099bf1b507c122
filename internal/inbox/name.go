package inbox

import (
	"strings"

	"github.com/nodecore/node/internal/nodeerr"
)

// Kind distinguishes the two inbox-name grammars (spec.md §3).
type Kind string

const (
	// KindRegular is "inbox::<full_name_1>::<full_name_2>::<is_e2e>".
	KindRegular Kind = "regular"
	// KindJob is "job_inbox::<job_id>::false".
	KindJob Kind = "job"
)

// Name is a parsed inbox name.
type Name struct {
	Kind         Kind
	Raw          string
	Participants []string // only populated for KindRegular
	JobID        string   // only populated for KindJob
	IsE2E        bool
}

// ParseName parses an inbox name string into its components.
func ParseName(raw string) (Name, error) {
	parts := strings.Split(raw, "::")
	switch {
	case len(parts) == 4 && parts[0] == "inbox":
		return Name{
			Kind:         KindRegular,
			Raw:          raw,
			Participants: []string{parts[1], parts[2]},
			IsE2E:        parts[3] == "true",
		}, nil
	case len(parts) == 3 && parts[0] == "job_inbox":
		return Name{
			Kind:  KindJob,
			Raw:   raw,
			JobID: parts[1],
		}, nil
	default:
		return Name{}, nodeerr.Errorf(nodeerr.BadRequest, "malformed inbox name %q", raw)
	}
}

// JobInboxName builds the canonical conversation-inbox name for a job
// (spec.md §4.3: "job_inbox::<job_id>::false").
func JobInboxName(jobID string) string {
	return "job_inbox::" + jobID + "::false"
}

// RegularInboxName builds the canonical two-party inbox name, ordering the
// two participants so the same pair always produces the same name
// regardless of call order.
func RegularInboxName(fullNameA, fullNameB string, isE2E bool) string {
	a, b := fullNameA, fullNameB
	if b < a {
		a, b = b, a
	}
	e2e := "false"
	if isE2E {
		e2e = "true"
	}
	return "inbox::" + a + "::" + b + "::" + e2e
}

// isParticipant reports whether fullName is one of the implicit-access
// participants of a regular inbox name.
func (n Name) isParticipant(fullName string) bool {
	for _, p := range n.Participants {
		if p == fullName {
			return true
		}
	}
	return false
}
