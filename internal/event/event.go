// Package event normalizes heterogeneous forge webhook payloads into the one
// canonical shape the matching engine consumes. Each upstream payload shape
// maps to exactly one trigger kind; anything unrecognized becomes TriggerNone,
// which matches no job. Upstream schema drift is inert, never an error.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/forgeline/internal/manifest"
)

// Canonical is the normalized event descriptor. Produced once per incoming
// notification; immutable.
type Canonical struct {
	ID      string
	Trigger manifest.TriggerKind

	Forge string // "github" | "gitlab"
	Owner string // source repo owner
	Repo  string

	Branch string
	Commit string
	Tag    string

	// IsRelease distinguishes published releases and pushed tags from other
	// release-shaped notifications (drafts, edits). Release-triggered jobs
	// only match when it is set.
	IsRelease bool

	ReceivedAt time.Time
}

// Normalize converts a raw forge payload into a Canonical event.
// forge selects the payload dialect; eventType is the value of the forge's
// event header (X-GitHub-Event / X-Gitlab-Event).
func Normalize(forge, eventType string, payload []byte) Canonical {
	ev := Canonical{
		ID:         uuid.NewString(),
		Trigger:    manifest.TriggerNone,
		Forge:      strings.ToLower(forge),
		ReceivedAt: time.Now().UTC(),
	}

	switch ev.Forge {
	case "github":
		normalizeGitHub(&ev, eventType, payload)
	case "gitlab":
		normalizeGitLab(&ev, eventType, payload)
	}
	return ev
}
