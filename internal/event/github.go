package event

import (
	"encoding/json"
	"strings"

	"github.com/mattjoyce/forgeline/internal/manifest"
)

// githubPayload covers the handful of fields matching needs, across the
// pull_request, push, create and release event shapes. Everything else in the
// payload is deliberately dropped.
type githubPayload struct {
	Action  string `json:"action"`
	Ref     string `json:"ref"`
	RefType string `json:"ref_type"`
	After   string `json:"after"`

	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`

	PullRequest struct {
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Head struct {
			Sha  string `json:"sha"`
			Repo struct {
				Owner struct {
					Login string `json:"login"`
				} `json:"owner"`
			} `json:"repo"`
		} `json:"head"`
	} `json:"pull_request"`

	Release struct {
		TagName string `json:"tag_name"`
		Draft   bool   `json:"draft"`
	} `json:"release"`
}

// prActions are the pull_request actions that re-evaluate the manifest.
// Labels, reviews and the rest stay inert.
var prActions = map[string]bool{
	"opened":      true,
	"reopened":    true,
	"synchronize": true,
}

func normalizeGitHub(ev *Canonical, eventType string, payload []byte) {
	var p githubPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	ev.Owner = p.Repository.Owner.Login
	ev.Repo = p.Repository.Name

	switch eventType {
	case "pull_request":
		if !prActions[p.Action] {
			return
		}
		ev.Trigger = manifest.TriggerPullRequest
		ev.Branch = p.PullRequest.Base.Ref
		ev.Commit = p.PullRequest.Head.Sha
		if login := p.PullRequest.Head.Repo.Owner.Login; login != "" {
			ev.Owner = login
		}

	case "push":
		if !strings.HasPrefix(p.Ref, "refs/heads/") {
			return
		}
		ev.Trigger = manifest.TriggerCommit
		ev.Branch = strings.TrimPrefix(p.Ref, "refs/heads/")
		ev.Commit = p.After

	case "create":
		// A pushed tag counts as a release for matching purposes.
		if p.RefType != "tag" {
			return
		}
		ev.Trigger = manifest.TriggerRelease
		ev.Tag = p.Ref
		ev.IsRelease = true

	case "release":
		ev.Trigger = manifest.TriggerRelease
		ev.Tag = p.Release.TagName
		ev.IsRelease = p.Action == "published" && !p.Release.Draft
	}
}
