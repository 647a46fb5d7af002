package event

import (
	"encoding/json"
	"strings"

	"github.com/mattjoyce/forgeline/internal/manifest"
)

type gitlabPayload struct {
	Ref         string `json:"ref"`
	After       string `json:"after"`
	CheckoutSha string `json:"checkout_sha"`

	Project struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
	} `json:"project"`

	ObjectAttributes struct {
		Action       string `json:"action"`
		TargetBranch string `json:"target_branch"`
		LastCommit   struct {
			ID string `json:"id"`
		} `json:"last_commit"`
	} `json:"object_attributes"`
}

var mrActions = map[string]bool{
	"open":   true,
	"reopen": true,
	"update": true,
}

func normalizeGitLab(ev *Canonical, eventType string, payload []byte) {
	var p gitlabPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	ev.Owner = p.Project.Namespace
	ev.Repo = p.Project.Name

	switch eventType {
	case "Merge Request Hook":
		if !mrActions[p.ObjectAttributes.Action] {
			return
		}
		ev.Trigger = manifest.TriggerPullRequest
		ev.Branch = p.ObjectAttributes.TargetBranch
		ev.Commit = p.ObjectAttributes.LastCommit.ID

	case "Push Hook":
		if !strings.HasPrefix(p.Ref, "refs/heads/") {
			return
		}
		ev.Trigger = manifest.TriggerCommit
		ev.Branch = strings.TrimPrefix(p.Ref, "refs/heads/")
		ev.Commit = p.After

	case "Tag Push Hook":
		if !strings.HasPrefix(p.Ref, "refs/tags/") {
			return
		}
		// Tag deletion pushes an all-zero after sha; not a release.
		if p.CheckoutSha == "" {
			return
		}
		ev.Trigger = manifest.TriggerRelease
		ev.Tag = strings.TrimPrefix(p.Ref, "refs/tags/")
		ev.IsRelease = true
	}
}
