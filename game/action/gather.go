// Package action is the per-character gather state machine:
//
//	Idle --Start--> Gathering(target, startedAt) --Finish--> Idle
//
// The functions here are pure: they validate against the passed-in rows and
// the supplied time, and mutate only the in-memory Character. Persisting the
// result is the caller's job.
package action

import (
	"time"

	"github.com/kasuganosora/dreamrealm/game/catalog"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/model"
)

// RestartPolicy decides what Start does while a gather is already in flight.
type RestartPolicy string

const (
	// Restart replaces the target and start time.
	Restart RestartPolicy = "restart"
	// Reject refuses with Conflict.
	Reject RestartPolicy = "reject"
)

// ParsePolicy maps a config value onto a policy, defaulting to Restart.
func ParsePolicy(s string) RestartPolicy {
	if RestartPolicy(s) == Reject {
		return Reject
	}
	return Restart
}

// Completion describes the effects of a successful Finish.
type Completion struct {
	NodeID    int64            `json:"node_id"`
	NodeType  string           `json:"node_type"`
	Resource  catalog.Resource `json:"-"`
	Amount    int64            `json:"amount"`
	RespawnAt time.Time        `json:"respawn_at"`
	At        time.Time        `json:"-"`
}

// Start moves ch into Gathering on node.
func Start(ch *model.Character, node *model.MapResource, now time.Time, policy RestartPolicy) error {
	if node.Depleted {
		return errs.Conflict("resource node is depleted")
	}
	if policy == Reject && ch.Gathering() {
		return errs.Conflict("already gathering")
	}
	started := now
	target := node.ID
	ch.CurrentAction = model.ActionGathering
	ch.ActionStartedAt = &started
	ch.ActionTargetID = &target
	return nil
}

// Elapsed is how long ch has been gathering, clamped at zero when the clock
// moved backwards.
func Elapsed(ch *model.Character, now time.Time) time.Duration {
	if ch.ActionStartedAt == nil {
		return 0
	}
	if d := now.Sub(*ch.ActionStartedAt); d > 0 {
		return d
	}
	return 0
}

// Remaining is the time left before Finish can succeed.
func Remaining(cat *catalog.Catalog, ch *model.Character, nodeType string, now time.Time) time.Duration {
	if d := cat.GatherDuration(nodeType) - Elapsed(ch, now); d > 0 {
		return d
	}
	return 0
}

// Lost reports whether someone else harvested node after ch started on it.
// Such a gather can never complete, even once the node respawns.
func Lost(ch *model.Character, node *model.MapResource) bool {
	if node.Depleted {
		return true
	}
	return node.HarvestedAt != nil && ch.ActionStartedAt != nil &&
		!ch.ActionStartedAt.After(*node.HarvestedAt)
}

// Finish validates that ch may complete its gather on node at now and
// returns the effects to apply. ch is reset to Idle on success, and also
// when the gather was lost to another player, in which case the error is
// Conflict and the caller should persist the reset.
func Finish(cat *catalog.Catalog, ch *model.Character, node *model.MapResource, now time.Time) (Completion, error) {
	if !ch.Gathering() {
		return Completion{}, errs.InvalidState("character is not gathering")
	}
	if node.ID != *ch.ActionTargetID {
		return Completion{}, errs.InvalidState("gather target mismatch")
	}
	if Lost(ch, node) {
		Reset(ch)
		return Completion{}, errs.Conflict("resource node was harvested by someone else")
	}
	if rem := Remaining(cat, ch, node.Type, now); rem > 0 {
		return Completion{}, errs.TooEarly("gathering not finished yet", rem.Seconds())
	}
	res, err := cat.NodeResource(node.Type)
	if err != nil {
		return Completion{}, err
	}
	c := Completion{
		NodeID:    node.ID,
		NodeType:  node.Type,
		Resource:  res,
		Amount:    cat.GatherYield(node.Type),
		RespawnAt: now.Add(cat.RespawnDelay()),
		At:        now,
	}
	Reset(ch)
	return c, nil
}

// Reset returns ch to Idle. Moving the character uses it to cancel a
// gather in flight.
func Reset(ch *model.Character) {
	ch.CurrentAction = ""
	ch.ActionStartedAt = nil
	ch.ActionTargetID = nil
}

// Respawnable reports whether a depleted node is due to come back.
func Respawnable(node *model.MapResource, now time.Time) bool {
	return node.Depleted && node.RespawnAt != nil && !node.RespawnAt.After(now)
}
