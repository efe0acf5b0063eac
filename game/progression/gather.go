package progression

import (
	"context"

	"github.com/kasuganosora/dreamrealm/game/action"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/game/transfer"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GatherStatus describes a gather in flight.
type GatherStatus struct {
	NodeID    int64   `json:"node_id"`
	NodeType  string  `json:"node_type"`
	Remaining float64 `json:"remaining_time"`
}

// CharacterView is a character with its inventory.
type CharacterView struct {
	Character *model.Character `json:"character"`
	Inventory *model.Inventory `json:"inventory"`
	Gather    *GatherStatus    `json:"gather,omitempty"`
}

// GatherResult is returned by FinishGather.
type GatherResult struct {
	ResourceType string           `json:"resource_type"`
	Amount       int64            `json:"amount"`
	Inventory    *model.Inventory `json:"inventory"`
}

// GetCharacter returns the actor's character and inventory.
func (s *Service) GetCharacter(ctx context.Context, accountID int64) (*CharacterView, error) {
	db := s.gw.DB(ctx)
	ch, err := store.CharacterByAccount(db, accountID)
	if err != nil {
		return nil, wrapRead(err)
	}
	inv, err := store.InventoryByCharacter(db, ch.ID)
	if err != nil {
		return nil, wrapRead(err)
	}
	view := &CharacterView{Character: ch, Inventory: inv}
	if ch.Gathering() {
		if node, err := store.MapResource(db, *ch.ActionTargetID); err == nil {
			view.Gather = &GatherStatus{
				NodeID:    node.ID,
				NodeType:  node.Type,
				Remaining: action.Remaining(s.cat, ch, node.Type, s.now()).Seconds(),
			}
		}
	}
	return view, nil
}

// MoveCharacter moves the actor and cancels any gather in flight. An empty
// zone keeps the current one.
func (s *Service) MoveCharacter(ctx context.Context, accountID int64, x, y int, zone string) (*model.Character, error) {
	var out *model.Character
	err := s.mutate(ctx, accountID, "move", func(tx *gorm.DB) error {
		ch, err := store.CharacterByAccount(tx, accountID)
		if err != nil {
			return err
		}
		ch.X, ch.Y = x, y
		if zone != "" {
			ch.CurrentZone = zone
		}
		action.Reset(ch)
		if err := transfer.SaveCharacter(tx, ch); err != nil {
			return err
		}
		out = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, accountID, "character_moved", out)
	return out, nil
}

// StartGather puts the actor into the gathering state on nodeID.
func (s *Service) StartGather(ctx context.Context, accountID, nodeID int64) (*model.Character, error) {
	var out *model.Character
	err := s.mutate(ctx, accountID, "gather_start", func(tx *gorm.DB) error {
		ch, err := store.CharacterByAccount(tx, accountID)
		if err != nil {
			return err
		}
		node, err := store.MapResource(tx, nodeID)
		if err != nil {
			return err
		}
		if err := action.Start(ch, node, s.now(), s.opts.GatherRestart); err != nil {
			return err
		}
		if err := transfer.SaveCharacter(tx, ch); err != nil {
			return err
		}
		out = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, accountID, "gather_started", out)
	return out, nil
}

// FinishGather completes the actor's gather once its duration has passed,
// crediting the yield exactly once.
func (s *Service) FinishGather(ctx context.Context, accountID int64) (*GatherResult, error) {
	var out *GatherResult
	var lost error
	err := s.run(ctx, accountID, "gather_finish", func(tx *gorm.DB) (string, error) {
		ch, err := store.CharacterByAccount(tx, accountID)
		if err != nil {
			return "", err
		}
		if !ch.Gathering() {
			return "", errs.InvalidState("character is not gathering")
		}
		inv, err := store.InventoryByCharacter(tx, ch.ID)
		if err != nil {
			return "", err
		}
		node, err := store.MapResource(tx, *ch.ActionTargetID)
		if err != nil {
			return "", err
		}
		c, err := action.Finish(s.cat, ch, node, s.now())
		if errs.Is(err, errs.KindConflict) && !ch.Gathering() {
			// Commit the reset, then report the loss.
			lost = err
			return "gather_lost", transfer.SaveCharacter(tx, ch)
		}
		if err != nil {
			return "", err
		}
		if err := transfer.ApplyGather(tx, ch, inv, c); err != nil {
			return "", err
		}
		out = &GatherResult{ResourceType: c.Resource.String(), Amount: c.Amount, Inventory: inv}
		s.logger.Info("gather finished",
			zap.Int64("account_id", accountID),
			zap.Int64("node_id", c.NodeID),
			zap.String("resource", c.Resource.String()),
			zap.Int64("amount", c.Amount))
		return "gather_finish", nil
	})
	if err != nil {
		return nil, err
	}
	if lost != nil {
		s.publish(ctx, accountID, "gather_lost", nil)
		return nil, lost
	}
	s.publish(ctx, accountID, "gather_finished", out)
	return out, nil
}

// wrapRead maps raw read failures outside an atomic unit to Unavailable.
func wrapRead(err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Unavailable(err)
}
