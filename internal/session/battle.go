package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/Cheese-Battleship/internal/fleet"
	"go.uber.org/zap"
)

// runBattle plays one battle. It returns nil when both players agreed to a
// rematch and any other error to end the session.
func (s *Session) runBattle(ctx context.Context) error {
	own, err := s.placeShips(ctx)
	if err != nil {
		return err
	}

	err = s.exchangeFire(ctx, own)
	if errors.Is(err, errPlayAgain) {
		s.logger.Info("battle_rematch")
		s.ui.ResetBattle()
		return nil
	}
	return err
}

func (s *Session) exchangeFire(ctx context.Context, own *fleet.Fleet) error {
	if s.starts {
		if err := s.playerShot(ctx, own); err != nil {
			return err
		}
	}
	for {
		if err := s.opponentShot(ctx, own); err != nil {
			return err
		}
		if err := s.playerShot(ctx, own); err != nil {
			return err
		}
	}
}

// placeShips collects the local fleet and holds until the peer is ready too.
func (s *Session) placeShips(ctx context.Context) (*fleet.Fleet, error) {
	sizes := append([]int(nil), fleet.Composition...)
	placements, err := s.ui.PlaceShips(ctx, sizes)
	if err != nil {
		return nil, err
	}
	if err := fleet.ValidateFleet(placements); err != nil {
		return nil, fmt.Errorf("ship placement: %w", err)
	}

	if err := s.barrier(ctx, "placement.waiting"); err != nil {
		return nil, err
	}
	if s.starts {
		s.say("placement.done_first")
	} else {
		s.say("placement.done_second")
	}
	return fleet.New(placements), nil
}

// barrier is the two-way readiness handshake: announce ours, then wait for
// theirs. The waiting notice only shows when theirs has not arrived yet.
func (s *Session) barrier(ctx context.Context, waitingKey string) error {
	if err := s.t.SendAcknowledgement(ctx); err != nil {
		return err
	}
	if !s.t.HasMessage() {
		s.logger.Debug("barrier_wait", zap.String("phase", waitingKey))
		s.say(waitingKey)
	}
	return s.t.WaitForAcknowledgement(ctx)
}

func (s *Session) playerShot(ctx context.Context, own *fleet.Fleet) error {
	target, err := s.ui.Aim(ctx)
	if err != nil {
		return err
	}
	res, err := s.t.DeliverShot(ctx, target)
	if err != nil {
		return err
	}
	s.logger.Debug("shot_fired", zap.Stringer("target", target), zap.Bool("hit", res.Hit), zap.Bool("game_over", res.GameOver))

	if len(res.DestroyedShip) == 0 {
		s.ui.ShowShot(BoardEnemy, target, res.Hit)
		if res.Hit {
			s.say("shot.hit")
		} else {
			s.say("shot.miss")
		}
		return nil
	}

	s.ui.RevealShip(BoardEnemy, res.DestroyedShip)
	if res.GameOver {
		if err := s.t.SendIntactShips(ctx, own); err != nil {
			return err
		}
		if err := s.rematch(ctx, true); err != nil {
			return err
		}
		return errPlayAgain
	}
	s.ui.Message(s.texts.Text("shot.destroyed", map[string]any{"Size": len(res.DestroyedShip), "Opponent": s.opponentLabel()}))
	return nil
}

// opponentShot resolves the peer's shot against our own fleet; the target
// always judges the hit and reports it back.
func (s *Session) opponentShot(ctx context.Context, own *fleet.Fleet) error {
	target, err := s.t.ReceiveShot(ctx)
	if err != nil {
		return err
	}
	res := own.Resolve(target)
	s.logger.Debug("shot_received", zap.Stringer("target", target), zap.Bool("hit", res.Hit), zap.Bool("game_over", res.GameOver))

	s.ui.ShowShot(BoardOwn, target, res.Hit)
	if err := s.t.InformShotResult(ctx, res); err != nil {
		return err
	}

	if len(res.DestroyedShip) == 0 {
		if res.Hit {
			s.say("incoming.hit")
		} else {
			s.say("incoming.miss")
		}
		return nil
	}

	s.ui.RevealShip(BoardOwn, res.DestroyedShip)
	if res.GameOver {
		ships, err := s.t.EnemyIntactShips(ctx)
		if err != nil {
			return err
		}
		s.ui.RevealFleet(ships)
		if err := s.rematch(ctx, false); err != nil {
			return err
		}
		return errPlayAgain
	}
	s.say("incoming.destroyed")
	return nil
}

// rematch asks for another battle and runs the readiness barrier again.
// Declining ends the whole session.
func (s *Session) rematch(ctx context.Context, won bool) error {
	s.logger.Info("battle_end", zap.Bool("won", won))
	if won {
		s.say("rematch.win")
	} else {
		s.say("rematch.lose")
	}
	again, err := s.ui.Confirm(ctx, s.texts.Text("rematch.question", nil))
	if err != nil {
		return err
	}
	if !again {
		return ErrLocalExit
	}
	if err := s.barrier(ctx, "rematch.waiting"); err != nil {
		return err
	}
	s.say("rematch.agreed")
	return nil
}
